package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/errors"
)

// parseIdParam reads a uuid path parameter.
func parseIdParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.BadRequest("invalid %s: must be a uuid", name)
	}
	return id, nil
}
