package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/itchan-dev/prepublish/shared/errors"
	"github.com/itchan-dev/prepublish/shared/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	code := errors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		// internal details stay in the log
		logger.Log.Error("request failed", "error", err)
		http.Error(w, "Internal error", code)
		return
	}
	http.Error(w, err.Error(), code)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := Decode(r, body); err != nil {
		return err
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("validation failed", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}

func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid json body", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	return nil
}

// Pagination is the offset/limit pair of a listing request.
type Pagination struct {
	Offset int
	Limit  int
}

// ParsePagination reads ?offset= and ?limit=. Limit is clamped to maxLimit; zero means maxLimit.
func ParsePagination(r *http.Request, maxLimit int) (Pagination, error) {
	p := Pagination{Limit: maxLimit}
	q := r.URL.Query()
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return p, errors.BadRequest("offset must be a non-negative integer")
		}
		p.Offset = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return p, errors.BadRequest("limit must be a non-negative integer")
		}
		if n > 0 && n < maxLimit {
			p.Limit = n
		}
	}
	return p, nil
}

// WritePaginationHeaders exposes the total count alongside the window actually served.
func WritePaginationHeaders(w http.ResponseWriter, total int64, p Pagination) {
	h := w.Header()
	h.Set("X-Pagination-Count", strconv.FormatInt(total, 10))
	h.Set("X-Pagination-Offset", strconv.Itoa(p.Offset))
	h.Set("X-Pagination-Limit", strconv.Itoa(p.Limit))
}
