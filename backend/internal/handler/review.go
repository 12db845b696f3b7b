package handler

import (
	"net/http"

	mw "github.com/itchan-dev/prepublish/shared/middleware"
	"github.com/itchan-dev/prepublish/shared/utils"
)

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	review, err := h.reviews.Get(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.reviewResponse(review))
}
