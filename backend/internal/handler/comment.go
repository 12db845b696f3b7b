package handler

import (
	"net/http"

	"github.com/itchan-dev/prepublish/shared/api"
	"github.com/itchan-dev/prepublish/shared/domain"
	mw "github.com/itchan-dev/prepublish/shared/middleware"
	"github.com/itchan-dev/prepublish/shared/utils"
)

func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	comment, err := h.comments.Get(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.commentResponses([]domain.Comment{comment})[0])
}

func (h *Handler) CommentReplies(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	replies, err := h.comments.Replies(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.commentResponses(replies))
}

func (h *Handler) ReplyComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.CommentRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	replyId, err := h.comments.Reply(r.Context(), mw.GetActorFromContext(r), id, body.Content)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.CreatedResponse{Id: replyId.String()})
}

func (h *Handler) WithdrawComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	n, err := h.comments.Withdraw(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.WithdrawnResponse{Deleted: n})
}
