package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/prepublish/shared/api"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
	mw "github.com/itchan-dev/prepublish/shared/middleware"
	"github.com/itchan-dev/prepublish/shared/utils"
)

func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	version, err := h.versions.Get(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, versionResponse(version))
}

// EditVersion opens the review round of an uploaded version.
func (h *Handler) EditVersion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.EditVersionRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	version, err := h.versions.Edit(r.Context(), mw.GetActorFromContext(r), id, domain.ReviewState{
		RemainderReviewerIds: body.RemainderReviewerIds,
		Pattern:              body.Pattern,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, versionResponse(version))
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.SubmitReviewRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	reviewId, err := h.versions.SubmitReview(r.Context(), mw.GetActorFromContext(r), id, *body.Judgement, body.Criticism)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.CreatedResponse{Id: reviewId.String()})
}

func (h *Handler) Adjudge(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	judgement, err := strconv.ParseBool(chi.URLParam(r, "judgement"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, errors.BadRequest("judgement must be true or false"))
		return
	}

	version, err := h.versions.Adjudge(r.Context(), mw.GetActorFromContext(r), id, judgement)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, versionResponse(version))
}

func (h *Handler) CommentVersion(w http.ResponseWriter, r *http.Request) {
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

	commentId, err := h.versions.Comment(r.Context(), mw.GetActorFromContext(r), id, body.Content)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.CreatedResponse{Id: commentId.String()})
}

func (h *Handler) VersionComments(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	comments, err := h.versions.Comments(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.commentResponses(comments))
}

// DownloadVersion counts the download and hands back the blob references.
func (h *Handler) DownloadVersion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	files, err := h.versions.Download(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.DownloadResponse{FileId: files.FileId, SourceId: files.SourceId})
}

func (h *Handler) VersionReviews(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	reviews, err := h.versions.Reviews(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	resp := make([]api.ReviewResponse, len(reviews))
	for i, rv := range reviews {
		resp[i] = h.reviewResponse(rv)
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) WithdrawVersion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	n, err := h.versions.Withdraw(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.WithdrawnResponse{Deleted: n})
}
