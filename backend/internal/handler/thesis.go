package handler

import (
	"net/http"

	"github.com/itchan-dev/prepublish/shared/api"
	"github.com/itchan-dev/prepublish/shared/domain"
	mw "github.com/itchan-dev/prepublish/shared/middleware"
	"github.com/itchan-dev/prepublish/shared/utils"
)

func (h *Handler) CreateThesis(w http.ResponseWriter, r *http.Request) {
	var body api.CreateThesisRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	id, err := h.theses.Create(r.Context(), mw.GetActorFromContext(r), body.Metadata())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.CreatedResponse{Id: id.String()})
}

// ListTheses pages through passed theses. Query: keyword, language, offset, limit.
func (h *Handler) ListTheses(w http.ResponseWriter, r *http.Request) {
	page, err := utils.ParsePagination(r, h.cfg.Public.PageLimit)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	q := r.URL.Query()
	filter := domain.ThesisFilter{
		Keyword:  q.Get("keyword"),
		Language: q.Get("language"),
		Offset:   page.Offset,
		Limit:    page.Limit,
	}

	theses, total, err := h.theses.List(r.Context(), mw.GetActorFromContext(r), filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	resp := make([]api.ThesisResponse, len(theses))
	for i, t := range theses {
		resp[i] = h.thesisResponse(t)
	}
	utils.WritePaginationHeaders(w, total, page)
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetThesis(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	thesis, err := h.theses.Get(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.thesisResponse(thesis))
}

func (h *Handler) UpdateThesis(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.UpdateThesisRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	thesis, err := h.theses.Update(r.Context(), mw.GetActorFromContext(r), id, body.Metadata())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.thesisResponse(thesis))
}

func (h *Handler) WithdrawThesis(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	n, err := h.theses.Withdraw(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.WithdrawnResponse{Deleted: n})
}

func (h *Handler) CommitVersion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.CommitVersionRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	versionId, err := h.versions.Commit(r.Context(), mw.GetActorFromContext(r), id,
		domain.FileRefs{FileId: body.FileId, SourceId: body.SourceId})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.CreatedResponse{Id: versionId.String()})
}

func (h *Handler) ThesisVersions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	versions, err := h.theses.Versions(r.Context(), mw.GetActorFromContext(r), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	resp := make([]api.VersionResponse, len(versions))
	for i, v := range versions {
		resp[i] = versionResponse(v)
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
