package handler

import (
	"context"

	"github.com/itchan-dev/prepublish/backend/internal/service"
	"github.com/itchan-dev/prepublish/shared/api"
	"github.com/itchan-dev/prepublish/shared/config"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/markup"
)

// HealthChecker is the storage ping used by the readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	theses   service.ThesisService
	versions service.VersionService
	reviews  service.ReviewService
	comments service.CommentService
	health   HealthChecker
	markup   *markup.Renderer
	cfg      *config.Config
}

func New(theses service.ThesisService, versions service.VersionService, reviews service.ReviewService,
	comments service.CommentService, health HealthChecker, renderer *markup.Renderer, cfg *config.Config) *Handler {
	return &Handler{
		theses:   theses,
		versions: versions,
		reviews:  reviews,
		comments: comments,
		health:   health,
		markup:   renderer,
		cfg:      cfg,
	}
}

func (h *Handler) thesisResponse(t domain.Thesis) api.ThesisResponse {
	return api.ThesisResponse{Thesis: t, AbstractionHTML: h.markup.Render(t.Abstraction)}
}

func versionResponse(v domain.Version) api.VersionResponse {
	return api.VersionResponse{Version: v, State: v.State.String()}
}

func (h *Handler) reviewResponse(r domain.Review) api.ReviewResponse {
	return api.ReviewResponse{Review: r, CriticismHTML: h.markup.Render(r.Criticism)}
}

func (h *Handler) commentResponses(comments []domain.Comment) []api.CommentResponse {
	out := make([]api.CommentResponse, len(comments))
	for i, c := range comments {
		out[i] = api.CommentResponse{Comment: c, ContentHTML: h.markup.Render(c.Content)}
	}
	return out
}
