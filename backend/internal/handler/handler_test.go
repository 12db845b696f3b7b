package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/prepublish/shared/config"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/markup"
	mw "github.com/itchan-dev/prepublish/shared/middleware"
	"github.com/stretchr/testify/require"
)

type mocks struct {
	theses   *MockThesisService
	versions *MockVersionService
	reviews  *MockReviewService
	comments *MockCommentService
	health   *MockHealthChecker
}

func newMocks() *mocks {
	return &mocks{
		theses:   &MockThesisService{},
		versions: &MockVersionService{},
		reviews:  &MockReviewService{},
		comments: &MockCommentService{},
		health:   &MockHealthChecker{},
	}
}

// setupTestHandler mounts every route with actor injected into the request context.
func setupTestHandler(m *mocks, actor domain.Actor) (*Handler, *chi.Mux) {
	cfg := &config.Config{Public: config.Public{PageLimit: 20}}
	h := New(m.theses, m.versions, m.reviews, m.comments, m.health, markup.New(), cfg)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(mw.WithActor(r.Context(), actor)))
		})
	})
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
	router.Route("/v1", func(r chi.Router) {
		r.Post("/theses", h.CreateThesis)
		r.Get("/theses", h.ListTheses)
		r.Get("/theses/{id}", h.GetThesis)
		r.Put("/theses/{id}", h.UpdateThesis)
		r.Delete("/theses/{id}", h.WithdrawThesis)
		r.Post("/theses/{id}/commit", h.CommitVersion)
		r.Get("/theses/{id}/versions", h.ThesisVersions)

		r.Get("/versions/{id}", h.GetVersion)
		r.Patch("/versions/{id}/edit", h.EditVersion)
		r.Post("/versions/{id}/review", h.SubmitReview)
		r.Patch("/versions/{id}/adjudge/{judgement}", h.Adjudge)
		r.Post("/versions/{id}/comment", h.CommentVersion)
		r.Get("/versions/{id}/comments", h.VersionComments)
		r.Post("/versions/{id}/download", h.DownloadVersion)
		r.Get("/versions/{id}/reviews", h.VersionReviews)
		r.Delete("/versions/{id}", h.WithdrawVersion)

		r.Get("/reviews/{id}", h.GetReview)

		r.Get("/comments/{id}", h.GetComment)
		r.Get("/comments/{id}/replies", h.CommentReplies)
		r.Post("/comments/{id}/reply", h.ReplyComment)
		r.Delete("/comments/{id}", h.WithdrawComment)
	})
	return h, router
}

func createRequest(t *testing.T, method, url string, body []byte) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, url, bytes.NewBuffer(body))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
