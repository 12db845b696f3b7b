package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/prepublish/backend/internal/setup"
	"github.com/itchan-dev/prepublish/backend/internal/storage/kv"
	"github.com/itchan-dev/prepublish/shared/api"
	"github.com/itchan-dev/prepublish/shared/config"
	"github.com/itchan-dev/prepublish/shared/domain"
)

type testServer struct {
	deps   *setup.Dependencies
	router *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Public: config.Public{
			HttpAddr:       ":0",
			Storage:        config.StorageBackendBadger,
			JwtTTL:         3600,
			PageLimit:      20,
			AllowedOrigins: []string{"https://prepublish.example"},
			WriteRPS:       0.001,
			WriteBurst:     1,
		},
		Private: config.Private{JwtKey: "router-test-secret"},
	}
	storage, err := kv.New(kv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	deps := setup.Wire(cfg, storage)
	return &testServer{deps: deps, router: New(deps)}
}

func (s *testServer) do(t *testing.T, method, url string, actor *domain.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	if actor != nil {
		token, err := s.deps.Jwt.NewToken(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func createdId(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp api.CreatedResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Id
}

func TestHealthAndHeaders(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = s.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", nil, nil)

	rr := s.do(t, http.MethodGet, "/metrics", nil, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "prepublish_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/theses", nil)
	req.Header.Set("Origin", "https://prepublish.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://prepublish.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/v1/theses", nil, api.CreateThesisRequest{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodDelete, "/v1/comments/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// readers do not need a token
	rr = s.do(t, http.MethodGet, "/v1/theses", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPublishFlow(t *testing.T) {
	s := newTestServer(t)
	author := domain.NewActor(uuid.New())
	editor := domain.NewActor(uuid.New(), domain.CapPublishing)
	reviewer := domain.NewActor(uuid.New())

	thesisId := createdId(t, s.do(t, http.MethodPost, "/v1/theses", &author, api.CreateThesisRequest{
		AuthorIds:   []domain.UserId{author.Id},
		Title:       "Sheaves on Graphs",
		Abstraction: "We *study* sheaves.",
		Keywords:    []string{"topology"},
		Languages:   []string{"en"},
	}))

	// drafts are private
	rr := s.do(t, http.MethodGet, "/v1/theses/"+thesisId, nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(t, http.MethodGet, "/v1/theses/"+thesisId, &author, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	versionId := createdId(t, s.do(t, http.MethodPost, "/v1/theses/"+thesisId+"/commit", &author,
		api.CommitVersionRequest{FileId: uuid.New()}))

	// only editors open reviews
	edit := api.EditVersionRequest{RemainderReviewerIds: []domain.UserId{reviewer.Id}, Pattern: domain.ReviewerPattern()}
	rr = s.do(t, http.MethodPatch, "/v1/versions/"+versionId+"/edit", &author, edit)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(t, http.MethodPatch, "/v1/versions/"+versionId+"/edit", &editor, edit)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	judgement := true
	createdId(t, s.do(t, http.MethodPost, "/v1/versions/"+versionId+"/review", &reviewer,
		api.SubmitReviewRequest{Judgement: &judgement, Criticism: "Sound."}))

	rr = s.do(t, http.MethodGet, "/v1/versions/"+versionId, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var version map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&version))
	assert.Equal(t, "Passed(true)", version["state_label"])
	assert.EqualValues(t, 1, version["major_num"])

	rr = s.do(t, http.MethodGet, "/v1/theses?keyword=topology", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Pagination-Count"))
	var listed []api.ThesisResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.True(t, listed[0].IsPassed)
	assert.Contains(t, listed[0].AbstractionHTML, "<em>study</em>")

	// accepted versions take comments
	createdId(t, s.do(t, http.MethodPost, "/v1/versions/"+versionId+"/comment", &author,
		api.CommentRequest{Content: "Thanks!"}))
	rr = s.do(t, http.MethodGet, "/v1/versions/"+versionId+"/comments", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var comments []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&comments))
	assert.Len(t, comments, 1)
}

func TestWriteRateLimit(t *testing.T) {
	s := newTestServer(t)
	actor := domain.NewActor(uuid.New())
	url := "/v1/versions/" + uuid.NewString() + "/comment"

	// the first request spends the only token even though the version is unknown
	rr := s.do(t, http.MethodPost, url, &actor, api.CommentRequest{Content: "first"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodPost, url, &actor, api.CommentRequest{Content: "second"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// the bucket is per actor
	other := domain.NewActor(uuid.New())
	rr = s.do(t, http.MethodPost, url, &other, api.CommentRequest{Content: "third"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
