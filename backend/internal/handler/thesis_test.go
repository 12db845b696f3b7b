package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/api"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validThesisBody() api.CreateThesisRequest {
	return api.CreateThesisRequest{
		AuthorIds:   []domain.UserId{uuid.New()},
		Title:       "On Lattices",
		Abstraction: "a *short* abstract",
		Keywords:    []string{"algebra"},
		Languages:   []string{"en"},
	}
}

func TestCreateThesis(t *testing.T) {
	actor := domain.NewActor(uuid.New())

	t.Run("success", func(t *testing.T) {
		m := newMocks()
		thesisId := uuid.New()
		body := validThesisBody()
		m.theses.MockCreate = func(a domain.Actor, meta domain.ThesisMetadata) (domain.ThesisId, error) {
			assert.Equal(t, actor.Id, a.Id)
			assert.Equal(t, body.Title, meta.Title)
			assert.Equal(t, body.AuthorIds, meta.AuthorIds)
			return thesisId, nil
		}
		_, router := setupTestHandler(m, actor)

		rr := serve(router, createRequest(t, http.MethodPost, "/v1/theses", mustJSON(t, body)))

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp api.CreatedResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, thesisId.String(), resp.Id)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, router := setupTestHandler(newMocks(), actor)
		rr := serve(router, createRequest(t, http.MethodPost, "/v1/theses", []byte("{not json")))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		body := validThesisBody()
		body.Title = ""
		_, router := setupTestHandler(newMocks(), actor)
		rr := serve(router, createRequest(t, http.MethodPost, "/v1/theses", mustJSON(t, body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("no authors", func(t *testing.T) {
		body := validThesisBody()
		body.AuthorIds = nil
		_, router := setupTestHandler(newMocks(), actor)
		rr := serve(router, createRequest(t, http.MethodPost, "/v1/theses", mustJSON(t, body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("service forbids", func(t *testing.T) {
		m := newMocks()
		m.theses.MockCreate = func(domain.Actor, domain.ThesisMetadata) (domain.ThesisId, error) {
			return uuid.Nil, errors.Forbidden("only signed-in users may create theses")
		}
		_, router := setupTestHandler(m, actor)
		rr := serve(router, createRequest(t, http.MethodPost, "/v1/theses", mustJSON(t, validThesisBody())))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestListTheses(t *testing.T) {
	t.Run("filters and pagination headers", func(t *testing.T) {
		m := newMocks()
		m.theses.MockList = func(a domain.Actor, f domain.ThesisFilter) ([]domain.Thesis, int64, error) {
			assert.True(t, a.IsAnonymous())
			assert.Equal(t, "algebra", f.Keyword)
			assert.Equal(t, "en", f.Language)
			assert.Equal(t, 5, f.Offset)
			assert.Equal(t, 3, f.Limit)
			return []domain.Thesis{{Id: uuid.New(), IsPassed: true}}, 42, nil
		}
		_, router := setupTestHandler(m, domain.Anonymous)

		rr := serve(router, createRequest(t, http.MethodGet, "/v1/theses?keyword=algebra&language=en&offset=5&limit=3", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "42", rr.Header().Get("X-Pagination-Count"))
		assert.Equal(t, "5", rr.Header().Get("X-Pagination-Offset"))
		assert.Equal(t, "3", rr.Header().Get("X-Pagination-Limit"))
		var resp []api.ThesisResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Len(t, resp, 1)
	})

	t.Run("limit clamped to configured page size", func(t *testing.T) {
		m := newMocks()
		m.theses.MockList = func(_ domain.Actor, f domain.ThesisFilter) ([]domain.Thesis, int64, error) {
			assert.Equal(t, 20, f.Limit)
			return nil, 0, nil
		}
		_, router := setupTestHandler(m, domain.Anonymous)
		rr := serve(router, createRequest(t, http.MethodGet, "/v1/theses?limit=1000", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("bad offset", func(t *testing.T) {
		_, router := setupTestHandler(newMocks(), domain.Anonymous)
		rr := serve(router, createRequest(t, http.MethodGet, "/v1/theses?offset=-1", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetThesis(t *testing.T) {
	t.Run("renders abstract", func(t *testing.T) {
		m := newMocks()
		id := uuid.New()
		m.theses.MockGet = func(_ domain.Actor, got domain.ThesisId) (domain.Thesis, error) {
			assert.Equal(t, id, got)
			return domain.Thesis{Id: id, ThesisMetadata: domain.ThesisMetadata{Abstraction: "this *matters*"}}, nil
		}
		_, router := setupTestHandler(m, domain.Anonymous)

		rr := serve(router, createRequest(t, http.MethodGet, "/v1/theses/"+id.String(), nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.ThesisResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, id, resp.Id)
		assert.Equal(t, "this *matters*", resp.Abstraction)
		assert.Contains(t, resp.AbstractionHTML, "<em>matters</em>")
	})

	t.Run("invalid id", func(t *testing.T) {
		_, router := setupTestHandler(newMocks(), domain.Anonymous)
		rr := serve(router, createRequest(t, http.MethodGet, "/v1/theses/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		m := newMocks()
		m.theses.MockGet = func(domain.Actor, domain.ThesisId) (domain.Thesis, error) {
			return domain.Thesis{}, errors.NotFound("thesis not found")
		}
		_, router := setupTestHandler(m, domain.Anonymous)
		rr := serve(router, createRequest(t, http.MethodGet, "/v1/theses/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUpdateThesis(t *testing.T) {
	actor := domain.NewActor(uuid.New())
	id := uuid.New()
	body := validThesisBody()
	body.Title = "Revised"

	m := newMocks()
	m.theses.MockUpdate = func(_ domain.Actor, got domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error) {
		assert.Equal(t, id, got)
		return domain.Thesis{Id: got, ThesisMetadata: meta}, nil
	}
	_, router := setupTestHandler(m, actor)

	rr := serve(router, createRequest(t, http.MethodPut, "/v1/theses/"+id.String(), mustJSON(t, body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp api.ThesisResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Revised", resp.Title)
}

func TestWithdrawThesis(t *testing.T) {
	actor := domain.NewActor(uuid.New())

	t.Run("reports deleted documents", func(t *testing.T) {
		m := newMocks()
		m.theses.MockWithdraw = func(domain.Actor, domain.ThesisId) (int64, error) { return 7, nil }
		_, router := setupTestHandler(m, actor)

		rr := serve(router, createRequest(t, http.MethodDelete, "/v1/theses/"+uuid.NewString(), nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.WithdrawnResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, int64(7), resp.Deleted)
	})

	t.Run("forbidden", func(t *testing.T) {
		m := newMocks()
		m.theses.MockWithdraw = func(domain.Actor, domain.ThesisId) (int64, error) {
			return 0, errors.Forbidden("not the owner")
		}
		_, router := setupTestHandler(m, actor)
		rr := serve(router, createRequest(t, http.MethodDelete, "/v1/theses/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestCommitVersion(t *testing.T) {
	actor := domain.NewActor(uuid.New())

	t.Run("success", func(t *testing.T) {
		m := newMocks()
		thesisId, versionId := uuid.New(), uuid.New()
		source := uuid.New()
		body := api.CommitVersionRequest{FileId: uuid.New(), SourceId: &source}
		m.versions.MockCommit = func(_ domain.Actor, got domain.ThesisId, files domain.FileRefs) (domain.VersionId, error) {
			assert.Equal(t, thesisId, got)
			assert.Equal(t, body.FileId, files.FileId)
			require.NotNil(t, files.SourceId)
			assert.Equal(t, source, *files.SourceId)
			return versionId, nil
		}
		_, router := setupTestHandler(m, actor)

		rr := serve(router, createRequest(t, http.MethodPost, "/v1/theses/"+thesisId.String()+"/commit", mustJSON(t, body)))

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp api.CreatedResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, versionId.String(), resp.Id)
	})

	t.Run("conflict", func(t *testing.T) {
		m := newMocks()
		m.versions.MockCommit = func(domain.Actor, domain.ThesisId, domain.FileRefs) (domain.VersionId, error) {
			return uuid.Nil, errors.Conflict("version number taken")
		}
		_, router := setupTestHandler(m, actor)
		body := api.CommitVersionRequest{FileId: uuid.New()}
		rr := serve(router, createRequest(t, http.MethodPost, "/v1/theses/"+uuid.NewString()+"/commit", mustJSON(t, body)))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestThesisVersions(t *testing.T) {
	m := newMocks()
	m.theses.MockVersions = func(domain.Actor, domain.ThesisId) ([]domain.Version, error) {
		return []domain.Version{
			{Id: uuid.New(), State: domain.StateHistory},
			{Id: uuid.New(), MajorNum: 1, State: domain.StateAccepted},
		}, nil
	}
	_, router := setupTestHandler(m, domain.Anonymous)

	rr := serve(router, createRequest(t, http.MethodGet, "/v1/theses/"+uuid.NewString()+"/versions", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "History", resp[0]["state_label"])
	assert.Equal(t, "Passed(true)", resp[1]["state_label"])
}
