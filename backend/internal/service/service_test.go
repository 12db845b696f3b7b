package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/backend/internal/storage/kv"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockStorage runs on the in-memory store and lets a test replace single
// methods to inject failures.
type MockStorage struct {
	*kv.Storage

	supersedeVersionsFunc func(ctx context.Context, thesisId domain.ThesisId, major int) (int64, error)
	markThesisPassedFunc  func(ctx context.Context, id domain.ThesisId) error
	deleteCommentFunc     func(ctx context.Context, id domain.CommentId) (int64, error)
	pullReviewerFunc      func(ctx context.Context, id domain.VersionId, reviewer domain.UserId) (domain.Version, error)
	reviewsOfVersionFunc  func(ctx context.Context, versionId domain.VersionId) ([]domain.Review, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockStorage) track(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func (m *MockStorage) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockStorage) SupersedeVersions(ctx context.Context, thesisId domain.ThesisId, major int) (int64, error) {
	m.track("SupersedeVersions")
	if m.supersedeVersionsFunc != nil {
		return m.supersedeVersionsFunc(ctx, thesisId, major)
	}
	return m.Storage.SupersedeVersions(ctx, thesisId, major)
}

func (m *MockStorage) MarkThesisPassed(ctx context.Context, id domain.ThesisId) error {
	m.track("MarkThesisPassed")
	if m.markThesisPassedFunc != nil {
		return m.markThesisPassedFunc(ctx, id)
	}
	return m.Storage.MarkThesisPassed(ctx, id)
}

func (m *MockStorage) DeleteComment(ctx context.Context, id domain.CommentId) (int64, error) {
	m.track("DeleteComment")
	if m.deleteCommentFunc != nil {
		return m.deleteCommentFunc(ctx, id)
	}
	return m.Storage.DeleteComment(ctx, id)
}

func (m *MockStorage) PullReviewer(ctx context.Context, id domain.VersionId, reviewer domain.UserId) (domain.Version, error) {
	m.track("PullReviewer")
	if m.pullReviewerFunc != nil {
		return m.pullReviewerFunc(ctx, id, reviewer)
	}
	return m.Storage.PullReviewer(ctx, id, reviewer)
}

func (m *MockStorage) ReviewsOfVersion(ctx context.Context, versionId domain.VersionId) ([]domain.Review, error) {
	m.track("ReviewsOfVersion")
	if m.reviewsOfVersionFunc != nil {
		return m.reviewsOfVersionFunc(ctx, versionId)
	}
	return m.Storage.ReviewsOfVersion(ctx, versionId)
}

func (m *MockStorage) DeleteReview(ctx context.Context, id domain.ReviewId) (int64, error) {
	m.track("DeleteReview")
	return m.Storage.DeleteReview(ctx, id)
}

// --- Helpers ---

type fixture struct {
	ctx      context.Context
	storage  *MockStorage
	withdraw *Withdrawer
	theses   *Thesis
	versions *Version
	reviews  *Review
	comments *Comment

	owner     domain.Actor
	coauthor  domain.Actor
	editor    domain.Actor
	editor2   domain.Actor
	moderator domain.Actor
	stranger  domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := kv.New(kv.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	storage := &MockStorage{Storage: store}
	withdraw := NewWithdrawer(storage)
	return &fixture{
		ctx:       context.Background(),
		storage:   storage,
		withdraw:  withdraw,
		theses:    NewThesis(storage, withdraw, 20),
		versions:  NewVersion(storage, withdraw),
		reviews:   NewReview(storage),
		comments:  NewComment(storage, withdraw),
		owner:     domain.NewActor(uuid.New()),
		coauthor:  domain.NewActor(uuid.New()),
		editor:    domain.NewActor(uuid.New(), domain.CapPublishing),
		editor2:   domain.NewActor(uuid.New(), domain.CapPublishing),
		moderator: domain.NewActor(uuid.New(), domain.CapModerating),
		stranger:  domain.NewActor(uuid.New()),
	}
}

func (f *fixture) metadata() domain.ThesisMetadata {
	return domain.ThesisMetadata{
		AuthorIds:   []domain.UserId{f.owner.Id, f.coauthor.Id},
		Title:       "Consistency without transactions",
		Abstraction: "We study *forward-only* repair.",
		Keywords:    []string{"databases"},
		Languages:   []string{"en"},
	}
}

func (f *fixture) createThesis(t *testing.T) domain.ThesisId {
	t.Helper()
	id, err := f.theses.Create(f.ctx, f.owner, f.metadata())
	require.NoError(t, err)
	return id
}

func (f *fixture) commit(t *testing.T, thesisId domain.ThesisId) domain.VersionId {
	t.Helper()
	id, err := f.versions.Commit(f.ctx, f.owner, thesisId, domain.FileRefs{FileId: uuid.New()})
	require.NoError(t, err)
	return id
}

func (f *fixture) reviewers(n int) []domain.Actor {
	out := make([]domain.Actor, n)
	for i := range out {
		out[i] = domain.NewActor(uuid.New())
	}
	return out
}

func ids(actors []domain.Actor) []domain.UserId {
	out := make([]domain.UserId, len(actors))
	for i, a := range actors {
		out[i] = a.Id
	}
	return out
}

// openReview commits nothing; it moves an Uploaded version into a Reviewer-pattern round.
func (f *fixture) openReview(t *testing.T, versionId domain.VersionId, pool []domain.Actor) {
	t.Helper()
	_, err := f.versions.Edit(f.ctx, f.editor, versionId, domain.ReviewState{
		RemainderReviewerIds: ids(pool),
		Pattern:              domain.ReviewerPattern(),
	})
	require.NoError(t, err)
}

func (f *fixture) version(t *testing.T, id domain.VersionId) domain.Version {
	t.Helper()
	v, err := f.storage.GetVersion(f.ctx, id)
	require.NoError(t, err)
	return v
}

// accepted commits a version and has the editor accept it, promoting it to the next major.
func (f *fixture) accepted(t *testing.T, thesisId domain.ThesisId) domain.Version {
	t.Helper()
	v, err := f.versions.Adjudge(f.ctx, f.editor, f.commit(t, thesisId), true)
	require.NoError(t, err)
	return v
}

// replyChain posts a comment on the version and n nested replies below it.
// The returned slice starts with the top-level comment.
func (f *fixture) replyChain(t *testing.T, versionId domain.VersionId, n int) []domain.CommentId {
	t.Helper()
	top, err := f.versions.Comment(f.ctx, f.stranger, versionId, "first")
	require.NoError(t, err)
	chain := []domain.CommentId{top}
	for i := 0; i < n; i++ {
		reply, err := f.comments.Reply(f.ctx, f.coauthor, chain[len(chain)-1], "re")
		require.NoError(t, err)
		chain = append(chain, reply)
	}
	return chain
}

func requireStatus(t *testing.T, code int, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, errors.StatusCode(err), "unexpected error: %v", err)
}
