package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
)

type MockThesisService struct {
	MockCreate   func(actor domain.Actor, meta domain.ThesisMetadata) (domain.ThesisId, error)
	MockGet      func(actor domain.Actor, id domain.ThesisId) (domain.Thesis, error)
	MockList     func(actor domain.Actor, filter domain.ThesisFilter) ([]domain.Thesis, int64, error)
	MockUpdate   func(actor domain.Actor, id domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error)
	MockWithdraw func(actor domain.Actor, id domain.ThesisId) (int64, error)
	MockVersions func(actor domain.Actor, id domain.ThesisId) ([]domain.Version, error)
}

func (m *MockThesisService) Create(ctx context.Context, actor domain.Actor, meta domain.ThesisMetadata) (domain.ThesisId, error) {
	if m.MockCreate != nil {
		return m.MockCreate(actor, meta)
	}
	return uuid.New(), nil
}

func (m *MockThesisService) Get(ctx context.Context, actor domain.Actor, id domain.ThesisId) (domain.Thesis, error) {
	if m.MockGet != nil {
		return m.MockGet(actor, id)
	}
	return domain.Thesis{Id: id}, nil
}

func (m *MockThesisService) List(ctx context.Context, actor domain.Actor, filter domain.ThesisFilter) ([]domain.Thesis, int64, error) {
	if m.MockList != nil {
		return m.MockList(actor, filter)
	}
	return nil, 0, nil
}

func (m *MockThesisService) Update(ctx context.Context, actor domain.Actor, id domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error) {
	if m.MockUpdate != nil {
		return m.MockUpdate(actor, id, meta)
	}
	return domain.Thesis{Id: id, ThesisMetadata: meta}, nil
}

func (m *MockThesisService) Withdraw(ctx context.Context, actor domain.Actor, id domain.ThesisId) (int64, error) {
	if m.MockWithdraw != nil {
		return m.MockWithdraw(actor, id)
	}
	return 1, nil
}

func (m *MockThesisService) Versions(ctx context.Context, actor domain.Actor, id domain.ThesisId) ([]domain.Version, error) {
	if m.MockVersions != nil {
		return m.MockVersions(actor, id)
	}
	return nil, nil
}

type MockVersionService struct {
	MockCommit       func(actor domain.Actor, thesisId domain.ThesisId, files domain.FileRefs) (domain.VersionId, error)
	MockGet          func(actor domain.Actor, id domain.VersionId) (domain.Version, error)
	MockEdit         func(actor domain.Actor, id domain.VersionId, rs domain.ReviewState) (domain.Version, error)
	MockSubmitReview func(actor domain.Actor, id domain.VersionId, judgement bool, criticism string) (domain.ReviewId, error)
	MockAdjudge      func(actor domain.Actor, id domain.VersionId, judgement bool) (domain.Version, error)
	MockComment      func(actor domain.Actor, id domain.VersionId, content string) (domain.CommentId, error)
	MockComments     func(actor domain.Actor, id domain.VersionId) ([]domain.Comment, error)
	MockDownload     func(actor domain.Actor, id domain.VersionId) (domain.FileRefs, error)
	MockWithdraw     func(actor domain.Actor, id domain.VersionId) (int64, error)
	MockReviews      func(actor domain.Actor, id domain.VersionId) ([]domain.Review, error)
}

func (m *MockVersionService) Commit(ctx context.Context, actor domain.Actor, thesisId domain.ThesisId, files domain.FileRefs) (domain.VersionId, error) {
	if m.MockCommit != nil {
		return m.MockCommit(actor, thesisId, files)
	}
	return uuid.New(), nil
}

func (m *MockVersionService) Get(ctx context.Context, actor domain.Actor, id domain.VersionId) (domain.Version, error) {
	if m.MockGet != nil {
		return m.MockGet(actor, id)
	}
	return domain.Version{Id: id, State: domain.StateUploaded}, nil
}

func (m *MockVersionService) Edit(ctx context.Context, actor domain.Actor, id domain.VersionId, rs domain.ReviewState) (domain.Version, error) {
	if m.MockEdit != nil {
		return m.MockEdit(actor, id, rs)
	}
	return domain.Version{Id: id, State: domain.StateReviewing, ReviewState: rs}, nil
}

func (m *MockVersionService) SubmitReview(ctx context.Context, actor domain.Actor, id domain.VersionId, judgement bool, criticism domain.CriticismText) (domain.ReviewId, error) {
	if m.MockSubmitReview != nil {
		return m.MockSubmitReview(actor, id, judgement, criticism)
	}
	return uuid.New(), nil
}

func (m *MockVersionService) Adjudge(ctx context.Context, actor domain.Actor, id domain.VersionId, judgement bool) (domain.Version, error) {
	if m.MockAdjudge != nil {
		return m.MockAdjudge(actor, id, judgement)
	}
	return domain.Version{Id: id, State: domain.StatePassed(judgement)}, nil
}

func (m *MockVersionService) Comment(ctx context.Context, actor domain.Actor, id domain.VersionId, content domain.CommentText) (domain.CommentId, error) {
	if m.MockComment != nil {
		return m.MockComment(actor, id, content)
	}
	return uuid.New(), nil
}

func (m *MockVersionService) Comments(ctx context.Context, actor domain.Actor, id domain.VersionId) ([]domain.Comment, error) {
	if m.MockComments != nil {
		return m.MockComments(actor, id)
	}
	return nil, nil
}

func (m *MockVersionService) Download(ctx context.Context, actor domain.Actor, id domain.VersionId) (domain.FileRefs, error) {
	if m.MockDownload != nil {
		return m.MockDownload(actor, id)
	}
	return domain.FileRefs{FileId: uuid.New()}, nil
}

func (m *MockVersionService) Withdraw(ctx context.Context, actor domain.Actor, id domain.VersionId) (int64, error) {
	if m.MockWithdraw != nil {
		return m.MockWithdraw(actor, id)
	}
	return 1, nil
}

func (m *MockVersionService) Reviews(ctx context.Context, actor domain.Actor, id domain.VersionId) ([]domain.Review, error) {
	if m.MockReviews != nil {
		return m.MockReviews(actor, id)
	}
	return nil, nil
}

type MockReviewService struct {
	MockGet func(actor domain.Actor, id domain.ReviewId) (domain.Review, error)
}

func (m *MockReviewService) Get(ctx context.Context, actor domain.Actor, id domain.ReviewId) (domain.Review, error) {
	if m.MockGet != nil {
		return m.MockGet(actor, id)
	}
	return domain.Review{Id: id}, nil
}

type MockCommentService struct {
	MockGet      func(actor domain.Actor, id domain.CommentId) (domain.Comment, error)
	MockReply    func(actor domain.Actor, id domain.CommentId, content string) (domain.CommentId, error)
	MockReplies  func(actor domain.Actor, id domain.CommentId) ([]domain.Comment, error)
	MockWithdraw func(actor domain.Actor, id domain.CommentId) (int64, error)
}

func (m *MockCommentService) Get(ctx context.Context, actor domain.Actor, id domain.CommentId) (domain.Comment, error) {
	if m.MockGet != nil {
		return m.MockGet(actor, id)
	}
	return domain.Comment{Id: id}, nil
}

func (m *MockCommentService) Reply(ctx context.Context, actor domain.Actor, id domain.CommentId, content domain.CommentText) (domain.CommentId, error) {
	if m.MockReply != nil {
		return m.MockReply(actor, id, content)
	}
	return uuid.New(), nil
}

func (m *MockCommentService) Replies(ctx context.Context, actor domain.Actor, id domain.CommentId) ([]domain.Comment, error) {
	if m.MockReplies != nil {
		return m.MockReplies(actor, id)
	}
	return nil, nil
}

func (m *MockCommentService) Withdraw(ctx context.Context, actor domain.Actor, id domain.CommentId) (int64, error) {
	if m.MockWithdraw != nil {
		return m.MockWithdraw(actor, id)
	}
	return 1, nil
}

type MockHealthChecker struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}
