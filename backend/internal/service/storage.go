package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
)

// Every conditional update below re-checks its precondition inside the store.
// When nothing matches the store reports Conflict if the document exists and
// NotFound otherwise.

type ThesisStorage interface {
	CreateThesis(ctx context.Context, thesis domain.Thesis) error
	GetThesis(ctx context.Context, id domain.ThesisId) (domain.Thesis, error)
	// ListPassedTheses returns one page of passed theses, newest first, and the total match count.
	ListPassedTheses(ctx context.Context, filter domain.ThesisFilter) ([]domain.Thesis, int64, error)
	UpdateThesisMetadata(ctx context.Context, id domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error)
	MarkThesisPassed(ctx context.Context, id domain.ThesisId) error
	DeleteThesis(ctx context.Context, id domain.ThesisId) (int64, error)
}

type VersionStorage interface {
	// CreateVersion fails with Conflict when (thesis_id, major_num, minor_num) is taken.
	CreateVersion(ctx context.Context, version domain.Version) error
	GetVersion(ctx context.Context, id domain.VersionId) (domain.Version, error)
	// LatestVersion is the version with the highest (major, minor), nil when the thesis has none.
	LatestVersion(ctx context.Context, thesisId domain.ThesisId) (*domain.Version, error)
	// VersionsOfThesis is ordered by (major, minor).
	VersionsOfThesis(ctx context.Context, thesisId domain.ThesisId) ([]domain.Version, error)
	// OpenReview moves an Uploaded version to Reviewing and sets its review state.
	OpenReview(ctx context.Context, id domain.VersionId, rs domain.ReviewState) (domain.Version, error)
	// PullReviewer removes reviewer from the pool of a Reviewing version that still awaits them
	// and returns the document as it is after the pull.
	PullReviewer(ctx context.Context, id domain.VersionId, reviewer domain.UserId) (domain.Version, error)
	// TransitionVersion sets state to `to` if the current state is one of `from`.
	// With promote the version number becomes (major+1, 0) in the same update.
	TransitionVersion(ctx context.Context, id domain.VersionId, from []domain.VersionState, to domain.VersionState, promote bool) (domain.Version, error)
	// SupersedeVersions moves every version of the thesis with the given major to History.
	SupersedeVersions(ctx context.Context, thesisId domain.ThesisId, major int) (int64, error)
	// AcceptedVersions lists every Passed(true) version.
	AcceptedVersions(ctx context.Context) ([]domain.Version, error)
	// StalledRounds lists Reviewing versions under the Reviewer pattern whose pool is empty.
	StalledRounds(ctx context.Context) ([]domain.Version, error)
	RecordDownload(ctx context.Context, id domain.VersionId) (domain.Version, error)
	DeleteVersion(ctx context.Context, id domain.VersionId) (int64, error)
}

type ReviewStorage interface {
	// CreateReview fails with Conflict when the reviewer already reviewed the version.
	CreateReview(ctx context.Context, review domain.Review) error
	GetReview(ctx context.Context, id domain.ReviewId) (domain.Review, error)
	ReviewsOfVersion(ctx context.Context, versionId domain.VersionId) ([]domain.Review, error)
	DeleteReview(ctx context.Context, id domain.ReviewId) (int64, error)
	DeleteReviewsOfVersion(ctx context.Context, versionId domain.VersionId) (int64, error)
}

type CommentStorage interface {
	CreateComment(ctx context.Context, comment domain.Comment) error
	GetComment(ctx context.Context, id domain.CommentId) (domain.Comment, error)
	// CommentsOf is ordered by posting time.
	CommentsOf(ctx context.Context, targetType domain.CommentTargetType, targetId uuid.UUID) ([]domain.Comment, error)
	DeleteComment(ctx context.Context, id domain.CommentId) (int64, error)
}

// OrphanStorage finds documents whose parent is gone.
type OrphanStorage interface {
	OrphanVersions(ctx context.Context) ([]domain.VersionId, error)
	OrphanReviews(ctx context.Context) ([]domain.ReviewId, error)
	OrphanComments(ctx context.Context) ([]domain.CommentId, error)
}

// Storage is everything a backend provides.
type Storage interface {
	ThesisStorage
	VersionStorage
	ReviewStorage
	CommentStorage
	OrphanStorage
	Ping(ctx context.Context) error
	Close() error
}
