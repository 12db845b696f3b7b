package pg

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/stretchr/testify/require"
)

func newThesis(t *testing.T, keyword string) domain.Thesis {
	t.Helper()
	doi := "10.1000/" + uuid.NewString()[:8]
	thesis := domain.Thesis{
		Id:        domain.NewId(),
		OwnerId:   uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		ThesisMetadata: domain.ThesisMetadata{
			AuthorIds:   []domain.UserId{uuid.New(), uuid.New()},
			Doi:         &doi,
			Title:       "On " + keyword,
			Abstraction: "abstract",
			Keywords:    []string{keyword, "Shared"},
			Languages:   []string{"en"},
		},
	}
	require.NoError(t, storage.CreateThesis(context.Background(), thesis))
	return thesis
}

func newVersion(t *testing.T, thesisId domain.ThesisId, major, minor int) domain.Version {
	t.Helper()
	uploader := uuid.New()
	v := domain.Version{
		Id:          domain.NewId(),
		ThesisId:    thesisId,
		UploadedAt:  time.Now().UTC().Truncate(time.Microsecond),
		UploaderId:  &uploader,
		MajorNum:    major,
		MinorNum:    minor,
		State:       domain.StateUploaded,
		ReviewState: domain.ReviewState{RemainderReviewerIds: []domain.UserId{}, Pattern: domain.ReviewerPattern()},
		FileRefs:    domain.FileRefs{FileId: uuid.New()},
	}
	require.NoError(t, storage.CreateVersion(context.Background(), v))
	return v
}

func newComment(t *testing.T, targetType domain.CommentTargetType, targetId uuid.UUID) domain.Comment {
	t.Helper()
	poster := uuid.New()
	c := domain.Comment{
		Id:         domain.NewId(),
		PosterId:   &poster,
		PostedAt:   time.Now().UTC().Truncate(time.Microsecond),
		TargetType: targetType,
		TargetId:   targetId,
		Content:    "comment",
	}
	require.NoError(t, storage.CreateComment(context.Background(), c))
	return c
}
