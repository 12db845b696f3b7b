package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/logger"
)

// WithdrawStorage is what the cascade needs to enumerate and delete dependents.
type WithdrawStorage interface {
	DeleteThesis(ctx context.Context, id domain.ThesisId) (int64, error)
	VersionsOfThesis(ctx context.Context, thesisId domain.ThesisId) ([]domain.Version, error)
	DeleteVersion(ctx context.Context, id domain.VersionId) (int64, error)
	DeleteReview(ctx context.Context, id domain.ReviewId) (int64, error)
	DeleteReviewsOfVersion(ctx context.Context, versionId domain.VersionId) (int64, error)
	CommentsOf(ctx context.Context, targetType domain.CommentTargetType, targetId uuid.UUID) ([]domain.Comment, error)
	DeleteComment(ctx context.Context, id domain.CommentId) (int64, error)
}

type entityKind string

const (
	kindThesis  entityKind = "thesis"
	kindVersion entityKind = "version"
	kindReview  entityKind = "review"
	kindComment entityKind = "comment"
)

type workItem struct {
	kind entityKind
	id   uuid.UUID
	// children already pushed; the next visit deletes the item itself
	expanded bool
}

// Withdrawer deletes an entity after everything it transitively owns.
// The walk uses an explicit stack and removes dependents before their parent.
// It is not transactional: an error stops the walk and leaves what was
// already deleted deleted. OrphanCollector cleans up the rest.
type Withdrawer struct {
	storage WithdrawStorage
}

// WithdrawStats counts what one cascade removed.
type WithdrawStats struct {
	Theses   int64
	Versions int64
	Reviews  int64
	Comments int64
}

func (s WithdrawStats) Total() int64 {
	return s.Theses + s.Versions + s.Reviews + s.Comments
}

func NewWithdrawer(storage WithdrawStorage) *Withdrawer {
	return &Withdrawer{storage: storage}
}

// Thesis withdraws every version, then the thesis. Returns the number of
// root documents deleted (0 if it was already gone).
func (w *Withdrawer) Thesis(ctx context.Context, id domain.ThesisId) (int64, error) {
	return w.run(ctx, workItem{kind: kindThesis, id: id})
}

// Version deletes its reviews, withdraws its comment trees, then deletes itself.
func (w *Withdrawer) Version(ctx context.Context, id domain.VersionId) (int64, error) {
	return w.run(ctx, workItem{kind: kindVersion, id: id})
}

// Comment withdraws every reply depth-first, then the comment.
func (w *Withdrawer) Comment(ctx context.Context, id domain.CommentId) (int64, error) {
	return w.run(ctx, workItem{kind: kindComment, id: id})
}

// Review deletes a single review. Reviews own nothing.
func (w *Withdrawer) Review(ctx context.Context, id domain.ReviewId) (int64, error) {
	return w.run(ctx, workItem{kind: kindReview, id: id})
}

func (w *Withdrawer) run(ctx context.Context, root workItem) (int64, error) {
	log := logger.Component("withdraw")
	var stats WithdrawStats
	var rootDeleted int64

	stack := []workItem{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return rootDeleted, err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !item.expanded {
			children, err := w.children(ctx, item, &stats)
			if err != nil {
				log.Error("cascade interrupted", "root_kind", root.kind, "root_id", root.id,
					"kind", item.kind, "id", item.id, "deleted_so_far", stats.Total(), "error", err)
				return rootDeleted, err
			}
			item.expanded = true
			stack = append(stack, item)
			// reversed so the first child is processed first
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
			continue
		}

		n, err := w.delete(ctx, item)
		if err != nil {
			log.Error("cascade interrupted", "root_kind", root.kind, "root_id", root.id,
				"kind", item.kind, "id", item.id, "deleted_so_far", stats.Total(), "error", err)
			return rootDeleted, err
		}
		stats.add(item.kind, n)
		if len(stack) == 0 {
			rootDeleted = n
		}
	}

	for kind, n := range map[entityKind]int64{
		kindThesis: stats.Theses, kindVersion: stats.Versions, kindReview: stats.Reviews, kindComment: stats.Comments,
	} {
		if n > 0 {
			withdrawnTotal.WithLabelValues(string(kind)).Add(float64(n))
		}
	}
	log.Debug("cascade finished", "root_kind", root.kind, "root_id", root.id,
		"theses", stats.Theses, "versions", stats.Versions, "reviews", stats.Reviews, "comments", stats.Comments)
	return rootDeleted, nil
}

// children returns the dependents to withdraw before item. Reviews of a
// version are leaves and are removed here in one call.
func (w *Withdrawer) children(ctx context.Context, item workItem, stats *WithdrawStats) ([]workItem, error) {
	switch item.kind {
	case kindThesis:
		versions, err := w.storage.VersionsOfThesis(ctx, item.id)
		if err != nil {
			return nil, err
		}
		out := make([]workItem, 0, len(versions))
		for _, v := range versions {
			out = append(out, workItem{kind: kindVersion, id: v.Id})
		}
		return out, nil
	case kindVersion:
		n, err := w.storage.DeleteReviewsOfVersion(ctx, item.id)
		if err != nil {
			return nil, err
		}
		stats.Reviews += n
		return w.comments(ctx, domain.TargetVersion, item.id)
	case kindComment:
		return w.comments(ctx, domain.TargetComment, item.id)
	case kindReview:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", item.kind)
}

func (w *Withdrawer) comments(ctx context.Context, targetType domain.CommentTargetType, id uuid.UUID) ([]workItem, error) {
	comments, err := w.storage.CommentsOf(ctx, targetType, id)
	if err != nil {
		return nil, err
	}
	out := make([]workItem, 0, len(comments))
	for _, c := range comments {
		out = append(out, workItem{kind: kindComment, id: c.Id})
	}
	return out, nil
}

func (w *Withdrawer) delete(ctx context.Context, item workItem) (int64, error) {
	switch item.kind {
	case kindThesis:
		return w.storage.DeleteThesis(ctx, item.id)
	case kindVersion:
		return w.storage.DeleteVersion(ctx, item.id)
	case kindReview:
		return w.storage.DeleteReview(ctx, item.id)
	case kindComment:
		return w.storage.DeleteComment(ctx, item.id)
	}
	return 0, fmt.Errorf("unknown entity kind %q", item.kind)
}

func (s *WithdrawStats) add(kind entityKind, n int64) {
	switch kind {
	case kindThesis:
		s.Theses += n
	case kindVersion:
		s.Versions += n
	case kindReview:
		s.Reviews += n
	case kindComment:
		s.Comments += n
	}
}
