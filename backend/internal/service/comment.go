package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
	"github.com/itchan-dev/prepublish/shared/logger"
)

type CommentService interface {
	Get(ctx context.Context, actor domain.Actor, id domain.CommentId) (domain.Comment, error)
	Reply(ctx context.Context, actor domain.Actor, id domain.CommentId, content domain.CommentText) (domain.CommentId, error)
	Replies(ctx context.Context, actor domain.Actor, id domain.CommentId) ([]domain.Comment, error)
	Withdraw(ctx context.Context, actor domain.Actor, id domain.CommentId) (int64, error)
}

type CommentDependencies interface {
	CreateComment(ctx context.Context, comment domain.Comment) error
	GetComment(ctx context.Context, id domain.CommentId) (domain.Comment, error)
	CommentsOf(ctx context.Context, targetType domain.CommentTargetType, targetId uuid.UUID) ([]domain.Comment, error)
}

// Comments only exist under accepted versions, which are public, so reading needs no policy check.
type Comment struct {
	storage  CommentDependencies
	withdraw *Withdrawer
}

func NewComment(storage CommentDependencies, withdraw *Withdrawer) *Comment {
	return &Comment{storage: storage, withdraw: withdraw}
}

func (s *Comment) Get(ctx context.Context, actor domain.Actor, id domain.CommentId) (domain.Comment, error) {
	return s.storage.GetComment(ctx, id)
}

func (s *Comment) Reply(ctx context.Context, actor domain.Actor, id domain.CommentId, content domain.CommentText) (domain.CommentId, error) {
	if actor.IsAnonymous() {
		return domain.CommentId{}, errors.Forbidden("sign in to reply")
	}
	if strings.TrimSpace(content) == "" {
		return domain.CommentId{}, errors.BadRequest("reply is empty")
	}
	if _, err := s.storage.GetComment(ctx, id); err != nil {
		return domain.CommentId{}, err
	}

	poster := actor.Id
	reply := domain.Comment{
		Id:         domain.NewId(),
		PosterId:   &poster,
		PostedAt:   time.Now().UTC(),
		TargetType: domain.TargetComment,
		TargetId:   id,
		Content:    content,
	}
	if err := s.storage.CreateComment(ctx, reply); err != nil {
		return domain.CommentId{}, err
	}
	return reply.Id, nil
}

func (s *Comment) Replies(ctx context.Context, actor domain.Actor, id domain.CommentId) ([]domain.Comment, error) {
	if _, err := s.storage.GetComment(ctx, id); err != nil {
		return nil, err
	}
	return s.storage.CommentsOf(ctx, domain.TargetComment, id)
}

// Withdraw removes the comment and its whole reply tree. Poster or moderator only.
func (s *Comment) Withdraw(ctx context.Context, actor domain.Actor, id domain.CommentId) (int64, error) {
	comment, err := s.storage.GetComment(ctx, id)
	if err != nil {
		return 0, err
	}
	if !actor.Permitted(domain.CapModerating) && (actor.IsAnonymous() || !comment.PostedBy(actor.Id)) {
		return 0, errors.Forbidden("only the poster or a moderator may withdraw comment %s", id)
	}
	n, err := s.withdraw.Comment(ctx, id)
	if err != nil {
		return n, err
	}
	logger.Component("comment").Info("comment withdrawn", "comment_id", id, "actor_id", actor.Id)
	return n, nil
}
