package kv

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
)

func getComment(txn *badger.Txn, id domain.CommentId) (domain.Comment, error) {
	var c domain.Comment
	err := getJSON(txn, docKey(commentPrefix, id), &c)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return c, internal_errors.NotFound("comment %s not found", id)
	}
	return c, err
}

func (s *Storage) CreateComment(ctx context.Context, comment domain.Comment) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, docKey(commentPrefix, comment.Id), comment); err != nil {
			return err
		}
		return txn.Set(commentIndexKey(string(comment.TargetType), comment.TargetId, comment.Id), nil)
	})
}

func (s *Storage) GetComment(ctx context.Context, id domain.CommentId) (domain.Comment, error) {
	var c domain.Comment
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		c, err = getComment(txn, id)
		return err
	})
	return c, err
}

func (s *Storage) CommentsOf(ctx context.Context, targetType domain.CommentTargetType, targetId uuid.UUID) ([]domain.Comment, error) {
	var out []domain.Comment
	err := s.view(ctx, func(txn *badger.Txn) error {
		ids, err := indexIds(txn, commentIndexPrefix(string(targetType), targetId))
		if err != nil {
			return err
		}
		out = make([]domain.Comment, 0, len(ids))
		for _, id := range ids {
			c, err := getComment(txn, id)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].PostedAt.Before(out[j].PostedAt) })
	return out, err
}

// DeleteComment removes one comment; replies are the caller's business.
func (s *Storage) DeleteComment(ctx context.Context, id domain.CommentId) (int64, error) {
	var n int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		n = 0
		c, err := getComment(txn, id)
		if internal_errors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(commentIndexKey(string(c.TargetType), c.TargetId, id)); err != nil {
			return err
		}
		n = 1
		return txn.Delete(docKey(commentPrefix, id))
	})
	return n, err
}
