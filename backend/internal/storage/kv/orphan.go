package kv

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
)

// The orphan scans read one consistent snapshot.

func (s *Storage) OrphanVersions(ctx context.Context) ([]domain.VersionId, error) {
	var out []domain.VersionId
	err := s.view(ctx, func(txn *badger.Txn) error {
		versions, err := scanDocs[domain.Version](txn, versionPrefix)
		if err != nil {
			return err
		}
		out = out[:0]
		for _, v := range versions {
			found, err := exists(txn, docKey(thesisPrefix, v.ThesisId))
			if err != nil {
				return err
			}
			if !found {
				out = append(out, v.Id)
			}
		}
		return nil
	})
	return out, err
}

func (s *Storage) OrphanReviews(ctx context.Context) ([]domain.ReviewId, error) {
	var out []domain.ReviewId
	err := s.view(ctx, func(txn *badger.Txn) error {
		reviews, err := scanDocs[domain.Review](txn, reviewPrefix)
		if err != nil {
			return err
		}
		out = out[:0]
		for _, r := range reviews {
			found, err := exists(txn, docKey(versionPrefix, r.VersionId))
			if err != nil {
				return err
			}
			if !found {
				out = append(out, r.Id)
			}
		}
		return nil
	})
	return out, err
}

func (s *Storage) OrphanComments(ctx context.Context) ([]domain.CommentId, error) {
	var out []domain.CommentId
	err := s.view(ctx, func(txn *badger.Txn) error {
		comments, err := scanDocs[domain.Comment](txn, commentPrefix)
		if err != nil {
			return err
		}
		out = out[:0]
		for _, c := range comments {
			found, err := exists(txn, targetKey(c.TargetType, c.TargetId))
			if err != nil {
				return err
			}
			if !found {
				out = append(out, c.Id)
			}
		}
		return nil
	})
	return out, err
}

func targetKey(t domain.CommentTargetType, id uuid.UUID) []byte {
	if t == domain.TargetComment {
		return docKey(commentPrefix, id)
	}
	return docKey(versionPrefix, id)
}
