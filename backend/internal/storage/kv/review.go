package kv

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
)

func getReview(txn *badger.Txn, id domain.ReviewId) (domain.Review, error) {
	var r domain.Review
	err := getJSON(txn, docKey(reviewPrefix, id), &r)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return r, internal_errors.NotFound("review %s not found", id)
	}
	return r, err
}

func (s *Storage) CreateReview(ctx context.Context, review domain.Review) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if review.ReviewerId != nil {
			key := reviewerKey(review.VersionId, *review.ReviewerId)
			taken, err := exists(txn, key)
			if err != nil {
				return err
			}
			if taken {
				return internal_errors.Conflict("reviewer %s already reviewed version %s", *review.ReviewerId, review.VersionId)
			}
			if err := txn.Set(key, []byte(review.Id.String())); err != nil {
				return err
			}
		}
		if err := setJSON(txn, docKey(reviewPrefix, review.Id), review); err != nil {
			return err
		}
		return txn.Set(reviewIndexKey(review.VersionId, review.Id), nil)
	})
}

func (s *Storage) GetReview(ctx context.Context, id domain.ReviewId) (domain.Review, error) {
	var r domain.Review
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		r, err = getReview(txn, id)
		return err
	})
	return r, err
}

func (s *Storage) ReviewsOfVersion(ctx context.Context, versionId domain.VersionId) ([]domain.Review, error) {
	var out []domain.Review
	err := s.view(ctx, func(txn *badger.Txn) error {
		ids, err := indexIds(txn, reviewIndexPrefix(versionId))
		if err != nil {
			return err
		}
		out = make([]domain.Review, 0, len(ids))
		for _, id := range ids {
			r, err := getReview(txn, id)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReviewedAt.Before(out[j].ReviewedAt) })
	return out, err
}

func deleteReview(txn *badger.Txn, id domain.ReviewId) (bool, error) {
	r, err := getReview(txn, id)
	if internal_errors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.ReviewerId != nil {
		if err := txn.Delete(reviewerKey(r.VersionId, *r.ReviewerId)); err != nil {
			return false, err
		}
	}
	if err := txn.Delete(reviewIndexKey(r.VersionId, id)); err != nil {
		return false, err
	}
	return true, txn.Delete(docKey(reviewPrefix, id))
}

func (s *Storage) DeleteReview(ctx context.Context, id domain.ReviewId) (int64, error) {
	var n int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		n = 0
		deleted, err := deleteReview(txn, id)
		if deleted {
			n = 1
		}
		return err
	})
	return n, err
}

func (s *Storage) DeleteReviewsOfVersion(ctx context.Context, versionId domain.VersionId) (int64, error) {
	var n int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		n = 0
		ids, err := indexIds(txn, reviewIndexPrefix(versionId))
		if err != nil {
			return err
		}
		for _, id := range ids {
			deleted, err := deleteReview(txn, id)
			if err != nil {
				return err
			}
			if deleted {
				n++
			}
		}
		return nil
	})
	return n, err
}
