package service

import (
	"context"

	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
)

type ReviewService interface {
	Get(ctx context.Context, actor domain.Actor, id domain.ReviewId) (domain.Review, error)
}

type ReviewDependencies interface {
	GetReview(ctx context.Context, id domain.ReviewId) (domain.Review, error)
	GetVersion(ctx context.Context, id domain.VersionId) (domain.Version, error)
	GetThesis(ctx context.Context, id domain.ThesisId) (domain.Thesis, error)
}

type Review struct {
	storage ReviewDependencies
	policy  Policy
}

func NewReview(storage ReviewDependencies) *Review {
	return &Review{storage: storage}
}

func (s *Review) Get(ctx context.Context, actor domain.Actor, id domain.ReviewId) (domain.Review, error) {
	review, err := s.storage.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	version, err := s.storage.GetVersion(ctx, review.VersionId)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.Review{}, errors.NotFound("review %s not found", id)
		}
		return domain.Review{}, err
	}
	thesis, err := s.storage.GetThesis(ctx, version.ThesisId)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.Review{}, errors.NotFound("review %s not found", id)
		}
		return domain.Review{}, err
	}
	if !s.policy.CanViewReview(actor, &thesis, &version, &review) {
		return domain.Review{}, errors.Forbidden("review %s is not visible", id)
	}
	return review, nil
}
