package service

import (
	"context"
	"strings"
	"time"

	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
	"github.com/itchan-dev/prepublish/shared/logger"
)

type ThesisService interface {
	Create(ctx context.Context, actor domain.Actor, meta domain.ThesisMetadata) (domain.ThesisId, error)
	Get(ctx context.Context, actor domain.Actor, id domain.ThesisId) (domain.Thesis, error)
	List(ctx context.Context, actor domain.Actor, filter domain.ThesisFilter) ([]domain.Thesis, int64, error)
	Update(ctx context.Context, actor domain.Actor, id domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error)
	Withdraw(ctx context.Context, actor domain.Actor, id domain.ThesisId) (int64, error)
	Versions(ctx context.Context, actor domain.Actor, id domain.ThesisId) ([]domain.Version, error)
}

type ThesisDependencies interface {
	ThesisStorage
	LatestVersion(ctx context.Context, thesisId domain.ThesisId) (*domain.Version, error)
	VersionsOfThesis(ctx context.Context, thesisId domain.ThesisId) ([]domain.Version, error)
}

type Thesis struct {
	storage   ThesisDependencies
	withdraw  *Withdrawer
	policy    Policy
	pageLimit int
}

func NewThesis(storage ThesisDependencies, withdraw *Withdrawer, pageLimit int) *Thesis {
	if pageLimit < 1 {
		pageLimit = 1
	}
	return &Thesis{storage: storage, withdraw: withdraw, pageLimit: pageLimit}
}

func validateMetadata(meta domain.ThesisMetadata) error {
	if strings.TrimSpace(meta.Title) == "" {
		return errors.BadRequest("title is required")
	}
	if len(meta.AuthorIds) == 0 {
		return errors.BadRequest("at least one author is required")
	}
	if len(meta.Languages) == 0 {
		return errors.BadRequest("at least one language is required")
	}
	return nil
}

func (s *Thesis) Create(ctx context.Context, actor domain.Actor, meta domain.ThesisMetadata) (domain.ThesisId, error) {
	if actor.IsAnonymous() {
		return domain.ThesisId{}, errors.Forbidden("sign in to submit a thesis")
	}
	if err := validateMetadata(meta); err != nil {
		return domain.ThesisId{}, err
	}

	thesis := domain.Thesis{
		Id:             domain.NewId(),
		OwnerId:        actor.Id,
		CreatedAt:      time.Now().UTC(),
		ThesisMetadata: meta,
	}
	if err := s.storage.CreateThesis(ctx, thesis); err != nil {
		return domain.ThesisId{}, err
	}
	logger.Component("thesis").Info("thesis created", "thesis_id", thesis.Id, "owner_id", actor.Id)
	return thesis.Id, nil
}

func (s *Thesis) Get(ctx context.Context, actor domain.Actor, id domain.ThesisId) (domain.Thesis, error) {
	thesis, err := s.storage.GetThesis(ctx, id)
	if err != nil {
		return domain.Thesis{}, err
	}
	latest, err := s.storage.LatestVersion(ctx, id)
	if err != nil {
		return domain.Thesis{}, err
	}
	if !s.policy.CanViewThesis(actor, &thesis, latest) {
		return domain.Thesis{}, errors.Forbidden("thesis %s is not public", id)
	}
	return thesis, nil
}

// List pages through passed theses. Limit is clamped to the configured page limit.
func (s *Thesis) List(ctx context.Context, actor domain.Actor, filter domain.ThesisFilter) ([]domain.Thesis, int64, error) {
	if filter.Offset < 0 {
		return nil, 0, errors.BadRequest("offset must be non-negative")
	}
	if filter.Limit <= 0 || filter.Limit > s.pageLimit {
		filter.Limit = s.pageLimit
	}
	return s.storage.ListPassedTheses(ctx, filter)
}

func (s *Thesis) Update(ctx context.Context, actor domain.Actor, id domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error) {
	thesis, err := s.storage.GetThesis(ctx, id)
	if err != nil {
		return domain.Thesis{}, err
	}
	if !s.policy.related(actor, &thesis) {
		return domain.Thesis{}, errors.Forbidden("only the owner, an author or an editor may edit thesis %s", id)
	}
	if err := validateMetadata(meta); err != nil {
		return domain.Thesis{}, err
	}
	return s.storage.UpdateThesisMetadata(ctx, id, meta)
}

// Withdraw: editors always; the owner only while no version of the thesis was ever accepted.
func (s *Thesis) Withdraw(ctx context.Context, actor domain.Actor, id domain.ThesisId) (int64, error) {
	thesis, err := s.storage.GetThesis(ctx, id)
	if err != nil {
		return 0, err
	}
	if !actor.IsEditor() {
		if actor.IsAnonymous() || thesis.OwnerId != actor.Id {
			return 0, errors.Forbidden("only the owner or an editor may withdraw thesis %s", id)
		}
		latest, err := s.storage.LatestVersion(ctx, id)
		if err != nil {
			return 0, err
		}
		if latest != nil && latest.MajorNum >= 1 {
			return 0, errors.Forbidden("thesis %s has been published, ask an editor", id)
		}
	}

	n, err := s.withdraw.Thesis(ctx, id)
	if err != nil {
		return n, err
	}
	logger.Component("thesis").Info("thesis withdrawn", "thesis_id", id, "actor_id", actor.Id)
	return n, nil
}

// Versions returns the versions of a thesis the actor may view.
func (s *Thesis) Versions(ctx context.Context, actor domain.Actor, id domain.ThesisId) ([]domain.Version, error) {
	thesis, err := s.storage.GetThesis(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.storage.VersionsOfThesis(ctx, id)
	if err != nil {
		return nil, err
	}
	visible := make([]domain.Version, 0, len(versions))
	for i := range versions {
		if s.policy.CanViewVersion(actor, &thesis, &versions[i]) {
			visible = append(visible, versions[i])
		}
	}
	return visible, nil
}
