package kv

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
)

func thesisNotFound(id domain.ThesisId) error {
	return internal_errors.NotFound("thesis %s not found", id)
}

func (s *Storage) CreateThesis(ctx context.Context, thesis domain.Thesis) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		key := docKey(thesisPrefix, thesis.Id)
		taken, err := exists(txn, key)
		if err != nil {
			return err
		}
		if taken {
			return internal_errors.Conflict("thesis %s already exists", thesis.Id)
		}
		return setJSON(txn, key, thesis)
	})
}

func getThesis(txn *badger.Txn, id domain.ThesisId) (domain.Thesis, error) {
	var thesis domain.Thesis
	err := getJSON(txn, docKey(thesisPrefix, id), &thesis)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return thesis, thesisNotFound(id)
	}
	return thesis, err
}

func (s *Storage) GetThesis(ctx context.Context, id domain.ThesisId) (domain.Thesis, error) {
	var thesis domain.Thesis
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		thesis, err = getThesis(txn, id)
		return err
	})
	return thesis, err
}

func matchesFilter(t *domain.Thesis, filter domain.ThesisFilter) bool {
	if !t.IsPassed {
		return false
	}
	if filter.Keyword != "" && !containsFold(t.Keywords, filter.Keyword) {
		return false
	}
	if filter.Language != "" && !containsFold(t.Languages, filter.Language) {
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ListPassedTheses scans the collection; newest first.
func (s *Storage) ListPassedTheses(ctx context.Context, filter domain.ThesisFilter) ([]domain.Thesis, int64, error) {
	var all []domain.Thesis
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		all, err = scanDocs[domain.Thesis](txn, thesisPrefix)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	matched := make([]domain.Thesis, 0, len(all))
	for i := range all {
		if matchesFilter(&all[i], filter) {
			matched = append(matched, all[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []domain.Thesis{}, total, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func (s *Storage) UpdateThesisMetadata(ctx context.Context, id domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error) {
	var thesis domain.Thesis
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		thesis, err = getThesis(txn, id)
		if err != nil {
			return err
		}
		thesis.ThesisMetadata = meta
		return setJSON(txn, docKey(thesisPrefix, id), thesis)
	})
	return thesis, err
}

func (s *Storage) MarkThesisPassed(ctx context.Context, id domain.ThesisId) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		thesis, err := getThesis(txn, id)
		if err != nil {
			return err
		}
		if thesis.IsPassed {
			return nil
		}
		thesis.IsPassed = true
		return setJSON(txn, docKey(thesisPrefix, id), thesis)
	})
}

// DeleteThesis removes only the thesis document; dependents are the caller's business.
func (s *Storage) DeleteThesis(ctx context.Context, id domain.ThesisId) (int64, error) {
	var n int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		n = 0
		key := docKey(thesisPrefix, id)
		found, err := exists(txn, key)
		if err != nil || !found {
			return err
		}
		n = 1
		return txn.Delete(key)
	})
	return n, err
}
