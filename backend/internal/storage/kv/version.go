package kv

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
)

func versionNotFound(id domain.VersionId) error {
	return internal_errors.NotFound("version %s not found", id)
}

func getVersion(txn *badger.Txn, id domain.VersionId) (domain.Version, error) {
	var v domain.Version
	err := getJSON(txn, docKey(versionPrefix, id), &v)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return v, versionNotFound(id)
	}
	return v, err
}

func putVersion(txn *badger.Txn, v domain.Version) error {
	return setJSON(txn, docKey(versionPrefix, v.Id), v)
}

func (s *Storage) CreateVersion(ctx context.Context, version domain.Version) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		numKey := versionNumberKey(version.ThesisId, version.MajorNum, version.MinorNum)
		taken, err := exists(txn, numKey)
		if err != nil {
			return err
		}
		if taken {
			return internal_errors.Conflict("version %d.%d of thesis %s already exists",
				version.MajorNum, version.MinorNum, version.ThesisId)
		}
		if err := putVersion(txn, version); err != nil {
			return err
		}
		return txn.Set(numKey, []byte(version.Id.String()))
	})
}

func (s *Storage) GetVersion(ctx context.Context, id domain.VersionId) (domain.Version, error) {
	var v domain.Version
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		v, err = getVersion(txn, id)
		return err
	})
	return v, err
}

func versionsOfThesis(txn *badger.Txn, prefix []byte) ([]domain.Version, error) {
	ids, err := valueIds(txn, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Version, 0, len(ids))
	for _, id := range ids {
		v, err := getVersion(txn, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Storage) VersionsOfThesis(ctx context.Context, thesisId domain.ThesisId) ([]domain.Version, error) {
	var out []domain.Version
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		out, err = versionsOfThesis(txn, versionKeyPrefixOf(thesisId))
		return err
	})
	return out, err
}

func (s *Storage) LatestVersion(ctx context.Context, thesisId domain.ThesisId) (*domain.Version, error) {
	var latest *domain.Version
	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := versionKeyPrefixOf(thesisId)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts at the greatest key <= seek
		it.Seek(append(append([]byte{}, prefix...), 0xff))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		var id uuid.UUID
		err := it.Item().Value(func(val []byte) error {
			var perr error
			id, perr = uuid.ParseBytes(val)
			return perr
		})
		if err != nil {
			return err
		}
		v, err := getVersion(txn, id)
		if err != nil {
			return err
		}
		latest = &v
		return nil
	})
	return latest, err
}

func inStates(s domain.VersionState, states []domain.VersionState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

func (s *Storage) OpenReview(ctx context.Context, id domain.VersionId, rs domain.ReviewState) (domain.Version, error) {
	var v domain.Version
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		v, err = getVersion(txn, id)
		if err != nil {
			return err
		}
		if v.State.Kind != domain.Uploaded {
			return internal_errors.Conflict("version %s is %s, not Uploaded", id, v.State)
		}
		v.State = domain.StateReviewing
		v.ReviewState = rs
		return putVersion(txn, v)
	})
	return v, err
}

func (s *Storage) PullReviewer(ctx context.Context, id domain.VersionId, reviewer domain.UserId) (domain.Version, error) {
	var v domain.Version
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		v, err = getVersion(txn, id)
		if err != nil {
			return err
		}
		if v.State.Kind != domain.Reviewing || !v.ReviewState.Awaits(reviewer) {
			return internal_errors.Conflict("version %s does not await reviewer %s", id, reviewer)
		}
		pool := make([]domain.UserId, 0, len(v.ReviewState.RemainderReviewerIds))
		for _, r := range v.ReviewState.RemainderReviewerIds {
			if r != reviewer {
				pool = append(pool, r)
			}
		}
		v.ReviewState.RemainderReviewerIds = pool
		return putVersion(txn, v)
	})
	return v, err
}

func (s *Storage) TransitionVersion(ctx context.Context, id domain.VersionId, from []domain.VersionState, to domain.VersionState, promote bool) (domain.Version, error) {
	var v domain.Version
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		v, err = getVersion(txn, id)
		if err != nil {
			return err
		}
		if !inStates(v.State, from) {
			return internal_errors.Conflict("version %s is %s", id, v.State)
		}
		if promote {
			oldKey := versionNumberKey(v.ThesisId, v.MajorNum, v.MinorNum)
			newKey := versionNumberKey(v.ThesisId, v.MajorNum+1, 0)
			taken, err := exists(txn, newKey)
			if err != nil {
				return err
			}
			if taken {
				return internal_errors.Conflict("version %d.0 of thesis %s already exists", v.MajorNum+1, v.ThesisId)
			}
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
			if err := txn.Set(newKey, []byte(v.Id.String())); err != nil {
				return err
			}
			v.MajorNum, v.MinorNum = v.MajorNum+1, 0
		}
		v.State = to
		return putVersion(txn, v)
	})
	return v, err
}

func (s *Storage) SupersedeVersions(ctx context.Context, thesisId domain.ThesisId, major int) (int64, error) {
	var n int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		n = 0
		versions, err := versionsOfThesis(txn, versionMajorPrefix(thesisId, major))
		if err != nil {
			return err
		}
		for _, v := range versions {
			if v.State == domain.StateHistory {
				continue
			}
			v.State = domain.StateHistory
			if err := putVersion(txn, v); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *Storage) AcceptedVersions(ctx context.Context) ([]domain.Version, error) {
	var accepted []domain.Version
	err := s.view(ctx, func(txn *badger.Txn) error {
		all, err := scanDocs[domain.Version](txn, versionPrefix)
		if err != nil {
			return err
		}
		accepted = accepted[:0]
		for _, v := range all {
			if v.State.IsAccepted() {
				accepted = append(accepted, v)
			}
		}
		return nil
	})
	return accepted, err
}

func (s *Storage) StalledRounds(ctx context.Context) ([]domain.Version, error) {
	var stalled []domain.Version
	err := s.view(ctx, func(txn *badger.Txn) error {
		all, err := scanDocs[domain.Version](txn, versionPrefix)
		if err != nil {
			return err
		}
		stalled = stalled[:0]
		for _, v := range all {
			if v.State.Kind == domain.Reviewing && !v.ReviewState.Pattern.IsEditor() &&
				len(v.ReviewState.RemainderReviewerIds) == 0 {
				stalled = append(stalled, v)
			}
		}
		return nil
	})
	return stalled, err
}

func (s *Storage) RecordDownload(ctx context.Context, id domain.VersionId) (domain.Version, error) {
	var v domain.Version
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		v, err = getVersion(txn, id)
		if err != nil {
			return err
		}
		v.Downloads++
		return putVersion(txn, v)
	})
	return v, err
}

// DeleteVersion removes the document and its number key; dependents are the caller's business.
func (s *Storage) DeleteVersion(ctx context.Context, id domain.VersionId) (int64, error) {
	var n int64
	err := s.update(ctx, func(txn *badger.Txn) error {
		n = 0
		v, err := getVersion(txn, id)
		if internal_errors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(docKey(versionPrefix, id)); err != nil {
			return err
		}
		if err := txn.Delete(versionNumberKey(v.ThesisId, v.MajorNum, v.MinorNum)); err != nil {
			return err
		}
		n = 1
		return nil
	})
	return n, err
}
