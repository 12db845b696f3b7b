package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
	"github.com/lib/pq"
)

const versionColumns = `id, thesis_id, uploaded_at, uploader_id, major_num, minor_num, state,
    remainder_reviewer_ids, pattern, pattern_editor_id, downloads, file_id, source_id`

func scanVersion(row rowScanner) (domain.Version, error) {
	var v domain.Version
	var uploader, editor, source uuid.NullUUID
	var state, pattern string
	var pool pq.StringArray
	if err := row.Scan(&v.Id, &v.ThesisId, &v.UploadedAt, &uploader, &v.MajorNum, &v.MinorNum, &state,
		&pool, &pattern, &editor, &v.Downloads, &v.FileId, &source); err != nil {
		return v, err
	}

	parsed, err := domain.ParseVersionState(state)
	if err != nil {
		return v, err
	}
	v.State = parsed
	ids, err := parseIdArray(pool)
	if err != nil {
		return v, err
	}
	v.ReviewState.RemainderReviewerIds = ids
	if domain.ReviewPatternKind(pattern) == domain.PatternEditor {
		v.ReviewState.Pattern = domain.EditorPattern(editor.UUID)
	} else {
		v.ReviewState.Pattern = domain.ReviewerPattern()
	}
	v.UploaderId = uuidPtr(uploader)
	v.SourceId = uuidPtr(source)
	return v, nil
}

func patternColumns(p domain.ReviewPattern) (string, any) {
	if p.IsEditor() {
		return string(domain.PatternEditor), p.EditorId
	}
	return string(domain.PatternReviewer), nil
}

func stateArray(states []domain.VersionState) pq.StringArray {
	out := make(pq.StringArray, len(states))
	for i, st := range states {
		out[i] = st.String()
	}
	return out
}

func (s *Storage) CreateVersion(ctx context.Context, v domain.Version) error {
	pattern, editor := patternColumns(v.ReviewState.Pattern)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO versions (`+versionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, v.Id, v.ThesisId, v.UploadedAt, nullUUID(v.UploaderId), v.MajorNum, v.MinorNum, v.State.String(),
		idArray(v.ReviewState.RemainderReviewerIds), pattern, editor, v.Downloads, v.FileId, nullUUID(v.SourceId))
	if err != nil {
		if isUniqueViolation(err) {
			return internal_errors.Conflict("version %d.%d of thesis %s already exists", v.MajorNum, v.MinorNum, v.ThesisId)
		}
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

func (s *Storage) GetVersion(ctx context.Context, id domain.VersionId) (domain.Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM versions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Version{}, internal_errors.NotFound("version %s not found", id)
		}
		return domain.Version{}, fmt.Errorf("failed to fetch version: %w", err)
	}
	return v, nil
}

func (s *Storage) LatestVersion(ctx context.Context, thesisId domain.ThesisId) (*domain.Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, `
        SELECT `+versionColumns+` FROM versions
        WHERE thesis_id = $1
        ORDER BY major_num DESC, minor_num DESC
        LIMIT 1
    `, thesisId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch latest version: %w", err)
	}
	return &v, nil
}

func (s *Storage) queryVersions(ctx context.Context, query string, args ...any) ([]domain.Version, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()
	out := []domain.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (s *Storage) VersionsOfThesis(ctx context.Context, thesisId domain.ThesisId) ([]domain.Version, error) {
	return s.queryVersions(ctx, `
        SELECT `+versionColumns+` FROM versions
        WHERE thesis_id = $1
        ORDER BY major_num, minor_num
    `, thesisId)
}

func (s *Storage) AcceptedVersions(ctx context.Context) ([]domain.Version, error) {
	return s.queryVersions(ctx, `SELECT `+versionColumns+` FROM versions WHERE state = $1`, domain.StateAccepted.String())
}

func (s *Storage) StalledRounds(ctx context.Context) ([]domain.Version, error) {
	return s.queryVersions(ctx, `
        SELECT `+versionColumns+` FROM versions
        WHERE state = $1 AND pattern = $2 AND cardinality(remainder_reviewer_ids) = 0
    `, domain.StateReviewing.String(), string(domain.PatternReviewer))
}

// conditionalUpdate runs an UPDATE ... WHERE <precondition> RETURNING. When no
// row matches it tells a missing version (NotFound) from a failed precondition (Conflict).
func (s *Storage) conditionalUpdate(ctx context.Context, id domain.VersionId, conflict string, query string, args ...any) (domain.Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return v, nil
	}
	if isUniqueViolation(err) {
		return domain.Version{}, internal_errors.Conflict("version number already taken in thesis")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Version{}, fmt.Errorf("failed to update version: %w", err)
	}
	current, err := s.GetVersion(ctx, id)
	if err != nil {
		return domain.Version{}, err
	}
	return domain.Version{}, internal_errors.Conflict("version %s is %s: %s", id, current.State, conflict)
}

func (s *Storage) OpenReview(ctx context.Context, id domain.VersionId, rs domain.ReviewState) (domain.Version, error) {
	pattern, editor := patternColumns(rs.Pattern)
	return s.conditionalUpdate(ctx, id, "not Uploaded", `
        UPDATE versions
        SET state = $2, remainder_reviewer_ids = $3, pattern = $4, pattern_editor_id = $5
        WHERE id = $1 AND state = $6
        RETURNING `+versionColumns,
		id, domain.StateReviewing.String(), idArray(rs.RemainderReviewerIds), pattern, editor, domain.StateUploaded.String())
}

func (s *Storage) PullReviewer(ctx context.Context, id domain.VersionId, reviewer domain.UserId) (domain.Version, error) {
	return s.conditionalUpdate(ctx, id, "reviewer not awaited", `
        UPDATE versions
        SET remainder_reviewer_ids = array_remove(remainder_reviewer_ids, $2::uuid)
        WHERE id = $1 AND state = $3 AND $2::uuid = ANY(remainder_reviewer_ids)
        RETURNING `+versionColumns,
		id, reviewer, domain.StateReviewing.String())
}

func (s *Storage) TransitionVersion(ctx context.Context, id domain.VersionId, from []domain.VersionState, to domain.VersionState, promote bool) (domain.Version, error) {
	return s.conditionalUpdate(ctx, id, "transition not allowed", `
        UPDATE versions
        SET state = $2,
            major_num = CASE WHEN $3 THEN major_num + 1 ELSE major_num END,
            minor_num = CASE WHEN $3 THEN 0 ELSE minor_num END
        WHERE id = $1 AND state = ANY($4)
        RETURNING `+versionColumns,
		id, to.String(), promote, stateArray(from))
}

func (s *Storage) SupersedeVersions(ctx context.Context, thesisId domain.ThesisId, major int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE versions SET state = $3
        WHERE thesis_id = $1 AND major_num = $2 AND state <> $3
    `, thesisId, major, domain.StateHistory.String())
	if err != nil {
		return 0, fmt.Errorf("failed to supersede versions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

func (s *Storage) RecordDownload(ctx context.Context, id domain.VersionId) (domain.Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, `
        UPDATE versions SET downloads = downloads + 1
        WHERE id = $1
        RETURNING `+versionColumns, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Version{}, internal_errors.NotFound("version %s not found", id)
		}
		return domain.Version{}, fmt.Errorf("failed to record download: %w", err)
	}
	return v, nil
}

func (s *Storage) DeleteVersion(ctx context.Context, id domain.VersionId) (int64, error) {
	return s.deleteById(ctx, "versions", id)
}
