package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
	"github.com/lib/pq"
)

const thesisColumns = `id, owner_id, is_passed, created_at, author_ids, doi, title, abstraction, keywords, languages`

func scanThesis(row rowScanner) (domain.Thesis, error) {
	var t domain.Thesis
	var authors, keywords, languages pq.StringArray
	var doi sql.NullString
	if err := row.Scan(&t.Id, &t.OwnerId, &t.IsPassed, &t.CreatedAt, &authors, &doi,
		&t.Title, &t.Abstraction, &keywords, &languages); err != nil {
		return t, err
	}
	ids, err := parseIdArray(authors)
	if err != nil {
		return t, err
	}
	t.AuthorIds = ids
	t.Keywords = []string(keywords)
	t.Languages = []string(languages)
	if doi.Valid {
		t.Doi = &doi.String
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func orEmpty(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}

func (s *Storage) CreateThesis(ctx context.Context, thesis domain.Thesis) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO theses (`+thesisColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, thesis.Id, thesis.OwnerId, thesis.IsPassed, thesis.CreatedAt, idArray(thesis.AuthorIds),
		nullString(thesis.Doi), thesis.Title, thesis.Abstraction, orEmpty(thesis.Keywords), orEmpty(thesis.Languages))
	if err != nil {
		if isUniqueViolation(err) {
			return internal_errors.Conflict("thesis already exists")
		}
		return fmt.Errorf("failed to insert thesis: %w", err)
	}
	return nil
}

func (s *Storage) GetThesis(ctx context.Context, id domain.ThesisId) (domain.Thesis, error) {
	t, err := scanThesis(s.db.QueryRowContext(ctx, `SELECT `+thesisColumns+` FROM theses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Thesis{}, internal_errors.NotFound("thesis %s not found", id)
		}
		return domain.Thesis{}, fmt.Errorf("failed to fetch thesis: %w", err)
	}
	return t, nil
}

// ListPassedTheses reads the page and the total in one snapshot. Keyword and
// language match case-insensitively against any array element.
func (s *Storage) ListPassedTheses(ctx context.Context, filter domain.ThesisFilter) ([]domain.Thesis, int64, error) {
	const where = `
        WHERE is_passed
          AND ($1 = '' OR EXISTS (SELECT 1 FROM unnest(keywords) k WHERE lower(k) = lower($1)))
          AND ($2 = '' OR EXISTS (SELECT 1 FROM unnest(languages) l WHERE lower(l) = lower($2)))`

	var total int64
	theses := []domain.Thesis{}
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM theses`+where,
			filter.Keyword, filter.Language).Scan(&total); err != nil {
			return fmt.Errorf("failed to count theses: %w", err)
		}
		rows, err := tx.QueryContext(ctx, `SELECT `+thesisColumns+` FROM theses`+where+`
            ORDER BY created_at DESC, id
            OFFSET $3 LIMIT NULLIF($4, 0)
        `, filter.Keyword, filter.Language, filter.Offset, filter.Limit)
		if err != nil {
			return fmt.Errorf("failed to list theses: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanThesis(rows)
			if err != nil {
				return fmt.Errorf("failed to scan thesis: %w", err)
			}
			theses = append(theses, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return theses, total, nil
}

func (s *Storage) UpdateThesisMetadata(ctx context.Context, id domain.ThesisId, meta domain.ThesisMetadata) (domain.Thesis, error) {
	t, err := scanThesis(s.db.QueryRowContext(ctx, `
        UPDATE theses
        SET author_ids = $2, doi = $3, title = $4, abstraction = $5, keywords = $6, languages = $7
        WHERE id = $1
        RETURNING `+thesisColumns,
		id, idArray(meta.AuthorIds), nullString(meta.Doi), meta.Title, meta.Abstraction,
		orEmpty(meta.Keywords), orEmpty(meta.Languages)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Thesis{}, internal_errors.NotFound("thesis %s not found", id)
		}
		return domain.Thesis{}, fmt.Errorf("failed to update thesis: %w", err)
	}
	return t, nil
}

func (s *Storage) MarkThesisPassed(ctx context.Context, id domain.ThesisId) error {
	res, err := s.db.ExecContext(ctx, `UPDATE theses SET is_passed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark thesis passed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return internal_errors.NotFound("thesis %s not found", id)
	}
	return nil
}

// DeleteThesis removes only the thesis row.
func (s *Storage) DeleteThesis(ctx context.Context, id domain.ThesisId) (int64, error) {
	return s.deleteById(ctx, "theses", id)
}

// table is always a constant from this package
func (s *Storage) deleteById(ctx context.Context, table string, id any) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+pq.QuoteIdentifier(table)+` WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}
