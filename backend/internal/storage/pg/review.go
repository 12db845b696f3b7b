package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
)

const reviewColumns = `id, version_id, reviewer_id, reviewed_at, judgement, criticism`

func scanReview(row rowScanner) (domain.Review, error) {
	var r domain.Review
	var reviewer uuid.NullUUID
	if err := row.Scan(&r.Id, &r.VersionId, &reviewer, &r.ReviewedAt, &r.Judgement, &r.Criticism); err != nil {
		return r, err
	}
	r.ReviewerId = uuidPtr(reviewer)
	return r, nil
}

// CreateReview enforces one review per reviewer and version.
func (s *Storage) CreateReview(ctx context.Context, review domain.Review) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO reviews (`+reviewColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, review.Id, review.VersionId, nullUUID(review.ReviewerId), review.ReviewedAt, review.Judgement, review.Criticism)
	if err != nil {
		if isUniqueViolation(err) {
			return internal_errors.Conflict("version %s was already reviewed by this reviewer", review.VersionId)
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (s *Storage) GetReview(ctx context.Context, id domain.ReviewId) (domain.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, internal_errors.NotFound("review %s not found", id)
		}
		return domain.Review{}, fmt.Errorf("failed to fetch review: %w", err)
	}
	return r, nil
}

func (s *Storage) ReviewsOfVersion(ctx context.Context, versionId domain.VersionId) ([]domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+reviewColumns+` FROM reviews
        WHERE version_id = $1
        ORDER BY reviewed_at
    `, versionId)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()
	out := []domain.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (s *Storage) DeleteReview(ctx context.Context, id domain.ReviewId) (int64, error) {
	return s.deleteById(ctx, "reviews", id)
}

func (s *Storage) DeleteReviewsOfVersion(ctx context.Context, versionId domain.VersionId) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE version_id = $1`, versionId)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reviews: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}
