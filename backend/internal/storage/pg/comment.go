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

const commentColumns = `id, poster_id, posted_at, target_type, target_id, content`

func scanComment(row rowScanner) (domain.Comment, error) {
	var c domain.Comment
	var poster uuid.NullUUID
	var targetType string
	if err := row.Scan(&c.Id, &poster, &c.PostedAt, &targetType, &c.TargetId, &c.Content); err != nil {
		return c, err
	}
	c.PosterId = uuidPtr(poster)
	c.TargetType = domain.CommentTargetType(targetType)
	return c, nil
}

func (s *Storage) CreateComment(ctx context.Context, c domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO comments (`+commentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, c.Id, nullUUID(c.PosterId), c.PostedAt, string(c.TargetType), c.TargetId, c.Content)
	if err != nil {
		if isUniqueViolation(err) {
			return internal_errors.Conflict("comment %s already exists", c.Id)
		}
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (s *Storage) GetComment(ctx context.Context, id domain.CommentId) (domain.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Comment{}, internal_errors.NotFound("comment %s not found", id)
		}
		return domain.Comment{}, fmt.Errorf("failed to fetch comment: %w", err)
	}
	return c, nil
}

func (s *Storage) CommentsOf(ctx context.Context, targetType domain.CommentTargetType, targetId uuid.UUID) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+commentColumns+` FROM comments
        WHERE target_type = $1 AND target_id = $2
        ORDER BY posted_at, id
    `, string(targetType), targetId)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()
	out := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// DeleteComment removes one comment; replies are the caller's business.
func (s *Storage) DeleteComment(ctx context.Context, id domain.CommentId) (int64, error) {
	return s.deleteById(ctx, "comments", id)
}
