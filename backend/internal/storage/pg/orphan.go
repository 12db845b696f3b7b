package pg

import (
	"context"
	"fmt"

	"github.com/itchan-dev/prepublish/shared/domain"
)

func (s *Storage) OrphanVersions(ctx context.Context) ([]domain.VersionId, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT v.id FROM versions v
        WHERE NOT EXISTS (SELECT 1 FROM theses t WHERE t.id = v.thesis_id)
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphan versions: %w", err)
	}
	return collectIds(rows)
}

func (s *Storage) OrphanReviews(ctx context.Context) ([]domain.ReviewId, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id FROM reviews r
        WHERE NOT EXISTS (SELECT 1 FROM versions v WHERE v.id = r.version_id)
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphan reviews: %w", err)
	}
	return collectIds(rows)
}

func (s *Storage) OrphanComments(ctx context.Context) ([]domain.CommentId, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT c.id FROM comments c
        WHERE (c.target_type = $1 AND NOT EXISTS (SELECT 1 FROM versions v WHERE v.id = c.target_id))
           OR (c.target_type = $2 AND NOT EXISTS (SELECT 1 FROM comments p WHERE p.id = c.target_id))
    `, string(domain.TargetVersion), string(domain.TargetComment))
	if err != nil {
		return nil, fmt.Errorf("failed to find orphan comments: %w", err)
	}
	return collectIds(rows)
}
