package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itchan-dev/prepublish/shared/logger"
)

// OrphanCollector withdraws documents whose parent no longer exists. They are
// left behind when a cascade is interrupted, or when a child is created while
// its parent is being withdrawn.
type OrphanCollector struct {
	storage  OrphanStorage
	withdraw *Withdrawer

	mu        sync.Mutex
	lastStats SweepStats
}

// SweepStats tracks metrics from the last sweep.
type SweepStats struct {
	RunAt          time.Time
	OrphanVersions int
	OrphanReviews  int
	OrphanComments int
	DocumentsFreed int64
	DurationMs     int64
	Errors         []string
}

func NewOrphanCollector(storage OrphanStorage, withdraw *Withdrawer) *OrphanCollector {
	return &OrphanCollector{storage: storage, withdraw: withdraw}
}

// Run calls RunOnce every interval until ctx is done. It blocks.
func (gc *OrphanCollector) Run(ctx context.Context, interval time.Duration) {
	log := logger.Component("orphan_gc")
	if interval <= 0 {
		log.Warn("orphan sweep interval not configured, orphan collector disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info("started orphan collector", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := gc.RunOnce(ctx); err != nil {
				log.Error("orphan sweep failed", "error", err)
				continue
			}
			stats := gc.LastStats()
			log.Info("orphan sweep completed",
				"versions", stats.OrphanVersions,
				"reviews", stats.OrphanReviews,
				"comments", stats.OrphanComments,
				"freed", stats.DocumentsFreed,
				"duration_ms", stats.DurationMs,
				"errors", len(stats.Errors))
		case <-ctx.Done():
			log.Info("orphan collector shutting down gracefully")
			return
		}
	}
}

// RunOnce sweeps versions first, since withdrawing them removes most of the
// orphaned reviews and comments as well, then rescans for the rest.
func (gc *OrphanCollector) RunOnce(ctx context.Context) error {
	startTime := time.Now()
	stats := SweepStats{RunAt: startTime, Errors: []string{}}

	versions, err := gc.storage.OrphanVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to find orphan versions: %w", err)
	}
	stats.OrphanVersions = len(versions)
	for _, id := range versions {
		n, err := gc.withdraw.Version(ctx, id)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("version %s: %v", id, err))
			continue
		}
		stats.DocumentsFreed += n
	}
	repairsTotal.WithLabelValues("orphan_gc", "version").Add(float64(len(versions)))

	reviews, err := gc.storage.OrphanReviews(ctx)
	if err != nil {
		return fmt.Errorf("failed to find orphan reviews: %w", err)
	}
	stats.OrphanReviews = len(reviews)
	for _, id := range reviews {
		n, err := gc.withdraw.Review(ctx, id)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("review %s: %v", id, err))
			continue
		}
		stats.DocumentsFreed += n
	}
	repairsTotal.WithLabelValues("orphan_gc", "review").Add(float64(len(reviews)))

	// Replies of an orphan are orphans only after it is gone, the cascade takes them with it.
	comments, err := gc.storage.OrphanComments(ctx)
	if err != nil {
		return fmt.Errorf("failed to find orphan comments: %w", err)
	}
	stats.OrphanComments = len(comments)
	for _, id := range comments {
		n, err := gc.withdraw.Comment(ctx, id)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("comment %s: %v", id, err))
			continue
		}
		stats.DocumentsFreed += n
	}
	repairsTotal.WithLabelValues("orphan_gc", "comment").Add(float64(len(comments)))

	stats.DurationMs = time.Since(startTime).Milliseconds()
	gc.mu.Lock()
	gc.lastStats = stats
	gc.mu.Unlock()
	return nil
}

// LastStats returns statistics from the last sweep.
func (gc *OrphanCollector) LastStats() SweepStats {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.lastStats
}
