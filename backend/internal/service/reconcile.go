package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/errors"
	"github.com/itchan-dev/prepublish/shared/logger"
)

// ReconcileStorage is what PassReconciler reads and repairs.
type ReconcileStorage interface {
	AcceptedVersions(ctx context.Context) ([]domain.Version, error)
	StalledRounds(ctx context.Context) ([]domain.Version, error)
	VersionsOfThesis(ctx context.Context, thesisId domain.ThesisId) ([]domain.Version, error)
	SupersedeVersions(ctx context.Context, thesisId domain.ThesisId, major int) (int64, error)
	GetThesis(ctx context.Context, id domain.ThesisId) (domain.Thesis, error)
	MarkThesisPassed(ctx context.Context, id domain.ThesisId) error
}

// PassReconciler finishes review sequences that stopped halfway. Reviewer
// rounds whose pool emptied without a verdict are decided from their reviews.
// For every Passed(true) version it supersedes leftover siblings of the
// previous major and marks the thesis passed. All steps are idempotent and
// only move documents forward.
type PassReconciler struct {
	storage  ReconcileStorage
	versions *Version

	mu        sync.Mutex
	lastStats ReconcileStats
}

// ReconcileStats tracks metrics from the last reconcile run.
type ReconcileStats struct {
	RunAt              time.Time
	RoundsDecided      int
	VersionsScanned    int
	VersionsSuperseded int64
	ThesesMarked       int
	DurationMs         int64
	Errors             []string
}

func NewPassReconciler(storage ReconcileStorage, versions *Version) *PassReconciler {
	return &PassReconciler{storage: storage, versions: versions}
}

// Run calls RunOnce every interval until ctx is done. It blocks.
func (r *PassReconciler) Run(ctx context.Context, interval time.Duration) {
	log := logger.Component("reconciler")
	if interval <= 0 {
		log.Warn("reconcile interval not configured, pass reconciler disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info("started pass reconciler", "interval", interval)

	for {
		select {
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				log.Error("reconcile failed", "error", err)
				continue
			}
			stats := r.LastStats()
			log.Info("reconcile completed",
				"rounds_decided", stats.RoundsDecided,
				"versions_scanned", stats.VersionsScanned,
				"versions_superseded", stats.VersionsSuperseded,
				"theses_marked", stats.ThesesMarked,
				"duration_ms", stats.DurationMs,
				"errors", len(stats.Errors))
		case <-ctx.Done():
			log.Info("pass reconciler shutting down gracefully")
			return
		}
	}
}

// RunOnce executes a single reconcile cycle. Per-version failures are
// collected in the stats and do not stop the cycle.
func (r *PassReconciler) RunOnce(ctx context.Context) error {
	startTime := time.Now()
	stats := ReconcileStats{RunAt: startTime, Errors: []string{}}

	// decided rounds may pass, so they go before the accepted scan
	if err := r.settleRounds(ctx, &stats); err != nil {
		return err
	}

	accepted, err := r.storage.AcceptedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accepted versions: %w", err)
	}
	stats.VersionsScanned = len(accepted)

	for _, v := range accepted {
		if err := ctx.Err(); err != nil {
			return err
		}
		// an accepted version was always promoted, so its pre-pass major is major-1
		if v.MajorNum < 1 {
			stats.Errors = append(stats.Errors, fmt.Sprintf("version %s: accepted at major 0", v.Id))
			continue
		}

		stale, err := r.hasStaleSiblings(ctx, v)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("version %s: %v", v.Id, err))
			continue
		}
		if stale {
			n, err := r.storage.SupersedeVersions(ctx, v.ThesisId, v.MajorNum-1)
			if err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("version %s: supersede: %v", v.Id, err))
				continue
			}
			stats.VersionsSuperseded += n
			repairsTotal.WithLabelValues("reconciler", "version").Add(float64(n))
		}

		thesis, err := r.storage.GetThesis(ctx, v.ThesisId)
		if err != nil {
			// orphaned versions belong to the orphan collector
			if !errors.IsNotFound(err) {
				stats.Errors = append(stats.Errors, fmt.Sprintf("version %s: thesis: %v", v.Id, err))
			}
			continue
		}
		if !thesis.IsPassed {
			if err := r.storage.MarkThesisPassed(ctx, thesis.Id); err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("thesis %s: mark passed: %v", thesis.Id, err))
				continue
			}
			stats.ThesesMarked++
			repairsTotal.WithLabelValues("reconciler", "thesis").Inc()
		}
	}

	stats.DurationMs = time.Since(startTime).Milliseconds()
	r.mu.Lock()
	r.lastStats = stats
	r.mu.Unlock()
	return nil
}

func (r *PassReconciler) settleRounds(ctx context.Context, stats *ReconcileStats) error {
	stalled, err := r.storage.StalledRounds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stalled rounds: %w", err)
	}
	for _, v := range stalled {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.versions.settle(ctx, v, "reconciler"); err != nil {
			// decided concurrently
			if errors.IsConflict(err) {
				continue
			}
			stats.Errors = append(stats.Errors, fmt.Sprintf("version %s: decide: %v", v.Id, err))
			continue
		}
		stats.RoundsDecided++
		repairsTotal.WithLabelValues("reconciler", "round").Inc()
	}
	return nil
}

func (r *PassReconciler) hasStaleSiblings(ctx context.Context, accepted domain.Version) (bool, error) {
	versions, err := r.storage.VersionsOfThesis(ctx, accepted.ThesisId)
	if err != nil {
		return false, err
	}
	for _, v := range versions {
		if v.MajorNum == accepted.MajorNum-1 && v.State.Kind != domain.History {
			return true, nil
		}
	}
	return false, nil
}

// LastStats returns statistics from the last reconcile run.
func (r *PassReconciler) LastStats() ReconcileStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStats
}
