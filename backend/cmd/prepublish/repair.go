package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/prepublish/backend/internal/setup"
	"github.com/itchan-dev/prepublish/backend/internal/storage/pg"
	"github.com/itchan-dev/prepublish/shared/config"
	"github.com/itchan-dev/prepublish/shared/logger"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Finish interrupted publications once and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		deps, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Storage.Close()

		err = deps.Reconciler.RunOnce(cmd.Context())
		stats := deps.Reconciler.LastStats()
		logger.Component("reconciler").Info("reconcile finished",
			"rounds_decided", stats.RoundsDecided,
			"versions_scanned", stats.VersionsScanned,
			"versions_superseded", stats.VersionsSuperseded,
			"theses_marked", stats.ThesesMarked,
			"errors", len(stats.Errors),
		)
		return err
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Withdraw documents orphaned by interrupted cascades once and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		deps, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer deps.Storage.Close()

		err = deps.Collector.RunOnce(cmd.Context())
		stats := deps.Collector.LastStats()
		logger.Component("orphan_gc").Info("sweep finished",
			"orphan_versions", stats.OrphanVersions,
			"orphan_reviews", stats.OrphanReviews,
			"orphan_comments", stats.OrphanComments,
			"documents_freed", stats.DocumentsFreed,
			"errors", len(stats.Errors),
		)
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Public.Storage != config.StorageBackendPg {
			return fmt.Errorf("migrate needs storage %q, configured %q", config.StorageBackendPg, cfg.Public.Storage)
		}
		storage, err := pg.New(cmd.Context(), cfg, pg.LightweightConnectionConfig())
		if err != nil {
			return err
		}
		defer storage.Close()

		if err := storage.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Component("pg").Info("schema applied")
		return nil
	},
}

func openDeps(cmd *cobra.Command) (*setup.Dependencies, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return setup.SetupDependencies(cmd.Context(), cfg)
}
