package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/prepublish/shared/config"
	"github.com/itchan-dev/prepublish/shared/logger"
)

var configFolder string

var rootCmd = &cobra.Command{
	Use:           "prepublish",
	Short:         "Thesis pre-publication and peer review service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	rootCmd.AddCommand(serveCmd, reconcileCmd, sweepCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the config folder and switches the global logger to the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFolder)
	if err != nil {
		return nil, err
	}
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)
	return cfg, nil
}
