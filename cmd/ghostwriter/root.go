package main

import (
	"fmt"

	"github.com/kapu/ghostwriter-go/internal/app"
	"github.com/kapu/ghostwriter-go/internal/config"
	"github.com/kapu/ghostwriter-go/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cmdRoot = &cobra.Command{
	Use:           "ghostwriter",
	Short:         "French rap lyrics pipeline: crawl, enrich, ingest and chat",
	SilenceErrors: true,
}

func init() {
	cmdRoot.PersistentFlags().StringP("config", "c", config.DefaultPath, "path to the YAML configuration")
}

// stageEnv holds what every subcommand needs; release must be deferred.
type stageEnv struct {
	cfg       *config.Config
	logger    *zap.Logger
	container *app.Container
}

func (r *stageEnv) release() {
	r.container.Close()
	_ = r.logger.Sync()
}

func bootstrap(cmd *cobra.Command) (*stageEnv, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	container, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to assemble services: %w", err)
	}

	logger.Info("Ghostwriter starting",
		zap.String("command", cmd.Name()),
		zap.String("config", cfg.Path),
		zap.String("log_level", cfg.Logging.Level),
	)

	return &stageEnv{cfg: cfg, logger: logger, container: container}, nil
}
