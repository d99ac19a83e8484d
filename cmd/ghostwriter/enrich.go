package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cmdRoot.AddCommand(cmdEnrich())
}

func cmdEnrich() *cobra.Command {
	return &cobra.Command{
		Use:          "enrich",
		Short:        "Build the enriched song table from the lyrics files",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.release()

			pipeline, repo, err := rt.container.NewEnrichPipeline(cmd.Context())
			if err != nil {
				return err
			}

			summary, err := pipeline.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("enrichment failed: %w", err)
			}
			rt.logger.Info("Enrichment completed",
				zap.Int("loaded", summary.Loaded),
				zap.Int("kept", summary.Kept),
				zap.String("parquet", summary.Written),
				zap.Int("postgres_rows", summary.SinkRows),
			)

			if repo != nil {
				counts, err := repo.CountBySentiment(cmd.Context())
				if err != nil {
					rt.logger.Warn("Failed to read sentiment counts", zap.Error(err))
					return nil
				}
				for sentiment, n := range counts {
					rt.logger.Info("Songs by main sentiment",
						zap.String("sentiment", sentiment),
						zap.Int("songs", n),
					)
				}
			}
			return nil
		},
	}
}
