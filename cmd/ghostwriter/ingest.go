package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cmdRoot.AddCommand(cmdIngest())
}

func cmdIngest() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ingest",
		Short:        "Chunk, embed and store the enriched lyrics in the vector collection",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recreate, _ := cmd.Flags().GetBool("recreate")

			rt, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.release()

			ingestor, store, err := rt.container.NewIngestor(cmd.Context())
			if err != nil {
				return err
			}

			if recreate {
				if err := store.DeleteCollection(cmd.Context()); err != nil {
					return err
				}
			}

			summary, err := ingestor.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			total, err := store.Count(cmd.Context())
			if err != nil {
				rt.logger.Warn("Failed to count stored points", zap.Error(err))
			}
			rt.logger.Info("Ingestion summary",
				zap.Int("songs", summary.Songs),
				zap.Int("chunks", summary.Chunks),
				zap.Int("points_written", summary.Points),
				zap.Int("collection_points", total),
				zap.String("collection", store.Collection()),
			)
			return nil
		},
	}
	cmd.Flags().Bool("recreate", false, "drop the collection before ingesting")
	return cmd
}
