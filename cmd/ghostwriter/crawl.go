package main

import (
	"fmt"
	"strings"

	"github.com/kapu/ghostwriter-go/internal/config"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cmdRoot.AddCommand(cmdCrawlArtists())
	cmdRoot.AddCommand(cmdCrawlLyrics())
}

func cmdCrawlArtists() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "crawl-artists",
		Short:        "Collect artist names of the configured genre from playlists",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			rt, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.release()

			crawler, err := rt.container.NewArtistCrawler(cmd.Context())
			if err != nil {
				return err
			}

			names, err := crawler.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("artist crawl failed: %w", err)
			}

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
				return nil
			}

			if err := config.WriteArtistNames(rt.cfg.Path, names); err != nil {
				return err
			}
			rt.logger.Info("Artist names saved",
				zap.Int("artists", len(names)),
				zap.String("config", rt.cfg.Path),
			)
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "print the names instead of writing them to the config")
	return cmd
}

func cmdCrawlLyrics() *cobra.Command {
	return &cobra.Command{
		Use:          "crawl-lyrics",
		Short:        "Download lyrics of every configured artist, one JSON file per artist",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.release()

			if len(rt.cfg.Artists.Names) == 0 {
				return errors.NewValidationError("artists.names is empty, run crawl-artists first", "artists.names", nil)
			}

			crawler, err := rt.container.NewLyricsCrawler(cmd.Context())
			if err != nil {
				return err
			}

			summary, err := crawler.Run(cmd.Context(), rt.cfg.Artists.Names)
			if err != nil {
				return fmt.Errorf("lyrics crawl failed: %w", err)
			}
			rt.logger.Info("Lyrics crawl completed",
				zap.Int("requested", summary.Requested),
				zap.Int("artists", summary.Artists),
				zap.Int("songs", summary.Songs),
			)
			return nil
		},
	}
}
