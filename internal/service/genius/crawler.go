package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"go.uber.org/zap"
)

// ArtistSource resolves names and lists songs. *Client implements it.
type ArtistSource interface {
	ResolveArtistIDs(ctx context.Context, names []string) ([]ResolvedArtist, error)
	ListSongs(ctx context.Context, artistID int) ([]domain.Song, error)
}

// LyricsSource downloads lyrics for a song list. *LyricsFetcher implements it.
type LyricsSource interface {
	FetchLyrics(ctx context.Context, songs []domain.Song) (domain.ArtistLyricsFile, error)
}

// CrawlSummary reports what a lyrics crawl wrote.
type CrawlSummary struct {
	Requested int
	Artists   int
	Songs     int
	Files     []string
}

// Crawler writes one lyrics file per resolved artist.
type Crawler struct {
	source    ArtistSource
	fetcher   LyricsSource
	lyricsDir string
	logger    *zap.Logger
}

// NewCrawler creates a crawler writing one file per artist under lyricsDir.
func NewCrawler(source ArtistSource, fetcher LyricsSource, lyricsDir string, logger *zap.Logger) *Crawler {
	return &Crawler{
		source:    source,
		fetcher:   fetcher,
		lyricsDir: lyricsDir,
		logger:    logger,
	}
}

// Run resolves names, then fetches and writes each artist's lyrics in turn.
// Lookup failures against the API abort the run; per-song failures do not.
func (c *Crawler) Run(ctx context.Context, names []string) (CrawlSummary, error) {
	summary := CrawlSummary{Requested: len(names)}

	artists, err := c.source.ResolveArtistIDs(ctx, names)
	if err != nil {
		return summary, fmt.Errorf("resolve artists: %w", err)
	}

	if err := os.MkdirAll(c.lyricsDir, 0o755); err != nil {
		return summary, fmt.Errorf("create lyrics dir: %w", err)
	}

	for i, artist := range artists {
		songs, err := c.source.ListSongs(ctx, artist.ID)
		if err != nil {
			return summary, fmt.Errorf("list songs for %s: %w", artist.Name, err)
		}

		c.logger.Info("Fetching lyrics",
			zap.String("artist", artist.Name),
			zap.Int("songs", len(songs)),
			zap.Int("progress", i+1),
			zap.Int("total", len(artists)),
		)

		lyrics, err := c.fetcher.FetchLyrics(ctx, songs)
		if err != nil {
			return summary, err
		}

		path, err := c.writeArtistFile(artist.Name, lyrics)
		if err != nil {
			return summary, err
		}

		summary.Artists++
		summary.Songs += len(lyrics)
		summary.Files = append(summary.Files, path)

		c.logger.Info("Lyrics saved",
			zap.String("artist", artist.Name),
			zap.Int("songs", len(lyrics)),
			zap.String("file", path),
		)
	}

	return summary, nil
}

func (c *Crawler) writeArtistFile(name string, lyrics domain.ArtistLyricsFile) (string, error) {
	data, err := json.MarshalIndent(lyrics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lyrics of %s: %w", name, err)
	}

	target := filepath.Join(c.lyricsDir, SanitizeFilename(name)+".json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write lyrics of %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("failed to finalize lyrics of %s: %w", name, err)
	}
	return target, nil
}
