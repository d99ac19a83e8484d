package spotify

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/internal/util"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"go.uber.org/zap"
)

const searchTypePlaylist = "playlist"

// CrawlConfig drives one artist discovery run.
type CrawlConfig struct {
	Query   string
	Type    string
	Genre   string
	Offsets []int
	Limit   int

	MinSleep       time.Duration
	MaxSleep       time.Duration
	LongPauseEvery int
	LongPause      time.Duration
}

// Crawler discovers artist names tagged with a genre by walking search results,
// playlist items and artist details. Requests are issued one at a time.
type Crawler struct {
	catalog Catalog
	cfg     CrawlConfig
	sleeper util.Sleeper
	rng     *rand.Rand
	logger  *zap.Logger
}

// NewCrawler creates a crawler over catalog. A zero LongPauseEvery falls back to
// the provider throttling default.
func NewCrawler(catalog Catalog, cfg CrawlConfig, logger *zap.Logger) *Crawler {
	if cfg.LongPauseEvery <= 0 {
		cfg.LongPauseEvery = constants.SpotifyThrottle.LongPauseEvery
	}

	return &Crawler{
		catalog: catalog,
		cfg:     cfg,
		sleeper: util.ContextSleeper,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger,
	}
}

// WithSleeper replaces the pause implementation; used by tests.
func (c *Crawler) WithSleeper(s util.Sleeper) *Crawler {
	c.sleeper = s
	return c
}

// Run executes search, track listing, artist extraction and genre filtering and
// returns the sorted, de-duplicated names.
func (c *Crawler) Run(ctx context.Context) ([]string, error) {
	playlistIDs, err := c.SearchPlaylists(ctx, c.cfg.Query, c.cfg.Type, c.cfg.Offsets, c.cfg.Limit)
	if err != nil {
		return nil, err
	}

	tracks, err := c.GetPlaylistsTracks(ctx, playlistIDs)
	if err != nil {
		return nil, err
	}

	artistIDs := ArtistIDsFromTracks(tracks)
	c.logger.Info("Unique artists collected", zap.Int("artists", len(artistIDs)))

	return c.ArtistNames(ctx, artistIDs, c.cfg.Genre)
}

// SearchPlaylists concatenates the ids found from each offset, in offset order.
// Duplicates across offsets are kept.
func (c *Crawler) SearchPlaylists(ctx context.Context, query, searchType string, offsets []int, limit int) ([]string, error) {
	if searchType != searchTypePlaylist {
		return nil, errors.NewValidationError("only playlist search is supported", "spotify.type", searchType)
	}

	all := make([]string, 0)
	for _, offset := range offsets {
		c.logger.Info("Fetching playlists", zap.Int("offset", offset), zap.String("query", query))

		ids, err := c.catalog.SearchPlaylists(ctx, query, offset, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}

	c.logger.Info("Playlists found", zap.Int("playlists", len(all)))
	return all, nil
}

// GetTracks returns the items of one playlist.
func (c *Crawler) GetTracks(ctx context.Context, playlistID string) ([]*domain.Track, error) {
	return c.catalog.PlaylistTracks(ctx, playlistID)
}

// GetPlaylistsTracks concatenates the items of every playlist, in order.
func (c *Crawler) GetPlaylistsTracks(ctx context.Context, playlistIDs []string) ([]*domain.Track, error) {
	all := make([]*domain.Track, 0)
	for i, id := range playlistIDs {
		c.logger.Debug("Fetching playlist tracks",
			zap.String("playlist", id),
			zap.Int("progress", i+1),
			zap.Int("total", len(playlistIDs)),
		)

		tracks, err := c.GetTracks(ctx, id)
		if err != nil {
			return nil, err
		}
		all = append(all, tracks...)
	}

	c.logger.Info("Tracks fetched", zap.Int("tracks", len(all)))
	return all, nil
}

// ArtistIDsFromTracks returns the first artist of every non-nil track, once each,
// in first-seen order.
func ArtistIDsFromTracks(tracks []*domain.Track) []string {
	seen := make(map[string]struct{}, len(tracks))
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		id := track.PrimaryArtistID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ArtistNames fetches each artist and keeps the name when genre is one of its
// tags. Every LongPauseEvery-th fetch (including the first) is preceded by a
// long pause; every fetch is preceded by a short jittered pause.
func (c *Crawler) ArtistNames(ctx context.Context, artistIDs []string, genre string) ([]string, error) {
	names := make([]string, 0)

	for idx, id := range artistIDs {
		if idx%c.cfg.LongPauseEvery == 0 {
			if err := c.sleeper.Sleep(ctx, c.cfg.LongPause); err != nil {
				return nil, err
			}
		}
		if err := c.sleeper.Sleep(ctx, util.UniformDuration(c.rng, c.cfg.MinSleep, c.cfg.MaxSleep)); err != nil {
			return nil, err
		}

		c.logger.Debug("Fetching artist", zap.String("artist_id", id))
		artist, err := c.catalog.Artist(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("artist %d/%d: %w", idx+1, len(artistIDs), err)
		}

		if artist.HasGenre(genre) {
			c.logger.Info("Artist kept", zap.String("artist", artist.Name))
			names = append(names, artist.Name)
		}
	}

	return util.SortedUnique(names), nil
}
