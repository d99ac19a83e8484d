package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/internal/util"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"go.uber.org/zap"
)

// LookupCache is the subset of cache.CacheService used to memoize API lookups.
type LookupCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type apiArtist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type searchEnvelope struct {
	Response struct {
		Hits []struct {
			Type   string `json:"type"`
			Result struct {
				PrimaryArtist apiArtist `json:"primary_artist"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type songsEnvelope struct {
	Response struct {
		Songs []struct {
			Title         string    `json:"title"`
			Path          string    `json:"path"`
			PrimaryArtist apiArtist `json:"primary_artist"`
		} `json:"songs"`
		NextPage *int `json:"next_page"`
	} `json:"response"`
}

// ResolvedArtist is a queried name matched to a provider artist id.
type ResolvedArtist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Client talks to the lyrics provider's JSON API.
type Client struct {
	http    *resty.Client
	perPage int
	cache   LookupCache
	logger  *zap.Logger
}

// NewClient creates an API client authenticated with a bearer token.
func NewClient(apiBaseURL, accessToken string, perPage int, logger *zap.Logger) *Client {
	if perPage <= 0 {
		perPage = constants.GeniusConfig.SongsPerPage
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(apiBaseURL, "/")).
		SetAuthToken(accessToken).
		SetHeader("User-Agent", constants.GeniusConfig.UserAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(constants.GeniusConfig.RequestTimeout)

	return &Client{
		http:    httpClient,
		perPage: perPage,
		logger:  logger,
	}
}

// WithCache enables memoization of artist ids and song listings.
func (c *Client) WithCache(cache LookupCache) *Client {
	c.cache = cache
	return c
}

// ResolveArtistIDs maps each name to the id of the first song hit whose primary
// artist carries that exact name (case-insensitive). Unmatched names are logged and
// skipped. The result keeps input order with one entry per id; when two names
// resolve to the same id the first name is kept.
func (c *Client) ResolveArtistIDs(ctx context.Context, names []string) ([]ResolvedArtist, error) {
	resolved := make([]ResolvedArtist, 0, len(names))
	seen := make(map[int]string, len(names))

	for _, name := range names {
		c.logger.Info("Looking up artist id", zap.String("artist", name))

		id, found, err := c.resolveArtistID(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found {
			c.logger.Info("Artist not found, skipping", zap.String("artist", name))
			continue
		}

		if first, dup := seen[id]; dup {
			c.logger.Info("Artist id already resolved, keeping first name",
				zap.String("artist", name),
				zap.String("kept", first),
				zap.Int("id", id),
			)
			continue
		}
		seen[id] = name
		resolved = append(resolved, ResolvedArtist{ID: id, Name: name})
	}

	c.logger.Info("Artist ids resolved",
		zap.Int("requested", len(names)),
		zap.Int("resolved", len(resolved)),
	)
	return resolved, nil
}

func (c *Client) resolveArtistID(ctx context.Context, name string) (int, bool, error) {
	cacheKey := constants.CacheKeys.GeniusArtistPrefix + util.Normalize(name)
	var cached ResolvedArtist
	if c.cacheGet(ctx, cacheKey, &cached) {
		return cached.ID, true, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", name).
		Get("/search/")
	if err != nil {
		return 0, false, fmt.Errorf("artist search %q: %w", name, err)
	}
	if resp.IsError() {
		return 0, false, errors.NewAPIError("artist search failed", resp.StatusCode(), map[string]any{"artist": name})
	}

	var env searchEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return 0, false, fmt.Errorf("decode search response for %q: %w", name, err)
	}

	for _, hit := range env.Response.Hits {
		artist := hit.Result.PrimaryArtist
		if strings.EqualFold(artist.Name, name) && hit.Type == "song" {
			c.cacheSet(ctx, cacheKey, ResolvedArtist{ID: artist.ID, Name: name}, constants.CacheTTL.GeniusArtistID)
			return artist.ID, true, nil
		}
	}
	return 0, false, nil
}

// ListSongs pages through the artist's songs until next_page is null and keeps
// only songs whose primary artist is artistID. A repeated title keeps its first
// position and takes the later path.
func (c *Client) ListSongs(ctx context.Context, artistID int) ([]domain.Song, error) {
	cacheKey := constants.CacheKeys.GeniusSongsPrefix + strconv.Itoa(artistID)
	var cached []domain.Song
	if c.cacheGet(ctx, cacheKey, &cached) {
		c.logger.Debug("Song listing cache hit", zap.Int("artist_id", artistID), zap.Int("songs", len(cached)))
		return cached, nil
	}

	songs := make([]domain.Song, 0)
	byTitle := make(map[string]int)

	for page := 1; ; page++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"per_page": strconv.Itoa(c.perPage),
				"page":     strconv.Itoa(page),
			}).
			Get(fmt.Sprintf("/artists/%d/songs", artistID))
		if err != nil {
			return nil, fmt.Errorf("list songs for artist %d: %w", artistID, err)
		}
		if resp.IsError() {
			return nil, errors.NewAPIError("song listing failed", resp.StatusCode(), map[string]any{
				"artist_id": artistID,
				"page":      page,
			})
		}

		var env songsEnvelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return nil, fmt.Errorf("decode songs page %d for artist %d: %w", page, artistID, err)
		}

		for _, s := range env.Response.Songs {
			if s.PrimaryArtist.ID != artistID {
				continue
			}
			if idx, seen := byTitle[s.Title]; seen {
				songs[idx].Path = s.Path
				continue
			}
			byTitle[s.Title] = len(songs)
			songs = append(songs, domain.Song{Title: s.Title, Path: s.Path})
		}

		c.logger.Debug("Songs page fetched",
			zap.Int("artist_id", artistID),
			zap.Int("page", page),
			zap.Int("songs_so_far", len(songs)),
		)

		if env.Response.NextPage == nil {
			break
		}
	}

	c.cacheSet(ctx, cacheKey, songs, constants.CacheTTL.GeniusSongs)
	return songs, nil
}

func (c *Client) cacheGet(ctx context.Context, key string, dest any) bool {
	if c.cache == nil {
		return false
	}
	found, err := c.cache.Get(ctx, key, dest)
	if err != nil {
		c.logger.Warn("Lookup cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (c *Client) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("Lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
}
