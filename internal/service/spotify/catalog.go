package spotify

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	zspotify "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// Catalog is the read-only view of the streaming catalog the crawler needs.
type Catalog interface {
	SearchPlaylists(ctx context.Context, query string, offset, limit int) ([]string, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]*domain.Track, error)
	Artist(ctx context.Context, artistID string) (*domain.Artist, error)
}

// Credentials are the client-credentials pair of the Web API application.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// CatalogOptions overrides endpoints, mainly for tests.
type CatalogOptions struct {
	// BaseURL overrides the Web API root. Empty means the public API.
	BaseURL string
	// TokenURL overrides the client-credentials endpoint.
	TokenURL string
}

// WebCatalog implements Catalog on top of the Spotify Web API.
type WebCatalog struct {
	client *zspotify.Client
	logger *zap.Logger
}

// NewCatalog authenticates with the client-credentials flow and returns a catalog.
func NewCatalog(ctx context.Context, creds Credentials, opts CatalogOptions, logger *zap.Logger) (*WebCatalog, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, errors.NewValidationError("spotify client credentials are required", "spotify.credentials", "")
	}

	tokenURL := spotifyauth.TokenURL
	if opts.TokenURL != "" {
		tokenURL = opts.TokenURL
	}

	authConfig := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
	}

	if _, err := authConfig.Token(ctx); err != nil {
		return nil, errors.NewServiceError("failed to obtain spotify token", "spotify", "auth", err)
	}

	clientOpts := make([]zspotify.ClientOption, 0, 1)
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, zspotify.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}

	logger.Info("Spotify client authenticated")

	return &WebCatalog{
		client: zspotify.New(authConfig.Client(ctx), clientOpts...),
		logger: logger,
	}, nil
}

// SearchPlaylists returns playlist ids from offset onward, following next links
// until the result set is exhausted.
func (c *WebCatalog) SearchPlaylists(ctx context.Context, query string, offset, limit int) ([]string, error) {
	result, err := c.client.Search(ctx, query, zspotify.SearchTypePlaylist,
		zspotify.Limit(limit),
		zspotify.Offset(offset),
	)
	if err != nil {
		return nil, fmt.Errorf("search playlists at offset %d: %w", offset, err)
	}
	if result.Playlists == nil {
		return nil, nil
	}

	ids := make([]string, 0, len(result.Playlists.Playlists))
	for {
		for _, playlist := range result.Playlists.Playlists {
			if playlist.ID == "" {
				continue
			}
			ids = append(ids, playlist.ID.String())
		}

		// Search pages come back wrapped in {"playlists": ...}, so they are
		// walked through the search result rather than NextPage.
		nextURL := result.Playlists.Next
		result = &zspotify.SearchResult{Playlists: &zspotify.SimplePlaylistPage{}}
		result.Playlists.Next = nextURL

		err := c.client.NextPlaylistResults(ctx, result)
		if stderrors.Is(err, zspotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next playlists page: %w", err)
		}
		if result.Playlists == nil {
			break
		}
		// A null next leaves the requested url in place.
		if result.Playlists.Next == nextURL {
			result.Playlists.Next = ""
		}
	}
	return ids, nil
}

// PlaylistTracks returns one entry per playlist item. Items that are not tracks
// (episodes, removed tracks) are nil.
func (c *WebCatalog) PlaylistTracks(ctx context.Context, playlistID string) ([]*domain.Track, error) {
	page, err := c.client.GetPlaylistItems(ctx, zspotify.ID(playlistID))
	if err != nil {
		return nil, fmt.Errorf("get playlist %s items: %w", playlistID, err)
	}

	tracks := make([]*domain.Track, 0, len(page.Items))
	for {
		for _, item := range page.Items {
			tracks = append(tracks, toTrack(item.Track.Track))
		}

		err := c.client.NextPage(ctx, page)
		if stderrors.Is(err, zspotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next items page of playlist %s: %w", playlistID, err)
		}
	}
	return tracks, nil
}

// Artist returns the detail of one artist, genres included.
func (c *WebCatalog) Artist(ctx context.Context, artistID string) (*domain.Artist, error) {
	full, err := c.client.GetArtist(ctx, zspotify.ID(artistID))
	if err != nil {
		return nil, fmt.Errorf("get artist %s: %w", artistID, err)
	}
	return &domain.Artist{
		ID:     full.ID.String(),
		Name:   full.Name,
		Genres: full.Genres,
	}, nil
}

func toTrack(full *zspotify.FullTrack) *domain.Track {
	if full == nil {
		return nil
	}
	artists := make([]domain.ArtistRef, 0, len(full.Artists))
	for _, a := range full.Artists {
		artists = append(artists, domain.ArtistRef{ID: a.ID.String(), Name: a.Name})
	}
	return &domain.Track{
		ID:      full.ID.String(),
		Name:    full.Name,
		Artists: artists,
	}
}
