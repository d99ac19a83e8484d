package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func newSpotifyServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
		case "/v1/search":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("offset") == "0" {
				fmt.Fprintf(w, `{"playlists":{"items":[{"id":"p1"},null,{"id":"p2"}],"next":"%s/v1/search?offset=2&page=2"}}`, server.URL)
				return
			}
			_, _ = w.Write([]byte(`{"playlists":{"items":[{"id":"p3"}],"next":null}}`))
		case "/v1/playlists/p1/tracks":
			_, _ = w.Write([]byte(`{"items":[
				{"track":{"id":"t1","name":"Egérie","type":"track","artists":[{"id":"a1","name":"Nekfeu"},{"id":"a2","name":"S.Pri"}]}}
			],"next":null}`))
		case "/v1/artists/a1":
			_, _ = w.Write([]byte(`{"id":"a1","name":"Nekfeu","genres":["french hip hop","rap francais"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"status":404,"message":"not found"}}`))
		}
	}))
	return server
}

func newTestCatalog(t *testing.T, server *httptest.Server) *WebCatalog {
	t.Helper()
	catalog, err := NewCatalog(context.Background(),
		Credentials{ClientID: "id", ClientSecret: "secret"},
		CatalogOptions{BaseURL: server.URL + "/v1", TokenURL: server.URL + "/token"},
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func TestWebCatalogSearchFollowsNext(t *testing.T) {
	server := newSpotifyServer(t)
	defer server.Close()

	ids, err := newTestCatalog(t, server).SearchPlaylists(context.Background(), "French rap", 0, 50)
	if err != nil {
		t.Fatalf("SearchPlaylists: %v", err)
	}
	if want := []string{"p1", "p2", "p3"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestWebCatalogSearchWalksEveryPage(t *testing.T) {
	var searches atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
		case "/v1/search":
			if searches.Add(1) > 10 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			switch r.URL.Query().Get("offset") {
			case "0":
				fmt.Fprintf(w, `{"playlists":{"items":[{"id":"p1"}],"next":"%s/v1/search?offset=1"}}`, server.URL)
			case "1":
				fmt.Fprintf(w, `{"playlists":{"items":[{"id":"p2"}],"next":"%s/v1/search?offset=2"}}`, server.URL)
			case "2":
				fmt.Fprintf(w, `{"playlists":{"items":[{"id":"p3"}],"next":"%s/v1/search?offset=3"}}`, server.URL)
			default:
				_, _ = w.Write([]byte(`{"playlists":{"items":[{"id":"p4"}],"next":null}}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ids, err := newTestCatalog(t, server).SearchPlaylists(context.Background(), "French rap", 0, 1)
	if err != nil {
		t.Fatalf("SearchPlaylists: %v", err)
	}
	if want := []string{"p1", "p2", "p3", "p4"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if got := searches.Load(); got != 4 {
		t.Fatalf("search requests = %d, want 4", got)
	}
}

func TestWebCatalogPlaylistTracks(t *testing.T) {
	server := newSpotifyServer(t)
	defer server.Close()

	tracks, err := newTestCatalog(t, server).PlaylistTracks(context.Background(), "p1")
	if err != nil {
		t.Fatalf("PlaylistTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(tracks))
	}
	if tracks[0].PrimaryArtistID() != "a1" || tracks[0].Name != "Egérie" {
		t.Fatalf("track = %+v", tracks[0])
	}
	if toTrack(nil) != nil {
		t.Fatalf("items without a track should map to nil")
	}
}

func TestWebCatalogArtist(t *testing.T) {
	server := newSpotifyServer(t)
	defer server.Close()

	catalog := newTestCatalog(t, server)
	artist, err := catalog.Artist(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Artist: %v", err)
	}
	if artist.Name != "Nekfeu" || !artist.HasGenre("french hip hop") {
		t.Fatalf("artist = %+v", artist)
	}

	if _, err := catalog.Artist(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown artist")
	}
}

func TestNewCatalogRequiresCredentials(t *testing.T) {
	if _, err := NewCatalog(context.Background(), Credentials{}, CatalogOptions{}, zap.NewNop()); err == nil {
		t.Fatalf("expected validation error")
	}
}
