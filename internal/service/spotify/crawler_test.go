package spotify

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	playlists   map[int][]string
	tracks      map[string][]*domain.Track
	artists     map[string]*domain.Artist
	artistErr   error
	artistCalls []string
}

func (f *fakeCatalog) SearchPlaylists(_ context.Context, _ string, offset, _ int) ([]string, error) {
	return f.playlists[offset], nil
}

func (f *fakeCatalog) PlaylistTracks(_ context.Context, id string) ([]*domain.Track, error) {
	return f.tracks[id], nil
}

func (f *fakeCatalog) Artist(_ context.Context, id string) (*domain.Artist, error) {
	f.artistCalls = append(f.artistCalls, id)
	if f.artistErr != nil {
		return nil, f.artistErr
	}
	if a, ok := f.artists[id]; ok {
		return a, nil
	}
	return &domain.Artist{ID: id, Name: "unknown " + id}, nil
}

type sleepLog struct {
	delays []time.Duration
}

func (s *sleepLog) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func track(artistIDs ...string) *domain.Track {
	t := &domain.Track{}
	for _, id := range artistIDs {
		t.Artists = append(t.Artists, domain.ArtistRef{ID: id})
	}
	return t
}

func testConfig() CrawlConfig {
	return CrawlConfig{
		Query:          "French rap",
		Type:           "playlist",
		Genre:          "french hip hop",
		Offsets:        []int{0, 50},
		Limit:          50,
		MinSleep:       200 * time.Millisecond,
		MaxSleep:       700 * time.Millisecond,
		LongPauseEvery: 1000,
		LongPause:      10 * time.Second,
	}
}

func TestArtistIDsFromTracks(t *testing.T) {
	tracks := []*domain.Track{
		track("a1", "feat"),
		nil,
		track("a2"),
		track("a1"),
		{},
		track("a3"),
	}

	got := ArtistIDsFromTracks(tracks)
	want := []string{"a1", "a2", "a3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}

func TestRunFiltersByGenreAndSorts(t *testing.T) {
	catalog := &fakeCatalog{
		playlists: map[int][]string{0: {"p1"}, 50: {"p2", "p1"}},
		tracks: map[string][]*domain.Track{
			"p1": {track("nekfeu"), nil, track("angele")},
			"p2": {track("booba"), track("nekfeu")},
		},
		artists: map[string]*domain.Artist{
			"nekfeu": {Name: "Nekfeu", Genres: []string{"french hip hop", "pop urbaine"}},
			"angele": {Name: "Angèle", Genres: []string{"french pop"}},
			"booba":  {Name: "Booba", Genres: []string{"french hip hop"}},
		},
	}
	sleeper := &sleepLog{}

	crawler := NewCrawler(catalog, testConfig(), zap.NewNop()).WithSleeper(sleeper)
	names, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := []string{"Booba", "Nekfeu"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	if want := []string{"nekfeu", "angele", "booba"}; !reflect.DeepEqual(catalog.artistCalls, want) {
		t.Fatalf("artist fetch order = %v, want %v", catalog.artistCalls, want)
	}
}

func TestArtistNamesThrottling(t *testing.T) {
	ids := make([]string, 1001)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i)
	}
	sleeper := &sleepLog{}
	crawler := NewCrawler(&fakeCatalog{}, testConfig(), zap.NewNop()).WithSleeper(sleeper)

	if _, err := crawler.ArtistNames(context.Background(), ids, "french hip hop"); err != nil {
		t.Fatalf("ArtistNames: %v", err)
	}

	var long, short int
	for i, d := range sleeper.delays {
		switch {
		case d == 10*time.Second:
			long++
		case d >= 200*time.Millisecond && d <= 700*time.Millisecond:
			short++
		default:
			t.Fatalf("sleep %d out of range: %v", i, d)
		}
	}
	if long != 2 {
		t.Fatalf("long pauses = %d, want 2 (before fetch 0 and fetch 1000)", long)
	}
	if short != len(ids) {
		t.Fatalf("short pauses = %d, want %d", short, len(ids))
	}
	if sleeper.delays[0] != 10*time.Second {
		t.Fatalf("first sleep should be the long pause")
	}
}

func TestArtistNamesHonoursZeroDelays(t *testing.T) {
	cfg := testConfig()
	cfg.MinSleep, cfg.MaxSleep, cfg.LongPause = 0, 0, 0
	sleeper := &sleepLog{}
	crawler := NewCrawler(&fakeCatalog{}, cfg, zap.NewNop()).WithSleeper(sleeper)

	if _, err := crawler.ArtistNames(context.Background(), []string{"a", "b"}, "x"); err != nil {
		t.Fatalf("ArtistNames: %v", err)
	}
	for i, d := range sleeper.delays {
		if d != 0 {
			t.Fatalf("sleep %d = %v, want 0", i, d)
		}
	}
}

func TestArtistNamesAbortsOnError(t *testing.T) {
	catalog := &fakeCatalog{artistErr: stderrors.New("status 503")}
	crawler := NewCrawler(catalog, testConfig(), zap.NewNop()).WithSleeper(&sleepLog{})

	if _, err := crawler.ArtistNames(context.Background(), []string{"a", "b"}, "x"); err == nil {
		t.Fatalf("expected error")
	}
	if len(catalog.artistCalls) != 1 {
		t.Fatalf("crawl should stop at the first failure, calls = %v", catalog.artistCalls)
	}
}

func TestSearchPlaylistsRejectsOtherTypes(t *testing.T) {
	crawler := NewCrawler(&fakeCatalog{}, testConfig(), zap.NewNop())

	_, err := crawler.SearchPlaylists(context.Background(), "q", "track", []int{0}, 50)
	var vErr *errors.ValidationError
	if !stderrors.As(err, &vErr) || vErr.Field != "spotify.type" {
		t.Fatalf("expected spotify.type validation error, got %v", err)
	}
}

func TestSearchPlaylistsKeepsOffsetOrder(t *testing.T) {
	catalog := &fakeCatalog{playlists: map[int][]string{0: {"a", "b"}, 50: {"b", "c"}}}
	crawler := NewCrawler(catalog, testConfig(), zap.NewNop())

	got, err := crawler.SearchPlaylists(context.Background(), "q", "playlist", []int{50, 0}, 50)
	if err != nil {
		t.Fatalf("SearchPlaylists: %v", err)
	}
	if want := []string{"b", "c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}
