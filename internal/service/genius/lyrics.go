package genius

import (
	"bytes"
	"context"
	"math/rand"
	"net/http"
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

// FetcherConfig holds the pacing and 429 limits of the lyrics fetcher.
type FetcherConfig struct {
	BaseURL             string
	MinSleep            time.Duration
	MaxSleep            time.Duration
	MaxRateLimitRetries int
	FallbackBackoff     time.Duration
	MaxRateLimitWait    time.Duration
}

// LyricsFetcher downloads song pages one at a time with a jittered delay and
// waits out 429 responses.
type LyricsFetcher struct {
	http    *resty.Client
	cfg     FetcherConfig
	sleeper util.Sleeper
	now     func() time.Time
	rng     *rand.Rand
	logger  *zap.Logger
}

// NewLyricsFetcher creates a fetcher for song pages under cfg.BaseURL.
func NewLyricsFetcher(cfg FetcherConfig, logger *zap.Logger) *LyricsFetcher {
	if cfg.FallbackBackoff <= 0 {
		cfg.FallbackBackoff = constants.RateLimitDefaults.FallbackBackoff
	}
	if cfg.MaxRateLimitWait <= 0 {
		cfg.MaxRateLimitWait = constants.RateLimitDefaults.MaxWait
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", constants.GeniusConfig.UserAgent).
		SetTimeout(constants.GeniusConfig.RequestTimeout)

	return &LyricsFetcher{
		http:    httpClient,
		cfg:     cfg,
		sleeper: util.ContextSleeper,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger,
	}
}

// WithSleeper replaces the pause implementation; used by tests.
func (f *LyricsFetcher) WithSleeper(s util.Sleeper) *LyricsFetcher {
	f.sleeper = s
	return f
}

// WithClock replaces the clock the reset header is compared against.
func (f *LyricsFetcher) WithClock(now func() time.Time) *LyricsFetcher {
	f.now = now
	return f
}

// FetchLyrics returns the lyrics of every song whose page was fetched and parsed.
// Songs that fail are logged and left out. Only context cancellation is returned
// as an error, together with the songs collected so far.
func (f *LyricsFetcher) FetchLyrics(ctx context.Context, songs []domain.Song) (domain.ArtistLyricsFile, error) {
	out := make(domain.ArtistLyricsFile, len(songs))

	for _, song := range songs {
		delay := util.UniformDuration(f.rng, f.cfg.MinSleep, f.cfg.MaxSleep)
		if err := f.sleeper.Sleep(ctx, delay); err != nil {
			return out, err
		}

		lyrics, ok, err := f.fetchSong(ctx, song)
		if err != nil {
			return out, err
		}
		if ok {
			out[song.Title] = lyrics
		}
	}

	return out, nil
}

// fetchSong runs one song through PENDING -> DONE | WAIT -> PENDING | SKIPPED.
func (f *LyricsFetcher) fetchSong(ctx context.Context, song domain.Song) (domain.SongLyrics, bool, error) {
	rateLimited := 0

	for {
		resp, err := f.http.R().SetContext(ctx).Get(song.Path)
		if err != nil {
			if ctx.Err() != nil {
				return domain.SongLyrics{}, false, ctx.Err()
			}
			f.logger.Warn("Song request failed, skipping",
				zap.String("song", song.Title),
				zap.Error(err),
			)
			return domain.SongLyrics{}, false, nil
		}

		switch resp.StatusCode() {
		case http.StatusOK:
			text, found, err := extractLyricsText(bytes.NewReader(resp.Body()))
			if err != nil {
				f.logger.Warn("Song page could not be parsed, skipping", zap.String("song", song.Title), zap.Error(err))
				return domain.SongLyrics{}, false, nil
			}
			if !found {
				f.logger.Info("Lyrics not found", zap.String("song", song.Title))
				return domain.SongLyrics{}, false, nil
			}
			verses, refrains := ExtractVerseRefrain(text)
			return domain.SongLyrics{Lyrics: text, Verses: verses, Refrains: refrains}, true, nil

		case http.StatusTooManyRequests:
			rateLimited++
			wait, fromHeader := f.rateLimitWait(resp.Header())
			if rateLimited > f.cfg.MaxRateLimitRetries {
				rlErr := errors.NewRateLimitError("rate limit retries exhausted", rateLimited, wait, map[string]any{"song": song.Title})
				f.logger.Warn("Rate limit retries exhausted, skipping",
					zap.String("song", song.Title),
					zap.Error(rlErr),
				)
				return domain.SongLyrics{}, false, nil
			}

			f.logger.Info("Rate limit exceeded, sleeping",
				zap.String("song", song.Title),
				zap.Duration("wait", wait),
				zap.Bool("reset_header", fromHeader),
				zap.Int("attempt", rateLimited),
			)
			if err := f.sleeper.Sleep(ctx, wait); err != nil {
				return domain.SongLyrics{}, false, err
			}

		default:
			f.logger.Warn("Error fetching song, skipping",
				zap.String("song", song.Title),
				zap.Int("status", resp.StatusCode()),
			)
			return domain.SongLyrics{}, false, nil
		}
	}
}

// rateLimitWait reads the reset epoch header. A missing or malformed header
// yields the fallback backoff; the wait never exceeds MaxRateLimitWait.
func (f *LyricsFetcher) rateLimitWait(header http.Header) (time.Duration, bool) {
	raw := strings.TrimSpace(header.Get(constants.GeniusConfig.RateLimitHeader))
	reset, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil {
		return f.capWait(f.cfg.FallbackBackoff), false
	}

	wait := time.Duration(reset-f.now().Unix()) * time.Second
	if wait < 0 {
		wait = 0
	}
	return f.capWait(wait), true
}

func (f *LyricsFetcher) capWait(wait time.Duration) time.Duration {
	if wait > f.cfg.MaxRateLimitWait {
		return f.cfg.MaxRateLimitWait
	}
	return wait
}
