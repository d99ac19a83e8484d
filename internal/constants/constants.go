package constants

import "time"

var SpotifyThrottle = struct {
	LongPauseEvery int
	LongPause      time.Duration
	MinJitter      time.Duration
	MaxJitter      time.Duration
}{
	LongPauseEvery: 1000,                   // index-based, includes the first fetch
	LongPause:      10 * time.Second,       // provider throttling guard
	MinJitter:      200 * time.Millisecond, // per artist detail fetch
	MaxJitter:      700 * time.Millisecond,
}

var GeniusConfig = struct {
	BaseURL          string
	APIBaseURL       string
	SongsPerPage     int
	UserAgent        string
	RequestTimeout   time.Duration
	RateLimitHeader  string
	LyricsClassExact string
	LyricsClassRoot  string
}{
	BaseURL:          "https://genius.com",
	APIBaseURL:       "https://api.genius.com",
	SongsPerPage:     50,
	UserAgent:        "Mozilla/5.0 (compatible; GhostwriterCrawler/1.0)",
	RequestTimeout:   15 * time.Second,
	RateLimitHeader:  "X-RateLimit-Reset",
	LyricsClassExact: "lyrics",
	LyricsClassRoot:  "Lyrics__Root",
}

var RateLimitDefaults = struct {
	MaxRetries      int
	FallbackBackoff time.Duration
	MaxWait         time.Duration
}{
	MaxRetries:      5,
	FallbackBackoff: 30 * time.Second,
	MaxWait:         15 * time.Minute,
}

var CacheTTL = struct {
	GeniusArtistID time.Duration
	GeniusSongs    time.Duration
}{
	GeniusArtistID: 7 * 24 * time.Hour, // artist ids never change
	GeniusSongs:    24 * time.Hour,     // discographies grow slowly
}

var CacheKeys = struct {
	GeniusArtistPrefix string
	GeniusSongsPrefix  string
}{
	GeniusArtistPrefix: "ghostwriter:genius:artist:",
	GeniusSongsPrefix:  "ghostwriter:genius:songs:",
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,
	ResetTimeout:        30 * time.Second,
	RateLimitTimeout:    10 * time.Minute,
	HealthCheckInterval: 2 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

var QdrantConfig = struct {
	Timeout  time.Duration
	Distance string
}{
	Timeout:  30 * time.Second,
	Distance: "Cosine",
}

var IngestConfig = struct {
	BatchSize      int
	MaxConcurrency int
}{
	BatchSize:      32,
	MaxConcurrency: 4,
}

var WebSocketConfig = struct {
	ReadLimit        int64
	WriteTimeout     time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	HandshakeTimeout time.Duration
	StreamDelay      time.Duration
	MaxHistoryTurns  int
	MaxQueryLength   int
}{
	ReadLimit:        8 * 1024,
	WriteTimeout:     10 * time.Second,
	PongWait:         60 * time.Second,
	PingPeriod:       50 * time.Second, // must stay below PongWait
	HandshakeTimeout: 10 * time.Second,
	StreamDelay:      50 * time.Millisecond, // between streamed words
	MaxHistoryTurns:  6,
	MaxQueryLength:   500,
}

// NeutralSentiment labels songs without any lexicon hit.
const NeutralSentiment = "neutre"
