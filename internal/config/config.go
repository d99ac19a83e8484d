package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the pipeline configuration.
const DefaultPath = "config/main.yml"

type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Spotify      SpotifyConfig      `yaml:"spotify"`
	Genius       GeniusConfig       `yaml:"genius"`
	Artists      ArtistsConfig      `yaml:"artists"`
	Preprocessor PreprocessorConfig `yaml:"preprocessor"`
	Qdrant       QdrantConfig       `yaml:"qdrant"`
	Model        ModelConfig        `yaml:"model"`
	Prompt       PromptConfig       `yaml:"prompt"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Chat         ChatConfig         `yaml:"chat"`

	// Path is the file the config was read from; artist names are written back there.
	Path string `yaml:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type SpotifyConfig struct {
	CredentialsPath string  `yaml:"credentials_path"`
	BaseURL         string  `yaml:"base_url"`
	Type            string  `yaml:"type"`
	Limit           int     `yaml:"limit"`
	Query           string  `yaml:"query"`
	Genre           string  `yaml:"genre"`
	Offsets         []int   `yaml:"offsets"`
	MinSleepTime    float64 `yaml:"min_sleep_time"`
	MaxSleepTime    float64 `yaml:"max_sleep_time"`
	LongPauseEvery  int     `yaml:"long_pause_every"`
	LongPauseTime   float64 `yaml:"long_pause_time"`

	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
}

type GeniusConfig struct {
	CredentialsPath     string  `yaml:"credentials_path"`
	BaseURL             string  `yaml:"base_url"`
	APIBaseURL          string  `yaml:"api_base_url"`
	MinSleepTime        float64 `yaml:"min_sleep_time"`
	MaxSleepTime        float64 `yaml:"max_sleep_time"`
	PerPage             int     `yaml:"per_page"`
	MaxRateLimitRetries int     `yaml:"max_rate_limit_retries"`
	FallbackBackoff     float64 `yaml:"fallback_backoff"`
	MaxRateLimitWait    float64 `yaml:"max_rate_limit_wait"`

	AccessToken string `yaml:"-"`
}

type ArtistsConfig struct {
	Names     []string `yaml:"names"`
	LyricsDir string   `yaml:"lyrics_dir"`
}

type PreprocessorConfig struct {
	InputDir        string   `yaml:"input_dir"`
	WordsLowerbound int      `yaml:"lyrics_words_lowerbound"`
	WordsUpperbound int      `yaml:"lyrics_words_upperbound"`
	EmotionsCSVPath string   `yaml:"emotions_csv_path"`
	Emotions        []string `yaml:"emotions"`
	LemmasPath      string   `yaml:"lemmas_path"`
	TopWords        int      `yaml:"top_words"`
	SavePath        string   `yaml:"save_path"`
	WriteToPostgres bool     `yaml:"write_to_postgres"`
}

type SearchKwargs struct {
	K int `yaml:"k"`
}

type QdrantConfig struct {
	URL                 string       `yaml:"url"`
	CollectionName      string       `yaml:"collection_name"`
	EmbeddingsProvider  string       `yaml:"embeddings_provider"`
	EmbeddingsModelName string       `yaml:"embeddings_model_name"`
	ChunkSize           int          `yaml:"chunk_size"`
	ChunkOverlap        int          `yaml:"chunk_overlap"`
	BatchSize           int          `yaml:"batch_size"`
	MaxConcurrency      int          `yaml:"max_concurrency"`
	SearchKwargs        SearchKwargs `yaml:"search_kwargs"`

	APIKey string `yaml:"-"`
}

type ModelConfig struct {
	GeminiModel    string  `yaml:"gemini_model"`
	OpenAIModel    string  `yaml:"openai_model"`
	EnableFallback bool    `yaml:"enable_fallback"`
	Temperature    float32 `yaml:"temperature"`
	TopP           float32 `yaml:"top_p"`
	MaxNewTokens   int     `yaml:"max_new_tokens"`

	GeminiAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
}

type PromptConfig struct {
	PromptTemplate string   `yaml:"prompt_template"`
	InputVariables []string `yaml:"input_variable"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type ChatConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads the YAML file at path, applies defaults, environment overrides and
// credential files, then validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Path = path

	_ = godotenv.Load()

	if err := cfg.loadCredentials(filepath.Dir(path)); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes a YAML document and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := presetConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// presetConfig holds the defaults of fields where zero is a valid setting.
// They are set before decoding so that only keys absent from the file keep them.
func presetConfig() Config {
	var cfg Config
	cfg.Spotify.MinSleepTime = constants.SpotifyThrottle.MinJitter.Seconds()
	cfg.Spotify.MaxSleepTime = constants.SpotifyThrottle.MaxJitter.Seconds()
	cfg.Spotify.LongPauseTime = constants.SpotifyThrottle.LongPause.Seconds()
	cfg.Genius.MaxRateLimitRetries = constants.RateLimitDefaults.MaxRetries
	cfg.Preprocessor.WordsLowerbound = 300
	cfg.Preprocessor.WordsUpperbound = 1000
	cfg.Model.Temperature = 0.7
	return cfg
}

// applyDefaults fills fields where zero is never a meaningful setting.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Spotify.CredentialsPath == "" {
		cfg.Spotify.CredentialsPath = "spotify_cred.json"
	}
	if cfg.Spotify.Type == "" {
		cfg.Spotify.Type = "playlist"
	}
	if cfg.Spotify.Limit == 0 {
		cfg.Spotify.Limit = 50
	}
	if len(cfg.Spotify.Offsets) == 0 {
		cfg.Spotify.Offsets = []int{0}
	}
	if cfg.Spotify.LongPauseEvery == 0 {
		cfg.Spotify.LongPauseEvery = constants.SpotifyThrottle.LongPauseEvery
	}

	if cfg.Genius.CredentialsPath == "" {
		cfg.Genius.CredentialsPath = "genius_cred.json"
	}
	if cfg.Genius.BaseURL == "" {
		cfg.Genius.BaseURL = constants.GeniusConfig.BaseURL
	}
	if cfg.Genius.APIBaseURL == "" {
		cfg.Genius.APIBaseURL = constants.GeniusConfig.APIBaseURL
	}
	if cfg.Genius.PerPage == 0 {
		cfg.Genius.PerPage = constants.GeniusConfig.SongsPerPage
	}
	if cfg.Genius.FallbackBackoff == 0 {
		cfg.Genius.FallbackBackoff = constants.RateLimitDefaults.FallbackBackoff.Seconds()
	}
	if cfg.Genius.MaxRateLimitWait == 0 {
		cfg.Genius.MaxRateLimitWait = constants.RateLimitDefaults.MaxWait.Seconds()
	}

	if cfg.Artists.LyricsDir == "" {
		cfg.Artists.LyricsDir = "data/raw"
	}

	if cfg.Preprocessor.InputDir == "" {
		cfg.Preprocessor.InputDir = cfg.Artists.LyricsDir
	}
	if cfg.Preprocessor.EmotionsCSVPath == "" {
		cfg.Preprocessor.EmotionsCSVPath = "data/external/FEEL.csv"
	}
	if len(cfg.Preprocessor.Emotions) == 0 {
		cfg.Preprocessor.Emotions = []string{"joie", "peur", "tristesse", "colère", "surprise", "dégout"}
	}
	if cfg.Preprocessor.TopWords == 0 {
		cfg.Preprocessor.TopWords = 5
	}
	if cfg.Preprocessor.SavePath == "" {
		cfg.Preprocessor.SavePath = "data/intermediate/lyrics_data.parquet"
	}

	if cfg.Qdrant.URL == "" {
		cfg.Qdrant.URL = "http://localhost:6333"
	}
	if cfg.Qdrant.CollectionName == "" {
		cfg.Qdrant.CollectionName = "french_rap_lyrics"
	}
	if cfg.Qdrant.EmbeddingsProvider == "" {
		cfg.Qdrant.EmbeddingsProvider = "openai"
	}
	if cfg.Qdrant.EmbeddingsModelName == "" {
		cfg.Qdrant.EmbeddingsModelName = "text-embedding-3-small"
	}
	if cfg.Qdrant.ChunkSize == 0 {
		cfg.Qdrant.ChunkSize = 500
	}
	if cfg.Qdrant.BatchSize == 0 {
		cfg.Qdrant.BatchSize = constants.IngestConfig.BatchSize
	}
	if cfg.Qdrant.MaxConcurrency == 0 {
		cfg.Qdrant.MaxConcurrency = constants.IngestConfig.MaxConcurrency
	}
	if cfg.Qdrant.SearchKwargs.K == 0 {
		cfg.Qdrant.SearchKwargs.K = 4
	}

	if cfg.Model.GeminiModel == "" {
		cfg.Model.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.Model.OpenAIModel == "" {
		cfg.Model.OpenAIModel = "gpt-4.1-mini"
	}
	if cfg.Model.TopP == 0 {
		cfg.Model.TopP = 0.95
	}
	if cfg.Model.MaxNewTokens == 0 {
		cfg.Model.MaxNewTokens = 1024
	}

	if cfg.Prompt.PromptTemplate == "" {
		cfg.Prompt.PromptTemplate = defaultPromptTemplate
	}
	if len(cfg.Prompt.InputVariables) == 0 {
		cfg.Prompt.InputVariables = []string{"context", "question"}
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}

	if cfg.Chat.Addr == "" {
		cfg.Chat.Addr = ":8080"
	}
}

const defaultPromptTemplate = `Tu es un ghostwriter de rap français. Utilise les extraits de paroles suivants pour répondre.

Extraits :
{context}

Question : {question}

Réponse :`

func (c *Config) applyEnv() {
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)

	c.Spotify.ClientID = getEnv("SPOTIFY_CLIENT_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = getEnv("SPOTIFY_CLIENT_SECRET", c.Spotify.ClientSecret)
	c.Genius.AccessToken = getEnv("GENIUS_ACCESS_TOKEN", c.Genius.AccessToken)

	c.Qdrant.URL = getEnv("QDRANT_URL", c.Qdrant.URL)
	c.Qdrant.APIKey = getEnv("QDRANT_API_KEY", c.Qdrant.APIKey)

	c.Model.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Model.GeminiAPIKey)
	c.Model.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.Model.OpenAIAPIKey)

	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)

	c.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.Port = getEnvInt("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.Enabled = getEnvBool("POSTGRES_ENABLED", c.Postgres.Enabled)

	c.Chat.Addr = getEnv("CHAT_ADDR", c.Chat.Addr)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
