package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kapu/ghostwriter-go/pkg/errors"
	"gopkg.in/yaml.v3"
)

const sampleConfig = `# pipeline settings
logging:
  level: debug
spotify:
  type: playlist
  limit: 50
  query: French rap
  genre: french hip hop
  offsets: [0, 50, 100]
genius:
  min_sleep_time: 1
  max_sleep_time: 3
artists:
  names:
    - Old Name
  lyrics_dir: data/raw
preprocessor:
  lyrics_words_lowerbound: 300
  lyrics_words_upperbound: 1000
  emotions_csv_path: data/external/FEEL.csv
qdrant:
  url: http://localhost:6333
  collection_name: lyrics
  chunk_size: 400
  chunk_overlap: 40
  search_kwargs:
    k: 3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Genius.APIBaseURL != "https://api.genius.com" {
		t.Errorf("api base url default = %q", cfg.Genius.APIBaseURL)
	}
	if cfg.Genius.PerPage != 50 {
		t.Errorf("per_page default = %d", cfg.Genius.PerPage)
	}
	if cfg.Genius.MaxRateLimitRetries != 5 || cfg.Genius.FallbackBackoff != 30 {
		t.Errorf("rate limit defaults = %d / %v", cfg.Genius.MaxRateLimitRetries, cfg.Genius.FallbackBackoff)
	}
	if cfg.Spotify.MinSleepTime != 0.2 || cfg.Spotify.MaxSleepTime != 0.7 {
		t.Errorf("spotify jitter defaults = %v-%v", cfg.Spotify.MinSleepTime, cfg.Spotify.MaxSleepTime)
	}
	if got := strings.Join(cfg.Preprocessor.Emotions, ","); got != "joie,peur,tristesse,colère,surprise,dégout" {
		t.Errorf("emotions default = %s", got)
	}
	if cfg.Preprocessor.InputDir != "data/raw" {
		t.Errorf("input dir should follow lyrics dir, got %q", cfg.Preprocessor.InputDir)
	}
	if len(cfg.Spotify.Offsets) != 3 || cfg.Spotify.Offsets[2] != 100 {
		t.Errorf("offsets = %v", cfg.Spotify.Offsets)
	}
}

func TestParseKeepsExplicitZeros(t *testing.T) {
	doc := sampleConfig + `
model:
  temperature: 0
`
	doc = strings.Replace(doc, "genius:\n", "genius:\n  max_rate_limit_retries: 0\n", 1)
	doc = strings.Replace(doc, "spotify:\n", "spotify:\n  min_sleep_time: 0\n  max_sleep_time: 0\n  long_pause_time: 0\n", 1)
	doc = strings.Replace(doc, "lyrics_words_lowerbound: 300", "lyrics_words_lowerbound: 0", 1)

	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Genius.MaxRateLimitRetries != 0 {
		t.Errorf("max_rate_limit_retries = %d, want 0", cfg.Genius.MaxRateLimitRetries)
	}
	if cfg.Spotify.MinSleepTime != 0 || cfg.Spotify.MaxSleepTime != 0 || cfg.Spotify.LongPauseTime != 0 {
		t.Errorf("spotify sleeps = %v-%v, pause %v", cfg.Spotify.MinSleepTime, cfg.Spotify.MaxSleepTime, cfg.Spotify.LongPauseTime)
	}
	if cfg.Preprocessor.WordsLowerbound != 0 || cfg.Preprocessor.WordsUpperbound != 1000 {
		t.Errorf("word bounds = %d..%d", cfg.Preprocessor.WordsLowerbound, cfg.Preprocessor.WordsUpperbound)
	}
	if cfg.Model.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", cfg.Model.Temperature)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"inverted genius sleep", func(c *Config) { c.Genius.MinSleepTime, c.Genius.MaxSleepTime = 5, 1 }, "genius.max_sleep_time"},
		{"negative spotify sleep", func(c *Config) { c.Spotify.MinSleepTime = -1 }, "spotify.min_sleep_time"},
		{"huge sleep", func(c *Config) { c.Genius.MaxSleepTime = 10000 }, "genius.max_sleep_time"},
		{"inverted word bounds", func(c *Config) { c.Preprocessor.WordsLowerbound, c.Preprocessor.WordsUpperbound = 500, 100 }, "preprocessor.lyrics_words_upperbound"},
		{"duplicate emotion", func(c *Config) { c.Preprocessor.Emotions = []string{"joie", "joie"} }, "preprocessor.emotions"},
		{"overlap too large", func(c *Config) { c.Qdrant.ChunkOverlap = c.Qdrant.ChunkSize }, "qdrant.chunk_overlap"},
		{"bad search type", func(c *Config) { c.Spotify.Type = "track" }, "spotify.type"},
		{"limit above api max", func(c *Config) { c.Spotify.Limit = 51 }, "spotify.limit"},
		{"unknown embedder", func(c *Config) { c.Qdrant.EmbeddingsProvider = "ollama" }, "qdrant.embeddings_provider"},
		{"template without question", func(c *Config) { c.Prompt.PromptTemplate = "{context}" }, "prompt.input_variable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(sampleConfig))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			tt.mut(cfg)

			err = cfg.Validate()
			var vErr *errors.ValidationError
			if !stderrors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestValidateModelCredentials(t *testing.T) {
	tests := []struct {
		name       string
		provider   string
		gemini     string
		openai     string
		generation bool
		wantErr    bool
	}{
		{"openai embeddings only", "openai", "", "sk", false, false},
		{"openai embeddings without key", "openai", "g", "", false, true},
		{"gemini embeddings", "gemini", "g", "", false, false},
		{"openai generation alone", "openai", "", "sk", true, false},
		{"gemini generation", "gemini", "g", "", true, false},
		{"no generation key", "openai", "", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(sampleConfig))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			cfg.Qdrant.EmbeddingsProvider = tt.provider
			cfg.Model.GeminiAPIKey = tt.gemini
			cfg.Model.OpenAIAPIKey = tt.openai

			err = cfg.ValidateModelCredentials(tt.generation)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateModelCredentials(%v) = %v, wantErr %v", tt.generation, err, tt.wantErr)
			}
		})
	}
}

func TestLoadReadsCredentialFilesAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", sampleConfig)
	writeFile(t, dir, "spotify_cred.json", `{"cid": "client-id", "cis": "client-secret"}`)
	writeFile(t, dir, "genius_cred.json", `{"cat": "file-token"}`)

	t.Setenv("GENIUS_ACCESS_TOKEN", "env-token")
	t.Setenv("SPOTIFY_CLIENT_ID", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
	if cfg.Spotify.ClientID != "client-id" || cfg.Spotify.ClientSecret != "client-secret" {
		t.Errorf("spotify credentials = %q/%q", cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	}
	if cfg.Genius.AccessToken != "env-token" {
		t.Errorf("env should override genius token, got %q", cfg.Genius.AccessToken)
	}
	if err := cfg.ValidateSpotifyCredentials(); err != nil {
		t.Errorf("ValidateSpotifyCredentials: %v", err)
	}
	if err := cfg.ValidateGeniusCredentials(); err != nil {
		t.Errorf("ValidateGeniusCredentials: %v", err)
	}
}

func TestLoadWithoutCredentialFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", sampleConfig)
	t.Setenv("GENIUS_ACCESS_TOKEN", "")
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateGeniusCredentials(); err == nil {
		t.Fatalf("expected missing genius token to fail")
	}
	if err := cfg.ValidateSpotifyCredentials(); err == nil {
		t.Fatalf("expected missing spotify credentials to fail")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", "spotify: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestWriteArtistNamesReplacesOnlyNames(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", sampleConfig)

	if err := WriteArtistNames(path, []string{"Nekfeu", "Alpha Wann", "DJ/Fédé*"}); err != nil {
		t.Fatalf("WriteArtistNames: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []string{"Alpha Wann", "DJ/Fédé*", "Nekfeu"}
	if strings.Join(cfg.Artists.Names, "|") != strings.Join(want, "|") {
		t.Fatalf("names = %v, want %v", cfg.Artists.Names, want)
	}
	if cfg.Spotify.Query != "French rap" || cfg.Qdrant.SearchKwargs.K != 3 {
		t.Fatalf("other settings were not preserved: %+v", cfg.Spotify)
	}
	if !strings.Contains(string(data), "# pipeline settings") {
		t.Fatalf("comments should survive the rewrite")
	}
}

func TestWriteArtistNamesCreatesMissingSection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", "logging:\n  level: info\n")

	if err := WriteArtistNames(path, []string{"Booba"}); err != nil {
		t.Fatalf("WriteArtistNames: %v", err)
	}

	var raw map[string]map[string]any
	data, _ := os.ReadFile(path)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	names, ok := raw["artists"]["names"].([]any)
	if !ok || len(names) != 1 || names[0] != "Booba" {
		t.Fatalf("artists.names = %#v", raw["artists"]["names"])
	}
}
