package config

import (
	"fmt"
	"strings"

	"github.com/kapu/ghostwriter-go/pkg/errors"
)

const maxSleepSeconds = 300

// Validate checks every structural setting once at load time. Credentials are
// checked separately by the stage that needs them.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateSpotify,
		c.validateGenius,
		c.validatePreprocessor,
		c.validateQdrant,
		c.validateModel,
		c.validatePrompt,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	if c.Artists.LyricsDir == "" {
		return errors.NewValidationError("artists.lyrics_dir is required", "artists.lyrics_dir", c.Artists.LyricsDir)
	}
	return nil
}

func (c *Config) validateSpotify() error {
	s := c.Spotify
	if s.Type != "playlist" {
		return errors.NewValidationError("spotify.type must be \"playlist\"", "spotify.type", s.Type)
	}
	if s.Limit < 1 || s.Limit > 50 {
		return errors.NewValidationError("spotify.limit must be between 1 and 50", "spotify.limit", s.Limit)
	}
	for _, offset := range s.Offsets {
		if offset < 0 {
			return errors.NewValidationError("spotify.offsets must be non-negative", "spotify.offsets", offset)
		}
	}
	if s.LongPauseEvery < 1 {
		return errors.NewValidationError("spotify.long_pause_every must be positive", "spotify.long_pause_every", s.LongPauseEvery)
	}
	if s.LongPauseTime < 0 || s.LongPauseTime > maxSleepSeconds {
		return errors.NewValidationError("spotify.long_pause_time out of range", "spotify.long_pause_time", s.LongPauseTime)
	}
	return validateSleepBounds("spotify", s.MinSleepTime, s.MaxSleepTime)
}

func (c *Config) validateGenius() error {
	g := c.Genius
	if g.BaseURL == "" || g.APIBaseURL == "" {
		return errors.NewValidationError("genius.base_url and genius.api_base_url are required", "genius.base_url", g.BaseURL)
	}
	if g.PerPage < 1 || g.PerPage > 50 {
		return errors.NewValidationError("genius.per_page must be between 1 and 50", "genius.per_page", g.PerPage)
	}
	if g.MaxRateLimitRetries < 0 {
		return errors.NewValidationError("genius.max_rate_limit_retries must be non-negative", "genius.max_rate_limit_retries", g.MaxRateLimitRetries)
	}
	if g.FallbackBackoff <= 0 {
		return errors.NewValidationError("genius.fallback_backoff must be positive", "genius.fallback_backoff", g.FallbackBackoff)
	}
	if g.MaxRateLimitWait < g.FallbackBackoff {
		return errors.NewValidationError("genius.max_rate_limit_wait must be at least genius.fallback_backoff", "genius.max_rate_limit_wait", g.MaxRateLimitWait)
	}
	return validateSleepBounds("genius", g.MinSleepTime, g.MaxSleepTime)
}

func validateSleepBounds(section string, minSleep, maxSleep float64) error {
	if minSleep < 0 {
		return errors.NewValidationError(section+".min_sleep_time must be non-negative", section+".min_sleep_time", minSleep)
	}
	if maxSleep < minSleep {
		return errors.NewValidationError(section+".max_sleep_time must be >= min_sleep_time", section+".max_sleep_time", maxSleep)
	}
	if maxSleep > maxSleepSeconds {
		return errors.NewValidationError(fmt.Sprintf("%s.max_sleep_time must not exceed %ds", section, maxSleepSeconds), section+".max_sleep_time", maxSleep)
	}
	return nil
}

func (c *Config) validatePreprocessor() error {
	p := c.Preprocessor
	if p.WordsLowerbound < 0 {
		return errors.NewValidationError("preprocessor.lyrics_words_lowerbound must be non-negative", "preprocessor.lyrics_words_lowerbound", p.WordsLowerbound)
	}
	if p.WordsUpperbound < p.WordsLowerbound {
		return errors.NewValidationError("preprocessor.lyrics_words_upperbound must be >= lowerbound", "preprocessor.lyrics_words_upperbound", p.WordsUpperbound)
	}
	if p.TopWords < 1 {
		return errors.NewValidationError("preprocessor.top_words must be positive", "preprocessor.top_words", p.TopWords)
	}
	seen := make(map[string]struct{}, len(p.Emotions))
	for _, emotion := range p.Emotions {
		if strings.TrimSpace(emotion) == "" {
			return errors.NewValidationError("preprocessor.emotions must not contain blanks", "preprocessor.emotions", p.Emotions)
		}
		if _, dup := seen[emotion]; dup {
			return errors.NewValidationError("preprocessor.emotions contains a duplicate", "preprocessor.emotions", emotion)
		}
		seen[emotion] = struct{}{}
	}
	if p.SavePath == "" {
		return errors.NewValidationError("preprocessor.save_path is required", "preprocessor.save_path", p.SavePath)
	}
	return nil
}

func (c *Config) validateQdrant() error {
	q := c.Qdrant
	if q.URL == "" || q.CollectionName == "" {
		return errors.NewValidationError("qdrant.url and qdrant.collection_name are required", "qdrant.url", q.URL)
	}
	switch q.EmbeddingsProvider {
	case "openai", "gemini":
	default:
		return errors.NewValidationError("qdrant.embeddings_provider must be openai or gemini", "qdrant.embeddings_provider", q.EmbeddingsProvider)
	}
	if q.ChunkSize < 1 {
		return errors.NewValidationError("qdrant.chunk_size must be positive", "qdrant.chunk_size", q.ChunkSize)
	}
	if q.ChunkOverlap < 0 || q.ChunkOverlap >= q.ChunkSize {
		return errors.NewValidationError("qdrant.chunk_overlap must be in [0, chunk_size)", "qdrant.chunk_overlap", q.ChunkOverlap)
	}
	if q.BatchSize < 1 || q.MaxConcurrency < 1 {
		return errors.NewValidationError("qdrant.batch_size and qdrant.max_concurrency must be positive", "qdrant.batch_size", q.BatchSize)
	}
	if q.SearchKwargs.K < 1 {
		return errors.NewValidationError("qdrant.search_kwargs.k must be positive", "qdrant.search_kwargs.k", q.SearchKwargs.K)
	}
	return nil
}

func (c *Config) validateModel() error {
	m := c.Model
	if m.Temperature < 0 || m.Temperature > 2 {
		return errors.NewValidationError("model.temperature must be in [0, 2]", "model.temperature", m.Temperature)
	}
	if m.TopP <= 0 || m.TopP > 1 {
		return errors.NewValidationError("model.top_p must be in (0, 1]", "model.top_p", m.TopP)
	}
	if m.MaxNewTokens < 1 {
		return errors.NewValidationError("model.max_new_tokens must be positive", "model.max_new_tokens", m.MaxNewTokens)
	}
	return nil
}

func (c *Config) validatePrompt() error {
	for _, variable := range c.Prompt.InputVariables {
		if !strings.Contains(c.Prompt.PromptTemplate, "{"+variable+"}") {
			return errors.NewValidationError("prompt.prompt_template is missing a placeholder", "prompt.input_variable", variable)
		}
	}
	return nil
}

// ValidateSpotifyCredentials is called by the artist crawler before it builds its client.
func (c *Config) ValidateSpotifyCredentials() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return errors.NewValidationError("spotify client id and secret are required", "spotify.credentials_path", c.Spotify.CredentialsPath)
	}
	if c.Spotify.Query == "" || c.Spotify.Genre == "" {
		return errors.NewValidationError("spotify.query and spotify.genre are required", "spotify.query", c.Spotify.Query)
	}
	return nil
}

func (c *Config) ValidateGeniusCredentials() error {
	if c.Genius.AccessToken == "" {
		return errors.NewValidationError("genius access token is required", "genius.credentials_path", c.Genius.CredentialsPath)
	}
	return nil
}

// ValidateModelCredentials requires the key of the configured embeddings provider and,
// for generation, at least one of the Gemini or OpenAI keys.
func (c *Config) ValidateModelCredentials(needGeneration bool) error {
	switch c.Qdrant.EmbeddingsProvider {
	case "openai":
		if c.Model.OpenAIAPIKey == "" {
			return errors.NewValidationError("OPENAI_API_KEY is required for openai embeddings", "OPENAI_API_KEY", "")
		}
	case "gemini":
		if c.Model.GeminiAPIKey == "" {
			return errors.NewValidationError("GEMINI_API_KEY is required for gemini embeddings", "GEMINI_API_KEY", "")
		}
	}
	if needGeneration && c.Model.GeminiAPIKey == "" && c.Model.OpenAIAPIKey == "" {
		return errors.NewValidationError("GEMINI_API_KEY or OPENAI_API_KEY is required", "GEMINI_API_KEY", "")
	}
	return nil
}
