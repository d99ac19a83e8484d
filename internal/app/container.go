package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/kapu/ghostwriter-go/internal/config"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/service/ai"
	"github.com/kapu/ghostwriter-go/internal/service/cache"
	"github.com/kapu/ghostwriter-go/internal/service/chat"
	"github.com/kapu/ghostwriter-go/internal/service/database"
	"github.com/kapu/ghostwriter-go/internal/service/enrich"
	"github.com/kapu/ghostwriter-go/internal/service/genius"
	"github.com/kapu/ghostwriter-go/internal/service/ingest"
	"github.com/kapu/ghostwriter-go/internal/service/spotify"
	"github.com/kapu/ghostwriter-go/internal/service/vectorstore"
	"github.com/kapu/ghostwriter-go/internal/util"
	"go.uber.org/zap"
)

// Container assembles the services of each pipeline stage from the config.
// Shared infrastructure (Redis, Postgres) is opened on first use and released
// by Close.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	mu      sync.Mutex
	closers []func()
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		return nil, fmt.Errorf("context must not be nil")
	}

	return &Container{
		Config: cfg,
		Logger: logger,
	}, nil
}

// Close releases every resource opened by the builders, newest first.
func (c *Container) Close() {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

func (c *Container) addCloser(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

// NewArtistCrawler builds the playlist/track/artist crawler.
func (c *Container) NewArtistCrawler(ctx context.Context) (*spotify.Crawler, error) {
	cfg := c.Config
	if err := cfg.ValidateSpotifyCredentials(); err != nil {
		return nil, err
	}

	catalog, err := spotify.NewCatalog(ctx, spotify.Credentials{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
	}, spotify.CatalogOptions{BaseURL: cfg.Spotify.BaseURL}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify catalog: %w", err)
	}

	return spotify.NewCrawler(catalog, spotify.CrawlConfig{
		Query:          cfg.Spotify.Query,
		Type:           cfg.Spotify.Type,
		Genre:          cfg.Spotify.Genre,
		Offsets:        cfg.Spotify.Offsets,
		Limit:          cfg.Spotify.Limit,
		MinSleep:       util.Seconds(cfg.Spotify.MinSleepTime),
		MaxSleep:       util.Seconds(cfg.Spotify.MaxSleepTime),
		LongPauseEvery: cfg.Spotify.LongPauseEvery,
		LongPause:      util.Seconds(cfg.Spotify.LongPauseTime),
	}, c.Logger), nil
}

// NewLyricsCrawler builds the lyrics crawler. When Redis is enabled but
// unreachable the crawler runs without a lookup cache.
func (c *Container) NewLyricsCrawler(ctx context.Context) (*genius.Crawler, error) {
	cfg := c.Config
	if err := cfg.ValidateGeniusCredentials(); err != nil {
		return nil, err
	}

	client := genius.NewClient(cfg.Genius.APIBaseURL, cfg.Genius.AccessToken, cfg.Genius.PerPage, c.Logger)
	if cfg.Redis.Enabled {
		cacheSvc, err := c.openCache(ctx)
		if err != nil {
			c.Logger.Warn("Redis unavailable, crawling without lookup cache", zap.Error(err))
		} else {
			client.WithCache(cacheSvc)
		}
	}

	fetcher := genius.NewLyricsFetcher(genius.FetcherConfig{
		BaseURL:             cfg.Genius.BaseURL,
		MinSleep:            util.Seconds(cfg.Genius.MinSleepTime),
		MaxSleep:            util.Seconds(cfg.Genius.MaxSleepTime),
		MaxRateLimitRetries: cfg.Genius.MaxRateLimitRetries,
		FallbackBackoff:     util.Seconds(cfg.Genius.FallbackBackoff),
		MaxRateLimitWait:    util.Seconds(cfg.Genius.MaxRateLimitWait),
	}, c.Logger)

	return genius.NewCrawler(client, fetcher, cfg.Artists.LyricsDir, c.Logger), nil
}

// NewEnrichPipeline builds the enrichment pass. The returned repository is nil
// unless the Postgres sink is enabled.
func (c *Container) NewEnrichPipeline(ctx context.Context) (*enrich.Pipeline, *database.SongRepository, error) {
	cfg := c.Config
	pipeline := enrich.NewPipeline(enrich.Config{
		InputDir:        cfg.Preprocessor.InputDir,
		WordsLowerbound: cfg.Preprocessor.WordsLowerbound,
		WordsUpperbound: cfg.Preprocessor.WordsUpperbound,
		LexiconPath:     cfg.Preprocessor.EmotionsCSVPath,
		Emotions:        cfg.Preprocessor.Emotions,
		LemmasPath:      cfg.Preprocessor.LemmasPath,
		TopWords:        cfg.Preprocessor.TopWords,
		SavePath:        cfg.Preprocessor.SavePath,
	}, c.Logger)

	if !cfg.Postgres.Enabled || !cfg.Preprocessor.WriteToPostgres {
		return pipeline, nil, nil
	}

	postgresSvc, err := c.openPostgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	repo := database.NewSongRepository(postgresSvc, c.Logger)
	return pipeline.WithSink(repo), repo, nil
}

// NewIngestor builds the ingestion stage together with the vector store it
// writes to.
func (c *Container) NewIngestor(ctx context.Context) (*ingest.Ingestor, *vectorstore.Qdrant, error) {
	cfg := c.Config
	if err := cfg.ValidateModelCredentials(false); err != nil {
		return nil, nil, err
	}

	embedder, err := c.newEmbedder(ctx)
	if err != nil {
		return nil, nil, err
	}
	store := c.newQdrant()

	return ingest.NewIngestor(ingest.Config{
		ParquetPath:    cfg.Preprocessor.SavePath,
		ChunkSize:      cfg.Qdrant.ChunkSize,
		ChunkOverlap:   cfg.Qdrant.ChunkOverlap,
		BatchSize:      cfg.Qdrant.BatchSize,
		MaxConcurrency: cfg.Qdrant.MaxConcurrency,
	}, embedder, store, c.Logger), store, nil
}

// NewRAG builds the retrieval-augmented answerer.
func (c *Container) NewRAG(ctx context.Context) (*chat.RAG, error) {
	cfg := c.Config
	if err := cfg.ValidateModelCredentials(true); err != nil {
		return nil, err
	}

	embedder, err := c.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}

	modelManager, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:       cfg.Model.GeminiAPIKey,
		OpenAIAPIKey:       cfg.Model.OpenAIAPIKey,
		DefaultGeminiModel: cfg.Model.GeminiModel,
		DefaultOpenAIModel: cfg.Model.OpenAIModel,
		EnableFallback:     cfg.Model.EnableFallback,
		Defaults: ai.GenerateOptions{
			Temperature:     cfg.Model.Temperature,
			TopP:            cfg.Model.TopP,
			MaxOutputTokens: cfg.Model.MaxNewTokens,
		},
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	return chat.NewRAG(chat.RAGConfig{
		Template: cfg.Prompt.PromptTemplate,
		K:        cfg.Qdrant.SearchKwargs.K,
	}, embedder, c.newQdrant(), modelManager, c.Logger), nil
}

// NewChatServer builds the websocket chat server on top of NewRAG.
func (c *Container) NewChatServer(ctx context.Context) (*chat.Server, error) {
	rag, err := c.NewRAG(ctx)
	if err != nil {
		return nil, err
	}
	return chat.NewServer(chat.ServerConfig{
		Addr:            c.Config.Chat.Addr,
		AllowedOrigins:  c.Config.Chat.AllowedOrigins,
		StreamDelay:     constants.WebSocketConfig.StreamDelay,
		MaxHistoryTurns: constants.WebSocketConfig.MaxHistoryTurns,
		MaxQueryLength:  constants.WebSocketConfig.MaxQueryLength,
	}, rag, c.Logger), nil
}

func (c *Container) newEmbedder(ctx context.Context) (ai.Embedder, error) {
	cfg := c.Config
	embedder, err := ai.NewEmbedder(ctx, ai.EmbedderConfig{
		Provider:     cfg.Qdrant.EmbeddingsProvider,
		Model:        cfg.Qdrant.EmbeddingsModelName,
		OpenAIAPIKey: cfg.Model.OpenAIAPIKey,
		GeminiAPIKey: cfg.Model.GeminiAPIKey,
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func (c *Container) newQdrant() *vectorstore.Qdrant {
	return vectorstore.NewQdrant(vectorstore.QdrantConfig{
		URL:        c.Config.Qdrant.URL,
		APIKey:     c.Config.Qdrant.APIKey,
		Collection: c.Config.Qdrant.CollectionName,
	}, c.Logger)
}

func (c *Container) openCache(ctx context.Context) (*cache.CacheService, error) {
	cfg := c.Config.Redis
	cacheSvc, err := cache.NewCacheService(ctx, cache.CacheConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache service: %w", err)
	}
	c.addCloser(func() {
		_ = cacheSvc.Close()
	})
	return cacheSvc, nil
}

func (c *Container) openPostgres(ctx context.Context) (*database.PostgresService, error) {
	cfg := c.Config.Postgres
	postgresSvc, err := database.NewPostgresService(ctx, database.PostgresConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	c.addCloser(func() {
		_ = postgresSvc.Close()
	})
	return postgresSvc, nil
}
