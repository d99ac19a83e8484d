package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/ghostwriter-go/pkg/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbedderConfig struct {
	Provider     string
	Model        string
	OpenAIAPIKey string
	GeminiAPIKey string
}

// NewEmbedder builds the embedder named by cfg.Provider ("openai" or "gemini").
func NewEmbedder(ctx context.Context, cfg EmbedderConfig, logger *zap.Logger) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.NewValidationError("OPENAI_API_KEY is required for openai embeddings", "qdrant.embeddings_provider", cfg.Provider)
		}
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.Model, logger), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.NewValidationError("GEMINI_API_KEY is required for gemini embeddings", "qdrant.embeddings_provider", cfg.Provider)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return NewGeminiEmbedder(client, cfg.Model, logger), nil
	default:
		return nil, errors.NewValidationError("unknown embeddings provider", "qdrant.embeddings_provider", cfg.Provider)
	}
}

type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIEmbedder(apiKey, model string, logger *zap.Logger, opts ...option.RequestOption) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIEmbedder{client: &client, model: model, logger: logger}
}

func (e *OpenAIEmbedder) Name() string {
	return "OpenAI"
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, errors.NewServiceError("embedding request failed", "openai", "embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || int(item.Index) >= len(texts) {
			return nil, fmt.Errorf("openai embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = toFloat32(item.Embedding)
	}

	e.logger.Debug("OpenAI embeddings received",
		zap.Int("count", len(vectors)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
	)
	return vectors, nil
}

type GeminiEmbedder struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiEmbedder(client *genai.Client, model string, logger *zap.Logger) *GeminiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbedder{client: client, model: model, logger: logger}
}

func (e *GeminiEmbedder) Name() string {
	return "Gemini"
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{})
	if err != nil {
		return nil, errors.NewServiceError("embedding request failed", "gemini", "embed", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		vectors[i] = emb.Values
	}

	e.logger.Debug("Gemini embeddings received", zap.Int("count", len(vectors)))
	return vectors, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
