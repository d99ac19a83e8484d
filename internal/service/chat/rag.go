package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/internal/service/ai"
	"github.com/kapu/ghostwriter-go/internal/service/vectorstore"
	"github.com/kapu/ghostwriter-go/internal/util"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"go.uber.org/zap"
)

// Retriever is the subset of vectorstore.Qdrant used to find context.
type Retriever interface {
	Search(ctx context.Context, vector []float32, k int) ([]vectorstore.ScoredPoint, error)
}

// Generator produces the final answer; ai.ModelManager implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, *ai.GenerateMetadata, error)
}

type RAGConfig struct {
	Template string
	K        int
}

type Answer struct {
	Text         string          `json:"text"`
	Sources      []domain.Source `json:"sources"`
	Provider     string          `json:"provider,omitempty"`
	Model        string          `json:"model,omitempty"`
	UsedFallback bool            `json:"used_fallback,omitempty"`
}

// RAG answers questions from the lyrics stored in the vector collection.
type RAG struct {
	cfg       RAGConfig
	embedder  ai.Embedder
	retriever Retriever
	generator Generator
	logger    *zap.Logger
}

func NewRAG(cfg RAGConfig, embedder ai.Embedder, retriever Retriever, generator Generator, logger *zap.Logger) *RAG {
	return &RAG{
		cfg:       cfg,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// Ask embeds the question, retrieves the top k chunks, stuffs them into the
// prompt template and generates the answer.
func (r *RAG) Ask(ctx context.Context, history []domain.ChatMessage, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.NewValidationError("question is empty", "question", question)
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vectors))
	}

	points, err := r.retriever.Search(ctx, vectors[0], r.cfg.K)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	sources := make([]domain.Source, 0, len(points))
	for _, p := range points {
		sources = append(sources, domain.Source{
			ArtistName: p.PayloadString(domain.PayloadArtistName),
			SongName:   p.PayloadString(domain.PayloadSongName),
			Text:       p.PayloadString(domain.PayloadText),
			Score:      p.Score,
		})
	}
	if len(sources) > 0 {
		r.logger.Info("Context retrieved",
			zap.Int("sources", len(sources)),
			zap.String("top_source", sources[0].ArtistName+" - "+sources[0].SongName),
			zap.String("top_text", util.TruncateString(sources[0].Text, 80)),
		)
	} else {
		r.logger.Warn("No context retrieved", zap.String("question", util.TruncateString(question, 80)))
	}

	prompt := FillPrompt(r.cfg.Template, map[string]string{
		"context":  FormatContext(sources),
		"question": question,
		"history":  FormatHistory(history),
	})

	text, meta, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Text: text, Sources: sources}
	if meta != nil {
		answer.Provider = meta.Provider
		answer.Model = meta.Model
		answer.UsedFallback = meta.UsedFallback
	}
	return answer, nil
}

// FillPrompt replaces each {name} placeholder with vars[name]. Unknown
// placeholders are left as is.
func FillPrompt(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// FormatContext joins retrieved chunk texts, one paragraph each.
func FormatContext(sources []domain.Source) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func FormatHistory(history []domain.ChatMessage) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
