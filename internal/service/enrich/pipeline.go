package enrich

import (
	"context"
	"fmt"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"go.uber.org/zap"
)

type Config struct {
	InputDir        string
	WordsLowerbound int
	WordsUpperbound int
	LexiconPath     string
	Emotions        []string
	LemmasPath      string
	TopWords        int
	SavePath        string
}

// RowSink receives the enriched rows after the Parquet snapshot is written.
type RowSink interface {
	SaveRows(ctx context.Context, rows []domain.SongRow) (int, error)
}

type Summary struct {
	Loaded   int
	Kept     int
	Written  string
	SinkRows int
}

// Pipeline turns the per-artist lyrics files into the enriched song table.
type Pipeline struct {
	cfg       Config
	stopWords map[string]struct{}
	sink      RowSink
	logger    *zap.Logger
}

func NewPipeline(cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.TopWords <= 0 {
		cfg.TopWords = 5
	}
	return &Pipeline{
		cfg:       cfg,
		stopWords: domain.FrenchStopWords(),
		logger:    logger,
	}
}

// WithSink adds a secondary destination for the rows.
func (p *Pipeline) WithSink(sink RowSink) *Pipeline {
	p.sink = sink
	return p
}

func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	raw, err := LoadCorpus(p.cfg.InputDir)
	if err != nil {
		return summary, err
	}
	summary.Loaded = len(raw)
	p.logger.Info("Songs loaded", zap.Int("songs", len(raw)), zap.String("dir", p.cfg.InputDir))

	lexicon, err := LoadLexicon(p.cfg.LexiconPath, p.cfg.Emotions)
	if err != nil {
		return summary, err
	}
	p.logger.Info("Emotion lexicon loaded", zap.Int("words", lexicon.Len()))

	lemmatizer, err := NewLemmatizer(p.cfg.LemmasPath)
	if err != nil {
		return summary, err
	}

	rows := make([]domain.SongRow, 0, len(raw))
	for _, song := range raw {
		rows = append(rows, domain.NewSongRow(song))
	}

	rows = AddLengthFeatures(rows)
	rows = FilterByLength(rows, p.cfg.WordsLowerbound, p.cfg.WordsUpperbound)
	summary.Kept = len(rows)
	p.logger.Info("Length filter applied",
		zap.Int("kept", len(rows)),
		zap.Int("dropped", len(raw)-len(rows)),
		zap.Int("lowerbound", p.cfg.WordsLowerbound),
		zap.Int("upperbound", p.cfg.WordsUpperbound),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	rows = CleanAndLemmatize(rows, p.stopWords, lemmatizer)
	p.logger.Info("Cleaned lyrics (stop words removal and lemmatization)")

	rows = AddTopWords(rows, p.cfg.TopWords)
	rows = ScoreEmotion(rows, lexicon)
	p.logger.Info("Added most common words and sentiment")
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if err := WriteRows(p.cfg.SavePath, rows); err != nil {
		return summary, err
	}
	summary.Written = p.cfg.SavePath
	p.logger.Info("Enriched table written", zap.String("path", p.cfg.SavePath), zap.Int("rows", len(rows)))

	if p.sink != nil {
		n, err := p.sink.SaveRows(ctx, rows)
		if err != nil {
			return summary, fmt.Errorf("save rows to sink: %w", err)
		}
		summary.SinkRows = n
	}

	return summary, nil
}
