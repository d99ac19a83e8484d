package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/internal/service/ai"
	"github.com/kapu/ghostwriter-go/internal/service/enrich"
	"github.com/kapu/ghostwriter-go/internal/service/vectorstore"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// VectorStore is the subset of vectorstore.Qdrant used for ingestion.
type VectorStore interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []vectorstore.Point) error
}

type Config struct {
	ParquetPath    string
	ChunkSize      int
	ChunkOverlap   int
	BatchSize      int
	MaxConcurrency int
}

type Summary struct {
	Songs  int
	Chunks int
	Points int
}

type Ingestor struct {
	cfg      Config
	chunker  *Chunker
	embedder ai.Embedder
	store    VectorStore
	logger   *zap.Logger
}

func NewIngestor(cfg Config, embedder ai.Embedder, store VectorStore, logger *zap.Logger) *Ingestor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = constants.IngestConfig.BatchSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = constants.IngestConfig.MaxConcurrency
	}
	return &Ingestor{
		cfg:      cfg,
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Run reads the enriched snapshot, chunks every song, embeds the chunks and
// upserts them. Re-running over the same snapshot overwrites the same points.
func (i *Ingestor) Run(ctx context.Context) (Summary, error) {
	rows, err := enrich.ReadRows(i.cfg.ParquetPath)
	if err != nil {
		return Summary{}, err
	}

	chunks := BuildChunks(rows, i.chunker)
	summary := Summary{Songs: len(rows), Chunks: len(chunks)}
	i.logger.Info("Songs chunked",
		zap.Int("songs", len(rows)),
		zap.Int("chunks", len(chunks)),
		zap.String("embedder", i.embedder.Name()),
	)
	if len(chunks) == 0 {
		return summary, nil
	}

	batches := batchChunks(chunks, i.cfg.BatchSize)

	// The first batch fixes the vector dimension for the collection.
	first, err := i.embedBatch(ctx, batches[0])
	if err != nil {
		return summary, err
	}
	if err := i.store.EnsureCollection(ctx, len(first[0].Vector)); err != nil {
		return summary, err
	}
	if err := i.store.Upsert(ctx, first); err != nil {
		return summary, err
	}

	var written atomic.Int64
	written.Add(int64(len(first)))

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(i.cfg.MaxConcurrency).WithCancelOnError()
	for idx, batch := range batches[1:] {
		batchNo := idx + 2
		p.Go(func(ctx context.Context) error {
			points, err := i.embedBatch(ctx, batch)
			if err != nil {
				return err
			}
			if err := i.store.Upsert(ctx, points); err != nil {
				return fmt.Errorf("upsert batch %d: %w", batchNo, err)
			}
			n := written.Add(int64(len(points)))
			i.logger.Debug("Batch ingested",
				zap.Int("batch", batchNo),
				zap.Int64("points", n),
			)
			return nil
		})
	}
	err = p.Wait()
	summary.Points = int(written.Load())
	if err != nil {
		return summary, err
	}

	i.logger.Info("Ingestion completed",
		zap.Int("songs", summary.Songs),
		zap.Int("points", summary.Points),
	)
	return summary, nil
}

func (i *Ingestor) embedBatch(ctx context.Context, batch []domain.Chunk) ([]vectorstore.Point, error) {
	texts := make([]string, len(batch))
	for j, chunk := range batch {
		texts[j] = chunk.Text
	}

	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, errors.NewServiceError(
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(batch)),
			"ingest", "embed", nil,
		)
	}

	points := make([]vectorstore.Point, len(batch))
	for j, chunk := range batch {
		if len(vectors[j]) == 0 {
			return nil, errors.NewServiceError("empty embedding", "ingest", "embed", nil)
		}
		payload := make(map[string]any, len(chunk.Metadata)+1)
		for k, v := range chunk.Metadata {
			payload[k] = v
		}
		payload[domain.PayloadText] = chunk.Text
		points[j] = vectorstore.Point{
			ID:      chunk.ID,
			Vector:  vectors[j],
			Payload: payload,
		}
	}
	return points, nil
}

// BuildChunks turns each row's lyrics into chunks tagged with song metadata.
// Songs without lyrics produce no chunk.
func BuildChunks(rows []domain.SongRow, chunker *Chunker) []domain.Chunk {
	var chunks []domain.Chunk
	for _, row := range rows {
		for idx, text := range chunker.Split(row.Lyrics) {
			chunks = append(chunks, domain.Chunk{
				ID:   ChunkID(row.ArtistName, row.SongName, idx),
				Text: text,
				Metadata: map[string]string{
					domain.PayloadArtistName:    row.ArtistName,
					domain.PayloadSongName:      row.SongName,
					domain.PayloadMainSentiment: row.MainSentiment,
					domain.PayloadSource:        row.ArtistName + " - " + row.SongName,
					domain.PayloadChunkIndex:    strconv.Itoa(idx),
				},
			})
		}
	}
	return chunks
}

// ChunkID is a name-based UUID so the same chunk always maps to the same point.
func ChunkID(artist, song string, idx int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(artist+"/"+song+"/"+strconv.Itoa(idx))).String()
}

func batchChunks(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var batches [][]domain.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}
