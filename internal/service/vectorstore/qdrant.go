package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/util"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"go.uber.org/zap"
)

type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type ScoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// PayloadString returns payload[key] when it is a string.
func (p ScoredPoint) PayloadString(key string) string {
	if v, ok := p.Payload[key].(string); ok {
		return v
	}
	return ""
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type searchResponse struct {
	Result []ScoredPoint `json:"result"`
	Status any           `json:"status"`
}

type collectionResponse struct {
	Result struct {
		PointsCount int `json:"points_count"`
	} `json:"result"`
}

// Qdrant is a REST client for one collection.
type Qdrant struct {
	http       *resty.Client
	collection string
	logger     *zap.Logger
}

func NewQdrant(cfg QdrantConfig, logger *zap.Logger) *Qdrant {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(constants.QdrantConfig.Timeout)
	if cfg.APIKey != "" {
		httpClient.SetHeader("api-key", cfg.APIKey)
	}

	return &Qdrant{
		http:       httpClient,
		collection: cfg.Collection,
		logger:     logger,
	}
}

func (q *Qdrant) Collection() string {
	return q.collection
}

// EnsureCollection creates the collection with cosine distance when it does not
// exist yet.
func (q *Qdrant) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.NewValidationError("vector dimension must be positive", "dimension", dimension)
	}

	resp, err := q.http.R().SetContext(ctx).Get(q.collectionPath())
	if err != nil {
		return fmt.Errorf("qdrant get collection: %w", err)
	}
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	if resp.StatusCode() != http.StatusNotFound {
		return q.apiError("get collection", resp)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": constants.QdrantConfig.Distance,
		},
	}
	resp, err = q.http.R().SetContext(ctx).SetBody(body).Put(q.collectionPath())
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	if resp.IsError() {
		return q.apiError("create collection", resp)
	}

	q.logger.Info("Qdrant collection created",
		zap.String("collection", q.collection),
		zap.Int("dimension", dimension),
	)
	return nil
}

// DeleteCollection drops the collection. A missing collection is not an error.
func (q *Qdrant) DeleteCollection(ctx context.Context) error {
	resp, err := q.http.R().SetContext(ctx).Delete(q.collectionPath())
	if err != nil {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return q.apiError("delete collection", resp)
	}
	q.logger.Info("Qdrant collection dropped", zap.String("collection", q.collection))
	return nil
}

// Upsert writes points and waits until they are indexed.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	resp, err := q.http.R().
		SetContext(ctx).
		SetQueryParam("wait", "true").
		SetBody(map[string]any{"points": points}).
		Put(q.collectionPath() + "/points")
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	if resp.IsError() {
		return q.apiError("upsert points", resp)
	}
	return nil
}

// Search returns the k nearest points with their payloads.
func (q *Qdrant) Search(ctx context.Context, vector []float32, k int) ([]ScoredPoint, error) {
	if k <= 0 {
		k = 4
	}

	resp, err := q.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"vector":       vector,
			"limit":        k,
			"with_payload": true,
		}).
		Post(q.collectionPath() + "/points/search")
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	if resp.IsError() {
		return nil, q.apiError("search points", resp)
	}

	var out searchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode qdrant search response: %w", err)
	}
	return out.Result, nil
}

// Count returns the number of points stored in the collection.
func (q *Qdrant) Count(ctx context.Context) (int, error) {
	resp, err := q.http.R().SetContext(ctx).Get(q.collectionPath())
	if err != nil {
		return 0, fmt.Errorf("qdrant get collection: %w", err)
	}
	if resp.IsError() {
		return 0, q.apiError("get collection", resp)
	}

	var out collectionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return 0, fmt.Errorf("decode qdrant collection info: %w", err)
	}
	return out.Result.PointsCount, nil
}

func (q *Qdrant) collectionPath() string {
	return "/collections/" + q.collection
}

func (q *Qdrant) apiError(op string, resp *resty.Response) error {
	return errors.NewAPIError("qdrant "+op+" failed", resp.StatusCode(), map[string]any{
		"collection": q.collection,
		"body":       util.TruncateString(resp.String(), 200),
	})
}

