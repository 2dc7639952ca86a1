package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/tracing"
)

// DefaultQdrantPort is the Qdrant gRPC port.
const DefaultQdrantPort = 6334

// titlePayloadKey is the point payload field holding the display title.
const titlePayloadKey = "title"

// ErrQdrantNotConfigured is returned when no Qdrant URL or collection is set.
var ErrQdrantNotConfigured = errors.New("qdrant not configured")

// pointQuerier is the subset of *qdrant.Client used for recommendations.
type pointQuerier interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// CatalogFunc returns the current catalog snapshot.
type CatalogFunc func() (*catalog.Catalog, error)

// QdrantConfig configures the Qdrant recommender.
type QdrantConfig struct {
	URL        string // host, host:port or grpc://host:port
	APIKey     string
	Collection string
	Threshold  float64 // Minimum similarity score
}

// Qdrant recommends titles stored as vectors in a Qdrant collection. Point
// IDs are movie IDs and every point carries its title in the payload.
type Qdrant struct {
	client     pointQuerier
	closer     func() error
	collection string
	threshold  float64
	catalog    CatalogFunc
	logger     *slog.Logger
}

// NewQdrant connects to Qdrant over gRPC.
func NewQdrant(cfg QdrantConfig, current CatalogFunc, logger *slog.Logger) (*Qdrant, error) {
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, ErrQdrantNotConfigured
	}

	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	q := newQdrant(client, cfg, current, logger)
	q.closer = client.Close
	return q, nil
}

func newQdrant(client pointQuerier, cfg QdrantConfig, current CatalogFunc, logger *slog.Logger) *Qdrant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Qdrant{
		client:     client,
		collection: cfg.Collection,
		threshold:  cfg.Threshold,
		catalog:    current,
		logger:     logger,
	}
}

// parseQdrantURL accepts "host", "host:port" and scheme-prefixed forms.
// https and grpcs enable TLS.
func parseQdrantURL(raw string) (host string, port int, useTLS bool, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("grpc://" + raw)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid qdrant url %q: %w", raw, err)
		}
	}

	host = u.Hostname()
	if host == "" {
		return "", 0, false, fmt.Errorf("invalid qdrant url %q: missing host", raw)
	}
	port = DefaultQdrantPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
	}
	useTLS = u.Scheme == "https" || u.Scheme == "grpcs"
	return host, port, useTLS, nil
}

// Similar asks Qdrant for the nearest neighbours of title's point.
func (q *Qdrant) Similar(ctx context.Context, title string, k int) (_ []string, err error) {
	if k <= 0 {
		return []string{}, nil
	}

	c, err := q.catalog()
	if err != nil {
		return nil, err
	}
	seed, err := c.ByTitle(title)
	if errors.Is(err, catalog.ErrTitleNotFound) || (err == nil && seed.ID <= 0) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	ctx, endSpan := tracing.StartVectorSpan(ctx, q.collection, "recommend")
	defer func() { endSpan(err) }()

	id := qdrant.NewIDNum(uint64(seed.ID))
	request := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query: qdrant.NewQueryRecommend(&qdrant.RecommendInput{
			Positive: []*qdrant.VectorInput{qdrant.NewVectorInputID(id)},
		}),
		Filter: &qdrant.Filter{
			MustNot: []*qdrant.Condition{qdrant.NewHasID(id)},
		},
		Limit:       qdrant.PtrOf(uint64(k)),
		WithPayload: qdrant.NewWithPayloadInclude(titlePayloadKey),
	}
	if q.threshold > 0 {
		request.ScoreThreshold = qdrant.PtrOf(float32(q.threshold))
	}

	points, err := q.client.Query(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("qdrant recommend query failed: %w", err)
	}

	seedKey := normalize(seed.Title)
	seen := map[string]struct{}{seedKey: {}}
	out := make([]string, 0, len(points))
	for _, point := range points {
		if len(out) >= k {
			break
		}
		v, ok := point.GetPayload()[titlePayloadKey]
		if !ok || v.GetStringValue() == "" {
			q.logger.WarnContext(ctx, "qdrant point without title payload", "point_id", point.GetId().GetNum())
			continue
		}
		name := v.GetStringValue()
		key := normalize(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// Close releases the gRPC connection.
func (q *Qdrant) Close() error {
	if q.closer == nil {
		return nil
	}
	return q.closer()
}
