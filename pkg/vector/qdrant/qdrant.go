// Package qdrant provides a vector.Driver backed by a Qdrant collection
// over the gRPC API.
package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/askbase/pkg/vector"
)

const (
	// DefaultPort is the Qdrant gRPC port.
	DefaultPort = 6334

	// DefaultCollection is used when no collection name is configured.
	DefaultCollection = "knowledge_base"

	defaultTopK        = 10
	defaultScrollLimit = 100

	payloadID       = "id"
	payloadTitle    = "title"
	payloadContent  = "content"
	payloadMetadata = "metadata"
)

// Config configures the Qdrant driver.
type Config struct {
	// URL of the Qdrant gRPC endpoint, e.g. "http://localhost:6334".
	// An https scheme enables TLS.
	URL string

	// APIKey is sent with every request when set.
	APIKey string

	// CollectionName is created on first use if it does not exist.
	CollectionName string

	// Dimensions is the vector size used when creating the collection.
	Dimensions uint
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and ensures the configured collection exists.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollection
	}

	qc, err := clientConfig(c)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}

	if err := d.ensureCollection(ctx, uint64(c.Dimensions)); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("qdrant vector driver initialized",
		"host", qc.Host,
		"port", qc.Port,
		"collection", collection,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func clientConfig(c Config) (*qdrant.Config, error) {
	target := c.URL
	if target == "" {
		target = "http://localhost:" + strconv.Itoa(DefaultPort)
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant url %q: %w", target, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("qdrant url %q has no host", target)
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parsing qdrant port %q: %w", p, err)
		}
	}

	return &qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

func (d *Driver) ensureCollection(ctx context.Context, size uint64) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", vector.ErrStore, d.collection, err)
	}

	// Deletes filter on the payload id, which needs a keyword index.
	_, err = d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: d.collection,
		FieldName:      payloadID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: indexing payload field %q: %v", vector.ErrStore, payloadID, err)
	}

	d.logger.Info("created qdrant collection", "collection", d.collection, "size", size)
	return nil
}

// Upsert stores documents, replacing any point with the same document ID.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		payload, err := toPayload(doc)
		if err != nil {
			return fmt.Errorf("encoding payload for doc %s: %w", doc.ID, err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: payload,
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting points: %v", vector.ErrStore, err)
	}

	d.logger.Debug("upserted documents to qdrant", "count", len(docs))
	return nil
}

// Search returns the nearest documents by cosine similarity.
func (d *Driver) Search(ctx context.Context, embedding []float32, opts vector.SearchOptions) ([]vector.SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	req := &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if opts.ScoreThreshold > 0 {
		req.ScoreThreshold = qdrant.PtrOf(float32(opts.ScoreThreshold))
	}

	points, err := d.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %v", vector.ErrStore, err)
	}

	results := make([]vector.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.SearchResult{
			Document: fromPayload(p.GetPayload()),
			Score:    float64(p.GetScore()),
		})
	}

	d.logger.Debug("queried qdrant", "results", len(results))
	return results, nil
}

// Scroll lists up to opts.Limit documents without their vectors.
func (d *Driver) Scroll(ctx context.Context, opts vector.ScrollOptions) ([]vector.Document, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultScrollLimit
	}

	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: d.collection,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scrolling points: %v", vector.ErrStore, err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, fromPayload(p.GetPayload()))
	}
	return docs, nil
}

// Get retrieves documents with their vectors by document ID.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(pointID(id))
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting points: %v", vector.ErrStore, err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := fromPayload(p.GetPayload())
		doc.Embedding = p.GetVectors().GetVector().GetData()
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes documents whose payload id matches one of ids.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchKeywords(payloadID, ids...),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting points: %v", vector.ErrStore, err)
	}

	d.logger.Debug("deleted documents from qdrant", "count", len(ids))
	return nil
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", vector.ErrStore, err)
	}
	return int(n), nil
}

// Ping runs the Qdrant health check.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// pointID maps a document ID onto a deterministic UUID, since Qdrant only
// accepts UUIDs or unsigned integers as point IDs.
func pointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("askbase:"+docID)).String()
}

func toPayload(doc vector.Document) (map[string]*qdrant.Value, error) {
	fields := map[string]any{
		payloadID:      doc.ID,
		payloadTitle:   doc.Title,
		payloadContent: doc.Content,
	}

	if len(doc.Metadata) > 0 {
		// Round-trip through JSON so typed slices and numbers become
		// the []any and float64 shapes the value converter accepts.
		raw, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, err
		}
		var meta map[string]any
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		fields[payloadMetadata] = meta
	}

	return qdrant.TryValueMap(fields)
}

func fromPayload(payload map[string]*qdrant.Value) vector.Document {
	doc := vector.Document{
		ID:      payload[payloadID].GetStringValue(),
		Title:   payload[payloadTitle].GetStringValue(),
		Content: payload[payloadContent].GetStringValue(),
	}

	if meta := payload[payloadMetadata].GetStructValue(); meta != nil {
		doc.Metadata = make(map[string]any, len(meta.GetFields()))
		for k, v := range meta.GetFields() {
			doc.Metadata[k] = fromValue(v)
		}
	}
	return doc
}

func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = fromValue(item)
		}
		return out
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			out[k] = fromValue(item)
		}
		return out
	default:
		return nil
	}
}

var _ vector.Driver = (*Driver)(nil)
