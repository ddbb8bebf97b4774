package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/listing"
)

const upsertBatchSize = 256

// QdrantIndex implements Index on a Qdrant collection.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	vectorSize int
}

// NewQdrantIndex creates a new Qdrant-backed index.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantIndex(urlStr, collection string, vectorSize int) (*QdrantIndex, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: collection,
		vectorSize: vectorSize,
	}, nil
}

// grpcAddress derives the gRPC host and port from the Qdrant HTTP URL.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// gRPC port is HTTP port + 1
	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

// Build drops and recreates the collection, then upserts every entry.
// Point IDs are insertion sequence numbers so ties can be ordered on read.
func (s *QdrantIndex) Build(ctx context.Context, entries []Entry) error {
	logger := contextutil.LoggerFromContext(ctx)

	for i, e := range entries {
		if len(e.Vector) != s.vectorSize {
			return fmt.Errorf("entry %d (%s) has dimension %d, expected %d", i, e.ID, len(e.Vector), s.vectorSize)
		}
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}

	logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", s.vectorSize)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for start := 0; start < len(entries); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(entries))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for seq := start; seq < end; seq++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(seq)),
				Vectors: qdrant.NewVectors(entries[seq].Vector...),
				Payload: qdrant.NewValueMap(entryPayload(seq, entries[seq])),
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(points), "error", err)
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(entries))
	return nil
}

// Query performs a similarity search and orders ties by insertion sequence.
func (s *QdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return []Result{}, nil
	}

	limit := uint64(k)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	type ranked struct {
		seq    int64
		result Result
	}
	ordered := make([]ranked, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		payload := convertPayloadToMap(point.Payload)
		seq, entry := payloadEntry(payload)
		ordered = append(ordered, ranked{seq: seq, result: Result{Entry: entry, Score: point.Score}})
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].result.Score != ordered[b].result.Score {
			return ordered[a].result.Score > ordered[b].result.Score
		}
		return ordered[a].seq < ordered[b].seq
	})

	results := make([]Result, len(ordered))
	for i, r := range ordered {
		results[i] = r.result
	}

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "k", k, "results", len(results))
	return results, nil
}

// Count returns the number of points in the collection, or 0 if it does not exist.
func (s *QdrantIndex) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return 0, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}
	if info.PointsCount == nil {
		return 0, nil
	}
	return int(*info.PointsCount), nil
}

// entryPayload flattens an entry into a Qdrant payload. Absent numbers are omitted.
func entryPayload(seq int, e Entry) map[string]any {
	payload := map[string]any{
		"seq":           int64(seq),
		"segment_id":    e.ID,
		"text":          e.Text,
		"id":            e.Metadata.ID,
		"address":       e.Metadata.Address,
		"property_type": e.Metadata.PropertyType,
	}
	if e.Metadata.Price != nil {
		payload["price"] = *e.Metadata.Price
	}
	if e.Metadata.Bedrooms != nil {
		payload["bedrooms"] = *e.Metadata.Bedrooms
	}
	if e.Metadata.Bathrooms != nil {
		payload["bathrooms"] = *e.Metadata.Bathrooms
	}
	return payload
}

// payloadEntry rebuilds an entry and its sequence number from a converted payload.
func payloadEntry(payload map[string]any) (int64, Entry) {
	str := func(key string) string {
		s, _ := payload[key].(string)
		return s
	}

	var seq int64
	switch v := payload["seq"].(type) {
	case int64:
		seq = v
	case float64:
		seq = int64(v)
	}

	return seq, Entry{
		ID:   str("segment_id"),
		Text: str("text"),
		Metadata: listing.Metadata{
			ID:           str("id"),
			Address:      str("address"),
			PropertyType: str("property_type"),
			Price:        payloadNumber(payload, "price"),
			Bedrooms:     payloadNumber(payload, "bedrooms"),
			Bathrooms:    payloadNumber(payload, "bathrooms"),
		},
	}
}

func payloadNumber(payload map[string]any, key string) *float64 {
	switch v := payload[key].(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
