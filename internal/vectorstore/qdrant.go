package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"research-rag/internal/contextutil"
	"research-rag/internal/corpus"
)

const defaultPageSize = 256

// pointNamespace derives stable point IDs from chunk IDs, which Qdrant would
// reject as-is (it only accepts UUIDs and unsigned integers).
var pointNamespace = uuid.MustParse("6f0c5d2e-3b7a-4f1e-9a43-2d8e51c0b7aa")

// Payload keys.
const (
	keyChunkID    = "chunk_id"
	keyDocID      = "doc_id"
	keyDocTitle   = "doc_title"
	keyYear       = "year"
	keyURL        = "url"
	keyText       = "text"
	keySourceType = "source_type"
	keyPosition   = "position"
	keyImportID   = "import_id"
)

// QdrantStore mirrors the corpus into a Qdrant collection and can read it back
// wholesale. It implements corpus.Source.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	pageSize   uint32
}

// NewQdrantStore creates a new Qdrant client for collection.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	host, port, err := grpcEndpoint(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
		pageSize:   defaultPageSize,
	}, nil
}

// grpcEndpoint derives the gRPC host and port from the Qdrant HTTP URL.
func grpcEndpoint(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Collection returns the collection name.
func (s *QdrantStore) Collection() string {
	return s.collection
}

// CollectionExists checks if the collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// EnsureCollection ensures the collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
func (s *QdrantStore) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	var actualSize uint64
	if config := info.GetConfig(); config != nil && config.GetParams() != nil {
		if params := config.GetParams().GetVectorsConfig().GetParams(); params != nil {
			actualSize = params.GetSize()
		}
	}
	if actualSize == 0 {
		return fmt.Errorf("could not determine collection vector size")
	}
	if int(actualSize) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, actualSize)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// UpsertChunks writes chunks as points. offset is the corpus position of chunks[0],
// stored so Load can restore corpus order. importID tags the points with the
// import that wrote them so DeleteStale can remove everything older.
func (s *QdrantStore) UpsertChunks(ctx context.Context, chunks []corpus.Chunk, offset int, importID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(c.ChunkID)),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(chunkPayload(c, offset+i, importID)),
		})
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.DebugContext(ctx, "upserted points", "collection", s.collection, "count", len(points))
	return nil
}

// DeleteStale removes every point not written by importID, so the collection
// holds exactly the chunks of the latest import.
func (s *QdrantStore) DeleteStale(ctx context.Context, importID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(staleFilter(importID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete stale points: %w", err)
	}

	logger.InfoContext(ctx, "deleted stale points", "collection", s.collection, "import_id", importID)
	return nil
}

// staleFilter matches points whose import_id differs from importID, including
// points written before import IDs existed.
func staleFilter(importID string) *qdrant.Filter {
	return &qdrant.Filter{
		MustNot: []*qdrant.Condition{
			qdrant.NewMatchKeyword(keyImportID, importID),
		},
	}
}

// Load scrolls through the whole collection and returns the chunks in corpus order.
func (s *QdrantStore) Load(ctx context.Context) ([]corpus.Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	type positioned struct {
		chunk    corpus.Chunk
		position int64
	}

	var (
		all    []positioned
		offset *qdrant.PointId
	)
	// Scroll offsets are inclusive, so one extra point is requested to learn where the next page starts.
	limit := s.pageSize + 1
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}

		page := points
		if uint32(len(points)) > s.pageSize {
			page = points[:s.pageSize]
		}
		for _, p := range page {
			c, pos := chunkFromPayload(p.GetPayload(), denseVector(p.GetVectors().GetVector()))
			all = append(all, positioned{chunk: c, position: pos})
		}

		if uint32(len(points)) <= s.pageSize {
			break
		}
		offset = points[s.pageSize].GetId()
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].position < all[j].position })
	chunks := make([]corpus.Chunk, len(all))
	for i, p := range all {
		chunks[i] = p.chunk
	}

	logger.DebugContext(ctx, "loaded chunks from qdrant", "collection", s.collection, "count", len(chunks))
	return chunks, nil
}

// PointID returns the deterministic Qdrant point ID for a chunk ID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func chunkPayload(c corpus.Chunk, position int, importID string) map[string]any {
	payload := map[string]any{
		keyChunkID:    c.ChunkID,
		keyDocID:      c.DocID,
		keyDocTitle:   c.DocTitle,
		keyURL:        c.URL,
		keyText:       c.Text,
		keySourceType: c.SourceType,
		keyPosition:   int64(position),
		keyImportID:   importID,
	}
	if c.Year != nil {
		payload[keyYear] = int64(*c.Year)
	}
	return payload
}

func chunkFromPayload(payload map[string]*qdrant.Value, vector []float32) (corpus.Chunk, int64) {
	c := corpus.Chunk{
		ChunkID:    payload[keyChunkID].GetStringValue(),
		DocID:      payload[keyDocID].GetStringValue(),
		DocTitle:   payload[keyDocTitle].GetStringValue(),
		URL:        payload[keyURL].GetStringValue(),
		Text:       payload[keyText].GetStringValue(),
		SourceType: payload[keySourceType].GetStringValue(),
		Embedding:  vector,
	}
	if v, ok := payload[keyYear]; ok {
		if iv, ok := v.GetKind().(*qdrant.Value_IntegerValue); ok {
			year := int(iv.IntegerValue)
			c.Year = &year
		}
	}
	return c, payload[keyPosition].GetIntegerValue()
}

func denseVector(v *qdrant.VectorOutput) []float32 {
	if dense := v.GetDense(); dense != nil {
		return dense.GetData()
	}
	return v.GetData()
}
