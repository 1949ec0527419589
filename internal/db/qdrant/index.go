package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/animerec/internal/domain"
	domchunk "github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
)

// Payload keys. Filterable keys match the filter package's field names.
const (
	keyChunkID = "chunk_id"
	keyText    = "text"
	keyAnimeID = "anime_id"
	keyTitle   = "title"
	keyGenres  = "genres"
	keyThemes  = "themes"
	keyStudio  = "studio"
	keyYear    = "year"
	keyScore   = "score"
	keyType    = "type"
)

// Index is a chunk index backed by one Qdrant collection with cosine distance.
type Index struct {
	client     client
	collection string
}

func newIndex(c client, collection string) *Index {
	if collection == "" {
		collection = domain.ChunkCollection
	}
	return &Index{client: c, collection: collection}
}

// Close releases the gRPC connection.
func (ix *Index) Close() error {
	return ix.client.Close() //nolint:wrapcheck // transparent
}

// Ping checks server health.
func (ix *Index) Ping(ctx context.Context) error {
	if _, err := ix.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health: %w", err)
	}
	return nil
}

// EnsureIndex creates the collection and its payload indexes if the collection is missing.
func (ix *Index) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := ix.client.CollectionExists(ctx, ix.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", ix.collection, err)
	}
	if exists {
		return nil
	}

	err = ix.client.CreateCollection(ctx, &pb.CreateCollection{
		CollectionName: ix.collection,
		VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
			Size:     uint64(dim),
			Distance: pb.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", ix.collection, err)
	}

	fields := []struct {
		name string
		typ  pb.FieldType
	}{
		{keyYear, pb.FieldType_FieldTypeInteger},
		{keyScore, pb.FieldType_FieldTypeFloat},
		{keyStudio, pb.FieldType_FieldTypeKeyword},
	}
	for _, f := range fields {
		_, err := ix.client.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: ix.collection,
			FieldName:      f.name,
			FieldType:      f.typ.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create payload index %s: %w", f.name, err)
		}
	}
	return nil
}

// Upsert writes records as points. Point ids are derived from chunk ids, so re-indexing overwrites.
func (ix *Index) Upsert(ctx context.Context, records []domchunk.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(records))
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			return fmt.Errorf("record %d has no id", i)
		}
		points[i] = &pb.PointStruct{
			Id:      pb.NewID(PointID(r.ID)),
			Vectors: pb.NewVectors(r.Vector...),
			Payload: buildPayload(r),
		}
	}

	wait := true
	if _, err := ix.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: ix.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(records), err)
	}
	return nil
}

// Query returns the k nearest chunks satisfying expr, closest first.
// Qdrant reports cosine similarity; it is converted to distance as 1-similarity.
func (ix *Index) Query(
	ctx context.Context, vector []float32, k int, expr filter.Expression,
) ([]domchunk.Hit, error) {
	limit := uint64(k)
	points, err := ix.client.Query(ctx, &pb.QueryPoints{
		CollectionName: ix.collection,
		Query:          pb.NewQuery(vector...),
		Limit:          &limit,
		Filter:         buildFilter(expr),
		WithPayload:    pb.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ix.collection, err)
	}

	hits := make([]domchunk.Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, parseHit(p.GetPayload(), 1-float64(p.GetScore())))
	}
	return hits, nil
}

// Reset deletes the whole collection. Returns the number of points it held.
func (ix *Index) Reset(ctx context.Context) (int, error) {
	exists, err := ix.client.CollectionExists(ctx, ix.collection)
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", ix.collection, err)
	}
	if !exists {
		return 0, nil
	}
	exact := true
	n, err := ix.client.Count(ctx, &pb.CountPoints{CollectionName: ix.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", ix.collection, err)
	}
	if err := ix.client.DeleteCollection(ctx, ix.collection); err != nil {
		return 0, fmt.Errorf("delete collection %s: %w", ix.collection, err)
	}
	return int(n), nil
}

// PointID maps a chunk id onto a stable UUID, since Qdrant only accepts UUIDs or integers.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("animerec/"+chunkID)).String()
}
