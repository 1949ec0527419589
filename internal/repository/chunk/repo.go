// Package chunk stores anime chunks as hashes behind an FT vector index.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/animerec/internal/db"
	"github.com/kailas-cloud/animerec/internal/domain"
	domchunk "github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
)

// store is the consumer interface for chunk storage (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig holds HNSW index tuning parameters.
type HNSWConfig struct {
	M           int // max edges per node (default 16)
	EFConstruct int // build-time search width (default 200)
}

// Repo is a chunk index over a Valkey/Redis store.
type Repo struct {
	store      store
	collection string
	hnsw       HNSWConfig
}

// New creates a chunk repository for the named collection.
func New(s store, collection string, hnsw HNSWConfig) *Repo {
	if collection == "" {
		collection = domain.ChunkCollection
	}
	return &Repo{store: s, collection: collection, hnsw: hnsw}
}

func (r *Repo) indexName() string { return domain.KeyPrefix + "idx:" + r.collection }

func (r *Repo) keyPrefix() string { return domain.KeyPrefix + r.collection + ":" }

// EnsureIndex creates the FT index for vectors of the given dimension if it is missing.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.indexName()).
		Prefix(r.keyPrefix()).
		Numeric(fieldAnimeID).
		Numeric(fieldYear).
		Numeric(fieldScore).
		TagWithOpts(fieldStudio, "|", true).
		TagWithOpts(fieldGenres, "|", true).
		TagWithOpts(fieldThemes, "|", true).
		Tag(fieldType).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert writes records in one pipelined round-trip. Existing ids are overwritten.
func (r *Repo) Upsert(ctx context.Context, records []domchunk.Record) error {
	if len(records) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(records))
	for i := range records {
		if records[i].ID == "" {
			return fmt.Errorf("record %d has no id", i)
		}
		items[i] = db.HashSetItem{
			Key:    r.keyPrefix() + records[i].ID,
			Fields: buildHashFields(&records[i]),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(records), err)
	}
	return nil
}

// Query returns the k nearest chunks satisfying expr, closest first.
func (r *Repo) Query(
	ctx context.Context, vector []float32, k int, expr filter.Expression,
) ([]domchunk.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Filters:      expr,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.collection, err)
	}
	if sr == nil {
		return nil, nil
	}

	hits := make([]domchunk.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, parseHit(e.Fields, e.Distance))
	}
	return hits, nil
}

// Reset drops the index and deletes every stored chunk. Returns the number of deleted keys.
func (r *Repo) Reset(ctx context.Context) (int, error) {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return 0, fmt.Errorf("drop index: %w", err)
	}
	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return 0, fmt.Errorf("scan chunks: %w", err)
	}
	deleted := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, r.keyPrefix()) {
			continue
		}
		if err := r.store.Del(ctx, k); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", k, err)
		}
		deleted++
	}
	return deleted, nil
}
