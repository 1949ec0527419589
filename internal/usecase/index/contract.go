package index

import (
	"context"

	"github.com/kailas-cloud/animerec/internal/domain/anime"
	"github.com/kailas-cloud/animerec/internal/domain/chunk"
)

// CatalogReader loads the persisted anime catalog.
type CatalogReader interface {
	Load() ([]anime.Document, error)
}

// ChunkWriter creates the vector index and writes embedded chunks into it.
type ChunkWriter interface {
	EnsureIndex(ctx context.Context, dim int) error
	Upsert(ctx context.Context, records []chunk.Record) error
}

// Resetter wipes every indexed chunk.
type Resetter interface {
	Reset(ctx context.Context) (int, error)
}

// ChunkBuilder splits a document into chunk records without vectors.
type ChunkBuilder interface {
	Build(doc *anime.Document) ([]chunk.Record, error)
}
