package search

import (
	"context"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
)

// ChunkIndex is the read side of the vector store.
type ChunkIndex interface {
	Query(ctx context.Context, vector []float32, k int, expr filter.Expression) ([]chunk.Hit, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// RankingOracle orders titles for a prompt. Its output is untrusted free text.
type RankingOracle interface {
	Rank(ctx context.Context, prompt string) ([]string, error)
}
