package search

import (
	"context"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
)

// --- Mocks ---

type mockEmbedder struct {
	vec    []float32
	tokens int
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: m.tokens}, nil
}

type mockIndex struct {
	hits     []chunk.Hit
	err      error
	called   bool
	lastK    int
	lastExpr filter.Expression
}

func (m *mockIndex) Query(_ context.Context, _ []float32, k int, expr filter.Expression) ([]chunk.Hit, error) {
	m.called = true
	m.lastK = k
	m.lastExpr = expr
	return m.hits, m.err
}

type mockOracle struct {
	rankFn     func(ctx context.Context, prompt string) ([]string, error)
	calls      int
	lastPrompt string
}

func (m *mockOracle) Rank(ctx context.Context, prompt string) ([]string, error) {
	m.calls++
	m.lastPrompt = prompt
	if m.rankFn != nil {
		return m.rankFn(ctx, prompt)
	}
	return nil, nil
}

func returning(titles ...string) *mockOracle {
	return &mockOracle{rankFn: func(context.Context, string) ([]string, error) { return titles, nil }}
}

// --- Helpers ---

func hit(animeID int, title string, distance float64, genres ...string) chunk.Hit {
	return chunk.Hit{
		Text:     title,
		Distance: distance,
		Metadata: chunk.Metadata{AnimeID: animeID, Title: title, Genres: genres, Year: chunk.NoYear, Score: chunk.NoScore},
	}
}

func ids(cands []result.Candidate) []int {
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.AnimeID
	}
	return out
}
