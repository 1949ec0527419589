package index

import (
	"context"
	"sync"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/anime"
	"github.com/kailas-cloud/animerec/internal/domain/chunk"
)

type mockCatalog struct {
	docs []anime.Document
	err  error
}

func (m *mockCatalog) Load() ([]anime.Document, error) { return m.docs, m.err }

// mockEmbedder returns dim-sized vectors whose first element is the text length.
type mockEmbedder struct {
	mu      sync.Mutex
	dim     int
	err     error
	batches int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: m.vector(text)}, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dim)
	if m.dim > 0 {
		v[0] = float32(len(text))
	}
	return v
}

type mockWriter struct {
	mu        sync.Mutex
	dim       int
	ensureErr error
	upsertErr error
	records   map[string]chunk.Record
	resetN    int
}

func newMockWriter() *mockWriter { return &mockWriter{records: map[string]chunk.Record{}} }

func (m *mockWriter) EnsureIndex(_ context.Context, dim int) error {
	m.dim = dim
	return m.ensureErr
}

func (m *mockWriter) Upsert(_ context.Context, records []chunk.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *mockWriter) Reset(context.Context) (int, error) {
	n := m.resetN
	m.records = map[string]chunk.Record{}
	return n, nil
}

func ptr[T any](v T) *T { return &v }

func doc(id int, title string) anime.Document {
	return anime.Document{
		ID: id, Title: title, Synopsis: "A short synopsis.",
		Genres: []string{"Action"}, Studio: ptr("Bones"), Year: ptr(2009), Score: ptr(9.1),
	}
}
