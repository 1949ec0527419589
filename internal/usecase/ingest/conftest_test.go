package ingest

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/animerec/internal/domain/anime"
	"github.com/kailas-cloud/animerec/internal/transport/jikan"
)

type mockFetcher struct {
	pages map[int]*jikan.Page
	errs  map[int]error
	calls []int
}

func (m *mockFetcher) FetchPage(_ context.Context, page int) (*jikan.Page, error) {
	m.calls = append(m.calls, page)
	if err := m.errs[page]; err != nil {
		return nil, err
	}
	if p, ok := m.pages[page]; ok {
		return p, nil
	}
	return &jikan.Page{HasNext: true}, nil
}

type mockCatalog struct {
	batches [][]anime.Document
	err     error
}

func (m *mockCatalog) Append(docs []anime.Document) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, append([]anime.Document(nil), docs...))
	return nil
}

func (m *mockCatalog) total() int {
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func ptr[T any](v T) *T { return &v }

// valid builds a raw record that normalizes cleanly.
func valid(id int) anime.Raw {
	return anime.Raw{MalID: id, Title: fmt.Sprintf("Anime %d", id), Synopsis: ptr("A story.")}
}
