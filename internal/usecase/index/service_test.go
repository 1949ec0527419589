package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/anime"
	"github.com/kailas-cloud/animerec/internal/domain/chunk"
)

func newTestService(cat *mockCatalog, emb *mockEmbedder, w *mockWriter, batch int) *Service {
	return New(cat, chunk.NewBuilder(chunk.DefaultChunkSize, chunk.DefaultChunkOverlap), emb, w,
		Config{Dimensions: emb.dim, BatchSize: batch, Concurrency: 2})
}

func TestRun_IndexesAllChunks(t *testing.T) {
	cat := &mockCatalog{docs: []anime.Document{doc(1, "FMA"), doc(2, "Bebop"), doc(3, "Mushishi")}}
	emb := &mockEmbedder{dim: 4}
	w := newMockWriter()

	st, err := newTestService(cat, emb, w, 4).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One narrative and one taste chunk per short document.
	if st.Documents != 3 || st.Chunks != 6 || len(w.records) != 6 {
		t.Fatalf("stats=%+v written=%d", st, len(w.records))
	}
	if w.dim != 4 {
		t.Errorf("index dim = %d", w.dim)
	}
	if emb.batches != 2 {
		t.Errorf("embedding batches = %d, want 2", emb.batches)
	}

	taste := w.records["2_1"]
	if taste.Metadata.Type != chunk.Taste || taste.Metadata.Title != "Bebop" {
		t.Errorf("taste chunk = %+v", taste)
	}
	if len(taste.Vector) != 4 || taste.Vector[0] != float32(len(taste.Text)) {
		t.Errorf("vector not aligned with text: %v", taste.Vector)
	}
}

func TestRun_EmptyCatalog(t *testing.T) {
	w := newMockWriter()
	st, err := newTestService(&mockCatalog{}, &mockEmbedder{dim: 4}, w, 4).Run(context.Background())
	if err != nil || st != (Stats{}) {
		t.Fatalf("stats=%+v err=%v", st, err)
	}
	if w.dim != 0 {
		t.Error("index must not be created for an empty catalog")
	}
}

func TestRun_CatalogErrorKeepsKind(t *testing.T) {
	loadErr := domain.NewError(domain.KindPersistence, "decode catalog line", errors.New("bad json"))
	_, err := newTestService(&mockCatalog{err: loadErr}, &mockEmbedder{dim: 4}, newMockWriter(), 4).
		Run(context.Background())
	if !errors.Is(err, domain.KindPersistence) {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_EmbeddingFailure(t *testing.T) {
	cat := &mockCatalog{docs: []anime.Document{doc(1, "FMA"), doc(2, "Bebop")}}
	emb := &mockEmbedder{dim: 4, err: domain.ErrEmbeddingProviderError}

	_, err := newTestService(cat, emb, newMockWriter(), 2).Run(context.Background())
	if !errors.Is(err, domain.KindIndexing) || !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("err = %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Context["chunks"] != 4 {
		t.Errorf("context = %+v", de)
	}
}

func TestRun_StoreFailure(t *testing.T) {
	cat := &mockCatalog{docs: []anime.Document{doc(1, "FMA")}}
	w := newMockWriter()
	w.upsertErr = errors.New("OOM command not allowed")

	_, err := newTestService(cat, &mockEmbedder{dim: 4}, w, 2).Run(context.Background())
	if !errors.Is(err, domain.KindIndexing) {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_EnsureIndexFailure(t *testing.T) {
	cat := &mockCatalog{docs: []anime.Document{doc(1, "FMA")}}
	w := newMockWriter()
	w.ensureErr = errors.New("unknown command FT.CREATE")

	_, err := newTestService(cat, &mockEmbedder{dim: 4}, w, 2).Run(context.Background())
	if !errors.Is(err, domain.KindIndexing) {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_DimensionMismatch(t *testing.T) {
	cat := &mockCatalog{docs: []anime.Document{doc(1, "FMA")}}
	svc := New(cat, chunk.NewBuilder(0, 0), &mockEmbedder{dim: 3}, newMockWriter(), Config{Dimensions: 4})

	_, err := svc.Run(context.Background())
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestResetAndRun(t *testing.T) {
	cat := &mockCatalog{docs: []anime.Document{doc(1, "FMA")}}
	w := newMockWriter()
	w.resetN = 10
	w.records["stale_0"] = chunk.Record{ID: "stale_0"}

	st, err := newTestService(cat, &mockEmbedder{dim: 4}, w, 8).ResetAndRun(context.Background(), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Reset != 10 || st.Chunks != 2 {
		t.Errorf("stats = %+v", st)
	}
	if _, ok := w.records["stale_0"]; ok {
		t.Error("stale chunk survived reset")
	}
}
