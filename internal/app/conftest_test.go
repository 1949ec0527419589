package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/config"
	domchunk "github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
)

// fakeProvider is an OpenAI-compatible embeddings endpoint that records every input.
type fakeProvider struct {
	mu     sync.Mutex
	inputs [][]string
	dim    int
}

func (p *fakeProvider) calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.inputs...)
}

func (p *fakeProvider) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
		case "/embeddings":
			var req struct {
				Input []string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			p.mu.Lock()
			p.inputs = append(p.inputs, req.Input)
			p.mu.Unlock()

			data := make([]map[string]any, len(req.Input))
			for i := range req.Input {
				vec := make([]float32, p.dim)
				vec[0] = 1
				data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"model":  "test-model",
				"data":   data,
				"usage":  map[string]int{"prompt_tokens": len(req.Input), "total_tokens": len(req.Input)},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeIndex is an in-memory VectorIndex.
type fakeIndex struct {
	mu       sync.Mutex
	dim      int
	records  []domchunk.Record
	hits     []domchunk.Hit
	lastK    int
	pingErr  error
	resetCnt int
}

func (f *fakeIndex) EnsureIndex(_ context.Context, dim int) error {
	f.dim = dim
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, records []domchunk.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, k int, _ filter.Expression) ([]domchunk.Hit, error) {
	f.lastK = k
	return f.hits, nil
}

func (f *fakeIndex) Reset(context.Context) (int, error) {
	n := len(f.records)
	f.records = nil
	f.resetCnt++
	return n, nil
}

func (f *fakeIndex) Ping(context.Context) error { return f.pingErr }

// memKV is an in-memory embedding cache store.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
	return nil
}

func (m *memKV) SetWithTTL(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return m.Set(ctx, key, value)
}

// newTestApp wires an App around fakes, skipping the network connections New makes.
func newTestApp(t *testing.T, mutate func(*config.Config)) (*App, *fakeIndex, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{dim: 4}
	srv := provider.start(t)

	cfg := config.Config{
		VectorStore: config.VectorStoreConfig{Addrs: []string{"unused:6379"}},
		Embedding: config.EmbeddingConfig{
			BaseURL:    srv.URL,
			APIKey:     "test-key",
			Model:      "test-model",
			Dimensions: 4,
			Cache:      config.CacheConfig{Enabled: true},
		},
		Catalog: config.CatalogConfig{Path: t.TempDir() + "/anime.jsonl"},
	}
	cfg.ApplyDefaults()
	if mutate != nil {
		mutate(&cfg)
	}

	idx := &fakeIndex{}
	a := &App{cfg: cfg, logger: zap.NewNop(), index: idx, pinger: idx}
	if cfg.Embedding.Cache.Enabled {
		a.cache = &memKV{}
	}
	a.buildEmbedders()
	return a, idx, provider
}
