package animerec

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/animerec/internal/config"
	"github.com/kailas-cloud/animerec/internal/domain"
)

func TestNew_NoVectorStore(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no vector store configured")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(),
		WithValkey("localhost:6379", ""),
		WithChunking(100, 200),
	)
	if err == nil || !strings.Contains(err.Error(), "chunk_overlap") {
		t.Fatalf("expected chunk_overlap validation error, got %v", err)
	}
}

func TestNew_QdrantBadURL(t *testing.T) {
	_, err := New(context.Background(), WithQdrant("http://host:notaport", ""))
	if !errors.Is(err, domain.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	vs := cfg.core.VectorStore
	if vs.Driver != config.DriverValkey || vs.Addrs[0] != "localhost:6379" || vs.Password != "secret" {
		t.Errorf("valkey: %+v", vs)
	}

	WithRedis("localhost:6380", "pass").apply(cfg)
	if cfg.core.VectorStore.Driver != config.DriverRedis {
		t.Errorf("driver = %q, want redis", cfg.core.VectorStore.Driver)
	}

	WithQdrant("http://localhost:6334", "key").apply(cfg)
	if cfg.core.VectorStore.Driver != config.DriverQdrant || cfg.core.VectorStore.URL != "http://localhost:6334" {
		t.Errorf("qdrant: %+v", cfg.core.VectorStore)
	}

	WithCollection("shows").apply(cfg)
	WithHNSW(32, 400).apply(cfg)
	if cfg.core.VectorStore.Collection != "shows" || cfg.core.VectorStore.HNSWM != 32 || cfg.core.VectorStore.HNSWEFConstruct != 400 {
		t.Errorf("collection/hnsw: %+v", cfg.core.VectorStore)
	}

	WithEmbedding("http://emb/v1", "k", "e5-small", 384).apply(cfg)
	WithInstructions("query: ", "passage: ").apply(cfg)
	ec := cfg.core.Embedding
	if ec.BaseURL != "http://emb/v1" || ec.Model != "e5-small" || ec.Dimensions != 384 {
		t.Errorf("embedding: %+v", ec)
	}
	if ec.QueryInstruction != "query: " || ec.DocumentInstruction != "passage: " {
		t.Errorf("instructions: %+v", ec)
	}

	WithEmbeddingCache(time.Hour).apply(cfg)
	if !cfg.core.Embedding.Cache.Enabled || cfg.core.Embedding.Cache.TTLSec != 3600 {
		t.Errorf("cache: %+v", cfg.core.Embedding.Cache)
	}
	WithEmbeddingCacheStore("cache:6379", "", 0).apply(cfg)
	if cc := cfg.core.Embedding.Cache; !cc.Enabled || cc.Addrs[0] != "cache:6379" || cc.TTLSec != 0 {
		t.Errorf("cache store: %+v", cc)
	}

	WithRanker("http://llm/v1", "k", "gpt-4o-mini").apply(cfg)
	if !cfg.core.Ranker.Enabled || cfg.core.Ranker.Model != "gpt-4o-mini" {
		t.Errorf("ranker: %+v", cfg.core.Ranker)
	}

	WithLexicalWeight(0.5).apply(cfg)
	WithCatalog("/tmp/anime.jsonl").apply(cfg)
	WithChunking(800, 80).apply(cfg)
	if cfg.core.Search.LexicalWeight != 0.5 || cfg.core.Catalog.Path != "/tmp/anime.jsonl" {
		t.Errorf("search/catalog: %+v %+v", cfg.core.Search, cfg.core.Catalog)
	}
	if cfg.core.Indexing.ChunkSize != 800 || cfg.core.Indexing.ChunkOverlap != 80 {
		t.Errorf("chunking: %+v", cfg.core.Indexing)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.logger != logger || cfg.metricsReg != reg {
		t.Error("expected logger and registry to be set")
	}
}

func TestClient_Close_Unwired(t *testing.T) {
	c := &Client{}
	c.Close()
}

func TestClient_Close_Once(t *testing.T) {
	calls := 0
	c := &Client{closeFn: func() { calls++ }}
	c.Close()
	if calls != 1 {
		t.Errorf("close calls = %d, want 1", calls)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
	obs.observeResults(3)
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("recommend", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("recommend", time.Now(), errors.New("fail"))
	obs.observeResults(5)

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("recommend", "ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("recommend", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
	n, err := testutil.GatherAndCount(reg, "animerec_sdk_recommend_results")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("recommend_results series = %d, want 1", n)
	}
}

func TestObserver_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first observer: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second observer: %v", err)
	}

	first.observe("health", time.Now(), nil)
	second.observe("health", time.Now(), nil)

	if got := testutil.ToFloat64(first.metrics.operations.WithLabelValues("health", "ok")); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}

func TestObserver_IncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "animerec",
		Subsystem: "sdk",
		Name:      "operations_total",
		Help:      "Total SDK operations by type and status.",
	}, []string{"operation", "status"}))

	if _, err := newObserver(nil, reg); err == nil {
		t.Fatal("expected error for incompatible collector")
	}
}

func TestObserver_WithLogger(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs, err := newObserver(logger, nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("reindex", time.Now(), nil)
	obs.observe("reindex", time.Now(), domain.NewError(domain.KindEmbedding, "embed batch", errors.New("boom")))

	out := buf.String()
	if !strings.Contains(out, "operation completed") || !strings.Contains(out, "operation failed") {
		t.Errorf("missing log lines: %s", out)
	}
	if !strings.Contains(out, "kind=embedding") {
		t.Errorf("missing error kind: %s", out)
	}
}
