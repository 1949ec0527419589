// Package app wires configuration into the services shared by the API server and the CLI.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/config"
	"github.com/kailas-cloud/animerec/internal/db/qdrant"
	"github.com/kailas-cloud/animerec/internal/db/valkey"
	"github.com/kailas-cloud/animerec/internal/domain"
	domchunk "github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
	"github.com/kailas-cloud/animerec/internal/metrics"
	"github.com/kailas-cloud/animerec/internal/repository/catalog"
	chunkrepo "github.com/kailas-cloud/animerec/internal/repository/chunk"
	"github.com/kailas-cloud/animerec/internal/repository/embcache"
	"github.com/kailas-cloud/animerec/internal/transport/jikan"
	openaiTransport "github.com/kailas-cloud/animerec/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/animerec/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/animerec/internal/usecase/health"
	indexuc "github.com/kailas-cloud/animerec/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/animerec/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/animerec/internal/usecase/search"
)

// VectorIndex is the chunk index as both binaries use it.
type VectorIndex interface {
	EnsureIndex(ctx context.Context, dim int) error
	Upsert(ctx context.Context, records []domchunk.Record) error
	Query(ctx context.Context, vector []float32, k int, expr filter.Expression) ([]domchunk.Hit, error)
	Reset(ctx context.Context) (int, error)
}

// kvStore is what the embedding cache needs from Valkey.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// App holds long-lived collaborators. Close releases every connection it opened.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	index  VectorIndex
	pinger healthuc.VectorStorePinger
	cache  kvStore

	queryEmbedder    domain.Embedder
	documentEmbedder domain.Embedder

	closers []func()
}

// New connects the vector store (and the cache store when separate) and builds the
// embedder chains. The caller must Close the returned App.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.connectVectorStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.connectCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.buildEmbedders()
	return a, nil
}

func (a *App) connectVectorStore(ctx context.Context) error {
	vs := a.cfg.VectorStore
	readiness := time.Duration(vs.ReadinessTimeout) * time.Second

	switch vs.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err := valkey.NewStore(valkey.Config{
			Addrs:    vs.Addrs,
			Password: vs.Password,
			Flavor:   valkey.Flavor(vs.Driver),
		})
		if err != nil {
			return domain.NewError(domain.KindConfiguration, "create vector store", err, "driver", vs.Driver)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.WaitForReady(ctx, readiness); err != nil {
			return domain.NewError(domain.KindVectorStore, "vector store not ready", err, "addrs", vs.Addrs)
		}
		a.index = chunkrepo.New(store, vs.Collection, chunkrepo.HNSWConfig{
			M:           vs.HNSWM,
			EFConstruct: vs.HNSWEFConstruct,
		})
		a.pinger = store
		a.cache = store

	case config.DriverQdrant:
		ix, err := qdrant.Dial(qdrant.Config{URL: vs.URL, APIKey: vs.APIKey, Collection: vs.Collection})
		if err != nil {
			return domain.NewError(domain.KindConfiguration, "create vector store", err, "driver", vs.Driver)
		}
		a.closers = append(a.closers, func() { _ = ix.Close() })
		pctx, cancel := context.WithTimeout(ctx, readiness)
		defer cancel()
		if err := ix.Ping(pctx); err != nil {
			return domain.NewError(domain.KindVectorStore, "vector store not ready", err, "url", vs.URL)
		}
		a.index = ix
		a.pinger = ix

	default:
		return domain.NewError(domain.KindConfiguration, "unknown vector store driver", nil, "driver", vs.Driver)
	}

	a.logger.Info("Connected to vector store",
		zap.String("driver", vs.Driver),
		zap.String("collection", vs.Collection),
	)
	return nil
}

func (a *App) connectCache(ctx context.Context) error {
	cc := a.cfg.Embedding.Cache
	if !cc.Enabled {
		a.cache = nil
		return nil
	}
	if len(cc.Addrs) == 0 {
		// reuse the vector store connection set by connectVectorStore
		return nil
	}

	store, err := valkey.NewStore(valkey.Config{Addrs: cc.Addrs, Password: cc.Password})
	if err != nil {
		return domain.NewError(domain.KindConfiguration, "create embedding cache store", err)
	}
	a.closers = append(a.closers, store.Close)
	if err := store.WaitForReady(ctx, time.Duration(a.cfg.VectorStore.ReadinessTimeout)*time.Second); err != nil {
		return domain.NewError(domain.KindVectorStore, "embedding cache not ready", err, "addrs", cc.Addrs)
	}
	a.cache = store
	return nil
}

// buildEmbedders assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func (a *App) buildEmbedders() {
	ec := a.cfg.Embedding

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Timeout:    ec.Timeout(),
		Logger:     a.logger,
	})

	if a.cache != nil {
		embedder = embcache.New(embedder, a.cache, ec.Model, a.logger,
			embcache.WithTTL(time.Duration(ec.Cache.TTLSec)*time.Second),
			embcache.WithCacheCounter(metrics.EmbeddingCacheTotal),
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, a.logger).
		WithMaxBatchSize(ec.MaxBatchSize)

	// instruction outermost so cache keys include it
	a.queryEmbedder = withInstruction(embedder, ec.QueryInstruction)
	a.documentEmbedder = withInstruction(embedder, ec.DocumentInstruction)

	a.logger.Info("Embedders created",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions),
		zap.Bool("cache", a.cache != nil),
	)
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// Index returns the configured chunk index.
func (a *App) Index() VectorIndex { return a.index }

// SearchService builds the retrieval pipeline, with the oracle reranker when enabled.
func (a *App) SearchService() *searchuc.Service {
	var reranker *searchuc.Reranker
	if rc := a.cfg.Ranker; rc.Enabled {
		ranker := openaiTransport.NewRanker(&openaiTransport.RankerConfig{
			APIKey:      rc.APIKey,
			BaseURL:     rc.BaseURL,
			Model:       rc.Model,
			Temperature: rc.Temperature,
			Logger:      a.logger,
		})
		reranker = searchuc.NewReranker(ranker, rc.Timeout())
	}

	sc := a.cfg.Search
	return searchuc.New(a.queryEmbedder, a.index, reranker, searchuc.Config{
		Weights: searchuc.Weights{
			LexicalWeight: sc.LexicalWeight,
			ShortlistSize: sc.ShortlistSize,
		},
		OverFetch:    sc.OverFetch,
		EmbedTimeout: a.cfg.Embedding.Timeout(),
	})
}

// HealthService probes the vector store and the embedding provider.
func (a *App) HealthService() *healthuc.Service {
	var checker healthuc.EmbeddingChecker
	if hc, ok := a.queryEmbedder.(domain.HealthChecker); ok {
		checker = hc
	}
	return healthuc.New(a.pinger, checker)
}

// Catalog returns the JSONL catalog store.
func (a *App) Catalog() *catalog.Store {
	return NewCatalog(a.cfg, a.logger)
}

// NewCatalog opens the JSONL catalog store named by cfg.
func NewCatalog(cfg config.Config, logger *zap.Logger) *catalog.Store {
	return catalog.New(cfg.Catalog.Path, logger)
}

// NewIngestService crawls the catalog API into the catalog file. It needs no vector
// store, so the CLI builds it without an App.
func NewIngestService(cfg config.Config, logger *zap.Logger) *ingestuc.Service {
	ic := cfg.Ingestion
	client := jikan.New(jikan.Config{
		BaseURL:        ic.BaseURL,
		RequestsPerSec: ic.RequestsPerSec,
		MaxAttempts:    ic.MaxAttempts,
		Timeout:        time.Duration(ic.TimeoutSec) * time.Second,
		Logger:         logger,
	})
	return ingestuc.New(client, NewCatalog(cfg, logger)).WithBatchSize(ic.BatchSize)
}

// IndexService embeds the catalog into the vector store.
func (a *App) IndexService() *indexuc.Service {
	ix := a.cfg.Indexing
	builder := domchunk.NewBuilder(ix.ChunkSize, ix.ChunkOverlap)
	return indexuc.New(a.Catalog(), builder, a.documentEmbedder, a.index, indexuc.Config{
		Dimensions:  a.cfg.Embedding.Dimensions,
		BatchSize:   ix.BatchSize,
		Concurrency: ix.Concurrency,
	})
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
