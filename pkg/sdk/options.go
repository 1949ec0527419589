package animerec

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/animerec/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// clientConfig is the server configuration plus the SDK-only observability hooks.
// Unset fields take the same defaults as config.Config.ApplyDefaults.
type clientConfig struct {
	core config.Config

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores chunks in a Valkey instance with the search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.VectorStore.Driver = config.DriverValkey
		c.core.VectorStore.Addrs = []string{addr}
		c.core.VectorStore.Password = password
	})
}

// WithRedis stores chunks in Redis Stack.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.VectorStore.Driver = config.DriverRedis
		c.core.VectorStore.Addrs = []string{addr}
		c.core.VectorStore.Password = password
	})
}

// WithQdrant stores chunks in Qdrant. url is the gRPC endpoint, e.g. http://localhost:6334.
func WithQdrant(url, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.VectorStore.Driver = config.DriverQdrant
		c.core.VectorStore.URL = url
		c.core.VectorStore.APIKey = apiKey
	})
}

// WithCollection names the index (Valkey/Redis) or collection (Qdrant).
// Default: anime_chunks.
func WithCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.VectorStore.Collection = name
	})
}

// WithHNSW configures HNSW index parameters for Valkey and Redis.
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.VectorStore.HNSWM = m
		c.core.VectorStore.HNSWEFConstruct = efConstruct
	})
}

// WithEmbedding points the client at an OpenAI-compatible embeddings endpoint.
// dimensions must match the model output and the existing index.
func WithEmbedding(baseURL, apiKey, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Embedding.BaseURL = baseURL
		c.core.Embedding.APIKey = apiKey
		c.core.Embedding.Model = model
		c.core.Embedding.Dimensions = dimensions
	})
}

// WithInstructions prefixes queries and documents before embedding, for models
// trained with asymmetric prompts such as E5 ("query: ", "passage: ").
func WithInstructions(query, document string) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Embedding.QueryInstruction = query
		c.core.Embedding.DocumentInstruction = document
	})
}

// WithEmbeddingCache caches embeddings in the vector store's Valkey/Redis instance.
// A zero ttl keeps entries forever. Qdrant users need WithEmbeddingCacheStore.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Embedding.Cache.Enabled = true
		c.core.Embedding.Cache.TTLSec = int(ttl / time.Second)
	})
}

// WithEmbeddingCacheStore caches embeddings in a separate Valkey instance.
func WithEmbeddingCacheStore(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Embedding.Cache = config.CacheConfig{
			Enabled:  true,
			Addrs:    []string{addr},
			Password: password,
			TTLSec:   int(ttl / time.Second),
		}
	})
}

// WithRanker enables reordering of the final shortlist by a chat model.
func WithRanker(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Ranker.Enabled = true
		c.core.Ranker.BaseURL = baseURL
		c.core.Ranker.APIKey = apiKey
		c.core.Ranker.Model = model
	})
}

// WithLexicalWeight sets the keyword bonus weight used in hybrid scoring.
// Default: 0.3.
func WithLexicalWeight(w float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Search.LexicalWeight = w
	})
}

// WithCatalog sets the JSONL catalog path used by Ingest and Reindex.
func WithCatalog(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Catalog.Path = path
	})
}

// WithChunking sets the chunk size and overlap in characters used by Reindex.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.core.Indexing.ChunkSize = size
		c.core.Indexing.ChunkOverlap = overlap
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
