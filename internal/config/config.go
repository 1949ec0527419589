package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported vector store drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverQdrant = "qdrant"
)

// Config holds the animerec configuration shared by the server and the CLI.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Ranker      RankerConfig      `yaml:"ranker"`
	Search      SearchConfig      `yaml:"search"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Indexing    IndexingConfig    `yaml:"indexing"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// TelemetryConfig controls trace export. An empty OTLPEndpoint leaves tracing off.
type TelemetryConfig struct {
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // e.g. http://otel-collector:4318
	SampleRatio  float64 `yaml:"sample_ratio"`  // 0 means 1 (sample everything)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// VectorStoreConfig selects and connects the chunk index.
type VectorStoreConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, qdrant (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	URL              string   `yaml:"url"` // qdrant gRPC endpoint
	APIKey           string   `yaml:"api_key"`
	Collection       string   `yaml:"collection"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// UsesKV reports whether the driver is backed by a Valkey/Redis connection.
func (c VectorStoreConfig) UsesKV() bool {
	return c.Driver == DriverValkey || c.Driver == DriverRedis
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	Provider            string      `yaml:"provider"`
	BaseURL             string      `yaml:"base_url"`
	APIKey              string      `yaml:"api_key"`
	Model               string      `yaml:"model"`
	Dimensions          int         `yaml:"dimensions"`
	QueryInstruction    string      `yaml:"query_instruction"`
	DocumentInstruction string      `yaml:"document_instruction"`
	TimeoutSec          int         `yaml:"timeout_sec"`
	MaxBatchSize        int         `yaml:"max_batch_size"`
	Cache               CacheConfig `yaml:"cache"`
}

// Timeout returns the per-call embedding timeout.
func (c EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// CacheConfig holds embedding cache settings. Empty Addrs reuse the vector store
// connection when it is Valkey or Redis.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"` // 0 = no expiry
}

// RankerConfig holds ranking oracle settings.
type RankerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// Timeout returns the oracle call budget.
func (c RankerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// SearchConfig tunes the retrieval pipeline.
type SearchConfig struct {
	LexicalWeight float64 `yaml:"lexical_weight"`
	OverFetch     int     `yaml:"over_fetch"`
	ShortlistSize int     `yaml:"shortlist_size"`
	DefaultTopK   int     `yaml:"default_top_k"`
	MaxTopK       int     `yaml:"max_top_k"`
}

// IngestionConfig holds catalog API crawl settings.
type IngestionConfig struct {
	BaseURL        string  `yaml:"base_url"`
	StartPage      int     `yaml:"start_page"`
	EndPage        int     `yaml:"end_page"`
	BatchSize      int     `yaml:"batch_size"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	MaxAttempts    int     `yaml:"max_attempts"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// CatalogConfig locates the normalized catalog file.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// IndexingConfig tunes chunking and batch embedding.
type IndexingConfig struct {
	BatchSize    int `yaml:"batch_size"`
	Concurrency  int `yaml:"concurrency"`
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.VectorStore.Driver == "" {
		c.VectorStore.Driver = DriverValkey
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "anime_chunks"
	}
	if c.VectorStore.ReadinessTimeout <= 0 {
		c.VectorStore.ReadinessTimeout = 10
	}
	if c.VectorStore.HNSWM <= 0 {
		c.VectorStore.HNSWM = 16
	}
	if c.VectorStore.HNSWEFConstruct <= 0 {
		c.VectorStore.HNSWEFConstruct = 200
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}

	if c.Ranker.Model == "" {
		c.Ranker.Model = "gpt-4o-mini"
	}
	if c.Ranker.TimeoutSec <= 0 {
		c.Ranker.TimeoutSec = 15
	}

	if c.Search.LexicalWeight == 0 {
		c.Search.LexicalWeight = 0.3
	}
	if c.Search.OverFetch <= 0 {
		c.Search.OverFetch = 10
	}
	if c.Search.ShortlistSize <= 0 {
		c.Search.ShortlistSize = 15
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 10
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 100
	}

	if c.Ingestion.StartPage <= 0 {
		c.Ingestion.StartPage = 1
	}
	if c.Ingestion.EndPage <= 0 {
		c.Ingestion.EndPage = 100
	}
	if c.Ingestion.BatchSize <= 0 {
		c.Ingestion.BatchSize = 50
	}
	if c.Ingestion.RequestsPerSec <= 0 {
		c.Ingestion.RequestsPerSec = 2.5
	}
	if c.Ingestion.MaxAttempts <= 0 {
		c.Ingestion.MaxAttempts = 5
	}
	if c.Ingestion.TimeoutSec <= 0 {
		c.Ingestion.TimeoutSec = 30
	}

	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join("data", "anime.jsonl")
	}

	if c.Indexing.BatchSize <= 0 {
		c.Indexing.BatchSize = 64
	}
	if c.Indexing.Concurrency <= 0 {
		c.Indexing.Concurrency = 4
	}
	if c.Indexing.ChunkSize <= 0 {
		c.Indexing.ChunkSize = 500
	}
	if c.Indexing.ChunkOverlap <= 0 {
		c.Indexing.ChunkOverlap = 100
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "animerec"
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.VectorStore.Driver {
	case DriverValkey, DriverRedis:
		if len(c.VectorStore.Addrs) == 0 {
			return fmt.Errorf("vector_store.addrs is required for driver %q", c.VectorStore.Driver)
		}
	case DriverQdrant:
		if c.VectorStore.URL == "" {
			return fmt.Errorf("vector_store.url is required for driver %q", DriverQdrant)
		}
	default:
		return fmt.Errorf("vector_store.driver must be one of valkey, redis, qdrant, got %q", c.VectorStore.Driver)
	}

	if c.Embedding.Cache.Enabled && len(c.Embedding.Cache.Addrs) == 0 && !c.VectorStore.UsesKV() {
		return fmt.Errorf("embedding.cache.addrs is required when vector_store.driver is %q", c.VectorStore.Driver)
	}
	if c.Embedding.Cache.TTLSec < 0 {
		return fmt.Errorf("embedding.cache.ttl_sec must not be negative, got %d", c.Embedding.Cache.TTLSec)
	}

	if c.Search.LexicalWeight < 0 {
		return fmt.Errorf("search.lexical_weight must not be negative, got %g", c.Search.LexicalWeight)
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) exceeds search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}

	if c.Ingestion.EndPage < c.Ingestion.StartPage {
		return fmt.Errorf("ingestion.end_page (%d) is before ingestion.start_page (%d)",
			c.Ingestion.EndPage, c.Ingestion.StartPage)
	}

	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1, got %g", r)
	}

	if c.Indexing.ChunkOverlap >= c.Indexing.ChunkSize {
		return fmt.Errorf("indexing.chunk_overlap (%d) must be smaller than indexing.chunk_size (%d)",
			c.Indexing.ChunkOverlap, c.Indexing.ChunkSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
