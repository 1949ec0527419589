package search

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
	"github.com/kailas-cloud/animerec/internal/domain/search/request"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
	"github.com/kailas-cloud/animerec/internal/logger"
	"github.com/kailas-cloud/animerec/internal/metrics"
)

// DefaultOverFetch multiplies top_k to size the vector query.
const DefaultOverFetch = 10

// Config tunes the search pipeline.
type Config struct {
	Weights      Weights
	OverFetch    int
	EmbedTimeout time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), OverFetch: DefaultOverFetch}
}

// Service runs the hybrid retrieval pipeline:
// predicate -> vector query -> lexical score -> filter and aggregate -> rerank.
type Service struct {
	embed    Embedder
	index    ChunkIndex
	reranker *Reranker
	cfg      Config
	tracer   trace.Tracer
}

// New creates a search service. reranker may be nil.
func New(embed Embedder, index ChunkIndex, reranker *Reranker, cfg Config) *Service {
	if cfg.OverFetch <= 0 {
		cfg.OverFetch = DefaultOverFetch
	}
	if cfg.Weights.ShortlistSize <= 0 {
		cfg.Weights.ShortlistSize = DefaultShortlistSize
	}
	return &Service{
		embed:    embed,
		index:    index,
		reranker: reranker,
		cfg:      cfg,
		tracer:   otel.Tracer("github.com/kailas-cloud/animerec/internal/usecase/search"),
	}
}

// Search returns up to req.TopK() candidates ordered by relevance.
// Embedding and vector store failures are fatal; reranking failures are not.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Candidate, error) {
	ctx, span := s.tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.Int("search.top_k", req.TopK()),
	))
	defer span.End()

	start := time.Now()
	log := logger.FromContext(ctx)

	expr := filter.BuildPredicate(req.Filters())

	vector, err := s.vectorize(ctx, req.Query())
	if err != nil {
		return nil, s.fail(span, req, "vectorize query", err)
	}

	k := req.TopK() * s.cfg.OverFetch
	qctx, qspan := s.tracer.Start(ctx, "search.vector_query", trace.WithAttributes(
		attribute.Int("search.k", k),
		attribute.Int("search.conditions", len(expr.Must())),
	))
	stageStart := time.Now()
	hits, err := s.index.Query(qctx, vector, k, expr)
	metrics.SearchStageDuration.WithLabelValues("query").Observe(time.Since(stageStart).Seconds())
	if err != nil {
		qspan.RecordError(err)
		qspan.End()
		return nil, s.fail(span, req, "vector query", err)
	}
	qspan.SetAttributes(attribute.Int("search.hits", len(hits)))
	qspan.End()
	metrics.SearchHits.Observe(float64(len(hits)))

	_, aspan := s.tracer.Start(ctx, "search.aggregate")
	stageStart = time.Now()
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	lexical := ScoreLexical(req.Query(), texts)

	weights := s.cfg.Weights
	if weights.ShortlistSize < req.TopK() {
		weights.ShortlistSize = req.TopK()
	}
	shortlist := Aggregate(hits, lexical, req.Filters().Tags, weights)
	metrics.SearchStageDuration.WithLabelValues("aggregate").Observe(time.Since(stageStart).Seconds())
	aspan.SetAttributes(attribute.Int("search.shortlist", len(shortlist)))
	aspan.End()

	ranked := shortlist
	if s.reranker.Enabled() {
		rctx, rspan := s.tracer.Start(ctx, "search.rerank")
		stageStart = time.Now()
		ranked = s.reranker.Rerank(rctx, req.Query(), shortlist)
		metrics.SearchStageDuration.WithLabelValues("rerank").Observe(time.Since(stageStart).Seconds())
		rspan.End()
	}

	ranked = result.Truncate(ranked, req.TopK())

	metrics.SearchStageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	metrics.SearchResults.Observe(float64(len(ranked)))

	log.Debug("Search completed",
		zap.Int("hits", len(hits)),
		zap.Int("shortlist", len(shortlist)),
		zap.Int("results", len(ranked)),
		zap.Duration("duration", time.Since(start)),
	)

	return ranked, nil
}

func (s *Service) vectorize(ctx context.Context, query string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "search.embed")
	defer span.End()

	if s.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EmbedTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.embed.Embed(ctx, query)
	metrics.SearchStageDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty vector: %w", domain.ErrEmbeddingProviderError)
	}

	domain.UsageFromContext(ctx).AddEmbeddingTokens(res.TotalTokens)
	return res.Embedding, nil
}

func (s *Service) fail(span trace.Span, req *request.Request, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return domain.NewError(domain.KindRetrieval, msg, err, "query", req.Query())
}
