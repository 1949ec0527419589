// Package index builds the vector index from the anime catalog.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/logger"
	"github.com/kailas-cloud/animerec/internal/metrics"
)

// Defaults for batch size and embedding concurrency.
const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// Config tunes indexing.
type Config struct {
	Dimensions  int // expected vector size; the index is created with it
	BatchSize   int // chunks per embedding call and per upsert
	Concurrency int // batches embedded in parallel
}

// Stats summarizes an indexing run.
type Stats struct {
	Documents int
	Chunks    int
	Reset     int // chunks removed before indexing, when a reset was requested
}

// Service indexes the catalog.
type Service struct {
	catalog CatalogReader
	builder ChunkBuilder
	embed   domain.Embedder
	writer  ChunkWriter
	cfg     Config
}

// New creates an indexing service. embed should also implement domain.BatchEmbedder.
func New(catalog CatalogReader, builder ChunkBuilder, embed domain.Embedder, writer ChunkWriter, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Service{catalog: catalog, builder: builder, embed: embed, writer: writer, cfg: cfg}
}

// Run chunks every catalog document, embeds the chunks and upserts them.
// An empty catalog is a no-op. Any embedding or store failure aborts the run.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	log := logger.FromContext(ctx)
	var st Stats

	docs, err := s.catalog.Load()
	if err != nil {
		return st, s.fail("load catalog", err, 0)
	}
	if len(docs) == 0 {
		log.Warn("Catalog is empty, nothing to index")
		return st, nil
	}
	st.Documents = len(docs)

	var records []chunk.Record
	for i := range docs {
		recs, err := s.builder.Build(&docs[i])
		if err != nil {
			return st, s.fail("build chunks", err, len(records), "anime_id", docs[i].ID)
		}
		records = append(records, recs...)
	}
	log.Info("Built chunks", zap.Int("documents", len(docs)), zap.Int("chunks", len(records)))

	if err := s.writer.EnsureIndex(ctx, s.cfg.Dimensions); err != nil {
		return st, s.fail("ensure index", err, len(records))
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for start := 0; start < len(records); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(records))
		batch := records[start:end]

		g.Go(func() error {
			if err := s.indexBatch(gctx, batch); err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			n := written.Add(int64(len(batch)))
			metrics.IndexedChunksTotal.Add(float64(len(batch)))
			log.Debug("Indexed batch", zap.Int("offset", start), zap.Int64("written", n))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		st.Chunks = int(written.Load())
		return st, s.fail("index chunks", err, len(records))
	}

	st.Chunks = len(records)
	log.Info("Indexing complete", zap.Int("documents", st.Documents), zap.Int("chunks", st.Chunks))
	return st, nil
}

// ResetAndRun clears the index through r before running.
func (s *Service) ResetAndRun(ctx context.Context, r Resetter) (Stats, error) {
	n, err := r.Reset(ctx)
	if err != nil {
		return Stats{}, s.fail("reset index", err, 0)
	}
	logger.FromContext(ctx).Info("Index reset", zap.Int("removed", n))

	st, err := s.Run(ctx)
	st.Reset = n
	return st, err
}

func (s *Service) indexBatch(ctx context.Context, batch []chunk.Record) error {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}

	res, err := domain.EmbedAll(ctx, s.embed, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	// Vectors are set on copies; the shared records slice is read-only here.
	out := make([]chunk.Record, len(batch))
	for i := range batch {
		vec := res.Embeddings[i]
		if s.cfg.Dimensions > 0 && len(vec) != s.cfg.Dimensions {
			return fmt.Errorf("chunk %s: got %d dims, want %d: %w",
				batch[i].ID, len(vec), s.cfg.Dimensions, domain.ErrVectorDimMismatch)
		}
		out[i] = batch[i]
		out[i].Vector = vec
	}

	if err := s.writer.Upsert(ctx, out); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func (s *Service) fail(msg string, err error, chunks int, kv ...any) error {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindPersistence {
		return err
	}
	kv = append(kv, "chunks", chunks)
	return domain.NewError(domain.KindIndexing, msg, err, kv...)
}
