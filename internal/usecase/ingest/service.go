// Package ingest pulls anime pages from the upstream catalog, normalizes them and
// persists them incrementally, so an interrupted run keeps everything flushed so far.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/anime"
	"github.com/kailas-cloud/animerec/internal/logger"
	"github.com/kailas-cloud/animerec/internal/metrics"
)

// DefaultBatchSize is the number of documents buffered between catalog flushes.
const DefaultBatchSize = 50

// Stats summarizes an ingestion run. Dropped = Fetched - Written.
type Stats struct {
	Fetched int
	Written int
	Dropped int
	Pages   int
}

// Service runs ingestion.
type Service struct {
	fetcher   PageFetcher
	catalog   CatalogWriter
	batchSize int
}

// New creates an ingestion service.
func New(fetcher PageFetcher, catalog CatalogWriter) *Service {
	return &Service{fetcher: fetcher, catalog: catalog, batchSize: DefaultBatchSize}
}

// WithBatchSize configures the flush threshold.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Run ingests pages start..end inclusive. It stops early when the upstream reports
// no further pages. Records that normalize to nothing or fail normalization are
// dropped and counted; fetch and persistence failures abort the run.
func (s *Service) Run(ctx context.Context, start, end int) (Stats, error) {
	var st Stats
	if start < 1 || end < start {
		return st, domain.NewError(domain.KindIngestion, "invalid page range",
			domain.ErrInvalidRequest, "start", start, "end", end)
	}

	log := logger.FromContext(ctx)
	log.Info("Starting ingestion", zap.Int("start_page", start), zap.Int("end_page", end))

	buf := make([]anime.Document, 0, s.batchSize)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := s.catalog.Append(buf); err != nil {
			return fmt.Errorf("flush %d documents: %w", len(buf), err)
		}
		st.Written += len(buf)
		metrics.IngestRecordsTotal.WithLabelValues("written").Add(float64(len(buf)))
		buf = buf[:0]
		return nil
	}

	for page := start; page <= end; page++ {
		if err := ctx.Err(); err != nil {
			return s.finish(&st, flush, err)
		}

		p, err := s.fetcher.FetchPage(ctx, page)
		if err != nil {
			return s.finish(&st, flush, err)
		}
		st.Pages++

		fetched := len(p.Records) + p.Malformed
		st.Fetched += fetched
		metrics.IngestRecordsTotal.WithLabelValues("fetched").Add(float64(fetched))

		for i := range p.Records {
			doc, ok, err := anime.Normalize(&p.Records[i])
			if err != nil {
				log.Warn("Dropping malformed anime record",
					zap.Int("page", page), zap.Int("mal_id", p.Records[i].MalID), zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
			buf = append(buf, doc)
			if len(buf) >= s.batchSize {
				if err := flush(); err != nil {
					return s.finish(&st, nil, err)
				}
			}
		}

		log.Info("Page processed",
			zap.Int("page", page), zap.Int("fetched", st.Fetched), zap.Int("written", st.Written))

		if !p.HasNext {
			log.Info("Upstream has no further pages", zap.Int("last_page", page))
			break
		}
	}

	if err := flush(); err != nil {
		return s.finish(&st, nil, err)
	}
	st.Dropped = st.Fetched - st.Written
	metrics.IngestRecordsTotal.WithLabelValues("dropped").Add(float64(st.Dropped))

	log.Info("Ingestion complete",
		zap.Int("fetched", st.Fetched), zap.Int("written", st.Written), zap.Int("dropped", st.Dropped))
	return st, nil
}

// finish flushes what was buffered before a failure so progress is not lost,
// then returns the failure classified as an ingestion error.
func (s *Service) finish(st *Stats, flush func() error, cause error) (Stats, error) {
	if flush != nil {
		if err := flush(); err != nil {
			cause = errors.Join(cause, err)
		}
	}
	st.Dropped = st.Fetched - st.Written
	var de *domain.Error
	if errors.As(cause, &de) {
		return *st, cause
	}
	return *st, domain.NewError(domain.KindIngestion, "ingestion aborted", cause,
		"fetched", st.Fetched, "written", st.Written)
}
