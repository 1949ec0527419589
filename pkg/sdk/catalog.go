package animerec

import (
	"context"
	"fmt"
	"time"

	indexuc "github.com/kailas-cloud/animerec/internal/usecase/index"
)

// IngestStats summarizes a catalog crawl.
type IngestStats struct {
	Pages   int
	Fetched int
	Written int
	Dropped int // records that failed normalization
}

// IndexStats summarizes a reindex.
type IndexStats struct {
	Documents int
	Chunks    int
	Removed   int // chunks deleted by a reset
}

// Ingest crawls catalog pages start..end inclusive and appends the normalized
// records to the catalog file.
func (c *Client) Ingest(ctx context.Context, start, end int) (st IngestStats, err error) {
	began := time.Now()
	defer func() { c.obs.observe("ingest", began, err) }()

	s, err := c.ingestSvc.Run(ctx, start, end)
	st = IngestStats{Pages: s.Pages, Fetched: s.Fetched, Written: s.Written, Dropped: s.Dropped}
	if err != nil {
		return st, fmt.Errorf("ingest: %w", err)
	}
	return st, nil
}

// Reindex chunks and embeds the whole catalog into the vector store. With reset,
// existing chunks are removed first.
func (c *Client) Reindex(ctx context.Context, reset bool) (st IndexStats, err error) {
	began := time.Now()
	defer func() { c.obs.observe("reindex", began, err) }()

	run := c.indexSvc.Run
	if reset {
		run = func(ctx context.Context) (indexuc.Stats, error) {
			return c.indexSvc.ResetAndRun(ctx, c.resetter)
		}
	}

	s, err := run(ctx)
	st = IndexStats{Documents: s.Documents, Chunks: s.Chunks, Removed: s.Reset}
	if err != nil {
		return st, fmt.Errorf("reindex: %w", err)
	}
	return st, nil
}
