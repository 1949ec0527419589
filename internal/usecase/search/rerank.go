package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
	"github.com/kailas-cloud/animerec/internal/logger"
	"github.com/kailas-cloud/animerec/internal/metrics"
)

// Fallback reasons reported in metrics and logs.
const (
	fallbackError   = "error"
	fallbackTimeout = "timeout"
	fallbackNoMatch = "no_match"
)

// Reranker asks a ranking oracle to reorder a shortlist and falls back to the input
// order whenever the oracle fails or returns nothing usable. It never returns an error.
type Reranker struct {
	oracle  RankingOracle
	timeout time.Duration
}

// NewReranker creates a Reranker. A nil oracle disables reranking.
// timeout <= 0 leaves the caller's deadline in charge.
func NewReranker(oracle RankingOracle, timeout time.Duration) *Reranker {
	return &Reranker{oracle: oracle, timeout: timeout}
}

// Enabled reports whether an oracle is configured.
func (r *Reranker) Enabled() bool { return r != nil && r.oracle != nil }

// Rerank returns the candidates in oracle order. Titles are matched exactly; unknown titles
// are dropped. If several candidates share a title the last one wins.
func (r *Reranker) Rerank(ctx context.Context, query string, cands []result.Candidate) []result.Candidate {
	if len(cands) == 0 || !r.Enabled() {
		return cands
	}

	log := logger.FromContext(ctx)

	rankCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		rankCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	titles, err := r.oracle.Rank(rankCtx, BuildRankPrompt(query, cands))
	if err != nil {
		reason := fallbackError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fallbackTimeout
		}
		metrics.RerankFallbackTotal.WithLabelValues(reason).Inc()
		log.Warn("Rerank failed, keeping aggregate order",
			zap.String("reason", reason),
			zap.Int("candidates", len(cands)),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrRankerUnavailable, err)),
		)
		return cands
	}

	byTitle := make(map[string]result.Candidate, len(cands))
	for _, c := range cands {
		byTitle[c.Title] = c
	}

	seen := make(map[int]struct{}, len(cands))
	ranked := make([]result.Candidate, 0, len(cands))
	for _, t := range titles {
		c, ok := byTitle[strings.TrimSpace(t)]
		if !ok {
			continue
		}
		if _, dup := seen[c.AnimeID]; dup {
			continue
		}
		seen[c.AnimeID] = struct{}{}
		ranked = append(ranked, c)
	}

	if len(ranked) == 0 {
		metrics.RerankFallbackTotal.WithLabelValues(fallbackNoMatch).Inc()
		log.Warn("Rerank matched no candidates, keeping aggregate order",
			zap.Int("returned_titles", len(titles)),
			zap.Int("candidates", len(cands)),
		)
		return cands
	}

	domain.UsageFromContext(ctx).MarkReranked()
	return ranked
}

// BuildRankPrompt renders the oracle prompt: the query followed by a numbered title list.
func BuildRankPrompt(query string, cands []result.Candidate) string {
	var b strings.Builder
	b.WriteString("User wants anime recommendations for: ")
	b.WriteString(query)
	b.WriteString("\n\nRank these anime:\n")
	for i, c := range cands {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Title)
	}
	b.WriteString("\nReturn the best ones in order.")
	return b.String()
}
