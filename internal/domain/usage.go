package domain

import "context"

type requestUsageKey struct{}

// RequestUsage collects per-request provider usage.
// The HTTP handler installs a pointer before calling the service and reads it back for
// response headers; the service only writes.
type RequestUsage struct {
	EmbeddingTokens int
	Embedded        bool // true even on a cache hit with 0 tokens
	Reranked        bool // true when the oracle ordering was applied
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *RequestUsage) {
	u := &RequestUsage{}
	return context.WithValue(ctx, requestUsageKey{}, u), u
}

// UsageFromContext returns the collector or nil. All methods are nil-safe.
func UsageFromContext(ctx context.Context) *RequestUsage {
	u, _ := ctx.Value(requestUsageKey{}).(*RequestUsage)
	return u
}

// AddEmbeddingTokens records embedding tokens.
func (u *RequestUsage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.Embedded = true
	}
}

// MarkReranked records that the oracle ordering was used.
func (u *RequestUsage) MarkReranked() {
	if u != nil {
		u.Reranked = true
	}
}
