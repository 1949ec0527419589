package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 100
	MaxScore       = 10.0
)

// Request is a validated recommendation query. Immutable after New.
type Request struct {
	query   string
	topK    int
	filters filter.Filters
}

// New validates and normalizes search parameters. topK <= 0 means DefaultTopK;
// larger values are clamped to MaxTopK.
func New(query string, topK int, filters filter.Filters) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if filters.MinYear != nil && filters.MaxYear != nil && *filters.MinYear > *filters.MaxYear {
		return Request{}, fmt.Errorf("min_year %d is after max_year %d", *filters.MinYear, *filters.MaxYear)
	}
	if s := filters.MinScore; s != nil && (*s < 0 || *s > MaxScore) {
		return Request{}, fmt.Errorf("min_score must be between 0 and %g", MaxScore)
	}

	return Request{query: query, topK: topK, filters: filters}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of candidates to return.
func (r *Request) TopK() int { return r.topK }

// Filters returns the optional constraints.
func (r *Request) Filters() filter.Filters { return r.filters }
