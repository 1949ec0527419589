package animerec

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
	"github.com/kailas-cloud/animerec/internal/domain/search/request"
)

// Recommendation is one ranked title.
type Recommendation struct {
	AnimeID int
	Title   string
	Score   float64
}

// Usage reports what a single Recommend call consumed.
type Usage struct {
	EmbeddingTokens int
	Reranked        bool
}

// Result is the ranked list plus its usage.
type Result struct {
	Items []Recommendation
	Usage Usage
}

// SearchOption narrows or sizes a Recommend call.
type SearchOption func(*searchParams)

type searchParams struct {
	topK    int
	filters filter.Filters
}

// TopK sets the number of results. Values above 100 are clamped; 0 means 10.
func TopK(n int) SearchOption {
	return func(p *searchParams) { p.topK = n }
}

// MinYear keeps titles that started airing in or after year.
func MinYear(year int) SearchOption {
	return func(p *searchParams) { p.filters.MinYear = &year }
}

// MaxYear keeps titles that started airing in or before year.
func MaxYear(year int) SearchOption {
	return func(p *searchParams) { p.filters.MaxYear = &year }
}

// MinScore keeps titles with a community score of at least s (0..10).
func MinScore(s float64) SearchOption {
	return func(p *searchParams) { p.filters.MinScore = &s }
}

// Studios keeps titles made by any of the named studios.
func Studios(names ...string) SearchOption {
	return func(p *searchParams) { p.filters.Studios = append(p.filters.Studios, names...) }
}

// IncludeGenres keeps titles having every one of the genres.
func IncludeGenres(genres ...string) SearchOption {
	return func(p *searchParams) { p.filters.Tags.IncludeGenres = append(p.filters.Tags.IncludeGenres, genres...) }
}

// ExcludeGenres drops titles having any of the genres.
func ExcludeGenres(genres ...string) SearchOption {
	return func(p *searchParams) { p.filters.Tags.ExcludeGenres = append(p.filters.Tags.ExcludeGenres, genres...) }
}

// IncludeThemes keeps titles having every one of the themes.
func IncludeThemes(themes ...string) SearchOption {
	return func(p *searchParams) { p.filters.Tags.IncludeThemes = append(p.filters.Tags.IncludeThemes, themes...) }
}

// ExcludeThemes drops titles having any of the themes.
func ExcludeThemes(themes ...string) SearchOption {
	return func(p *searchParams) { p.filters.Tags.ExcludeThemes = append(p.filters.Tags.ExcludeThemes, themes...) }
}

// Recommend returns titles matching a free-text description, best first.
// Invalid parameters fail with ErrInvalidRequest before any network call.
func (c *Client) Recommend(ctx context.Context, query string, opts ...SearchOption) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", start, err) }()

	var p searchParams
	for _, o := range opts {
		o(&p)
	}

	req, err := request.New(query, p.topK, p.filters)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	cands, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return Result{}, fmt.Errorf("recommend: %w", err)
	}

	res.Items = make([]Recommendation, len(cands))
	for i, cand := range cands {
		res.Items[i] = Recommendation{AnimeID: cand.AnimeID, Title: cand.Title, Score: cand.Score}
	}
	res.Usage = Usage{EmbeddingTokens: usage.EmbeddingTokens, Reranked: usage.Reranked}
	c.obs.observeResults(len(res.Items))
	return res, nil
}
