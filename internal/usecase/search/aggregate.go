package search

import (
	"sort"

	"github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
)

// Aggregation defaults.
const (
	DefaultLexicalWeight = 0.3
	DefaultShortlistSize = 15
)

// Weights tunes chunk-to-document aggregation.
type Weights struct {
	LexicalWeight float64
	ShortlistSize int
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{LexicalWeight: DefaultLexicalWeight, ShortlistSize: DefaultShortlistSize}
}

// Aggregate folds chunk hits into document candidates.
// Each hit passing tags scores 1/(1+distance) + LexicalWeight*lexical[i]; scores are summed
// per anime, titles come from the first hit seen, and the list is stably sorted by score
// descending then cut to ShortlistSize. lexical is aligned with hits; missing entries count as 0.
func Aggregate(hits []chunk.Hit, lexical []float64, tags filter.TagFilter, w Weights) []result.Candidate {
	if len(hits) == 0 {
		return []result.Candidate{}
	}

	index := make(map[int]int)
	var out []result.Candidate

	for i, h := range hits {
		if !tags.Matches(h.Metadata) {
			continue
		}

		var lex float64
		if i < len(lexical) {
			lex = lexical[i]
		}
		fused := semanticScore(h.Distance) + w.LexicalWeight*lex

		id := h.Metadata.AnimeID
		if pos, ok := index[id]; ok {
			out[pos].Score += fused
			continue
		}
		index[id] = len(out)
		out = append(out, result.Candidate{AnimeID: id, Title: h.Metadata.Title, Score: fused})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if out == nil {
		return []result.Candidate{}
	}
	return result.Truncate(out, w.ShortlistSize)
}

// semanticScore maps a cosine distance into (0, 1]. Negative distances are clamped to 0.
func semanticScore(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}
