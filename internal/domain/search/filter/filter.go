// Package filter holds the two filter halves of a search: metadata predicates pushed down
// to the vector store, and tag constraints evaluated locally on each hit.
package filter

import (
	"github.com/kailas-cloud/animerec/internal/domain/chunk"
)

// Filters is the user-facing set of optional search constraints.
type Filters struct {
	MinYear  *int
	MaxYear  *int
	MinScore *float64
	Studios  []string
	Tags     TagFilter
}

// BuildPredicate translates the metadata part of f into a store expression:
// one clause per present constraint, AND-combined. Tags are not included.
func BuildPredicate(f Filters) Expression {
	var must []Condition

	if f.MinYear != nil {
		must = append(must, rangeCond(FieldYear, floatPtr(float64(*f.MinYear)), nil))
	}
	if f.MaxYear != nil {
		must = append(must, rangeCond(FieldYear, nil, floatPtr(float64(*f.MaxYear))))
	}
	if f.MinScore != nil {
		must = append(must, rangeCond(FieldScore, floatPtr(*f.MinScore), nil))
	}
	if len(f.Studios) > 0 {
		studios := make([]string, 0, len(f.Studios))
		for _, s := range f.Studios {
			if s != "" {
				studios = append(studios, s)
			}
		}
		if len(studios) > 0 {
			must = append(must, Condition{key: FieldStudio, anyOf: studios})
		}
	}

	return Expression{must: must}
}

func rangeCond(key string, gte, lte *float64) Condition {
	return Condition{key: key, rangeExpr: &Range{gte: gte, lte: lte}}
}

func floatPtr(f float64) *float64 { return &f }

// TagFilter constrains genres and themes. Includes require every listed tag;
// excludes reject any overlap. An empty list imposes nothing.
type TagFilter struct {
	IncludeGenres []string
	ExcludeGenres []string
	IncludeThemes []string
	ExcludeThemes []string
}

// IsEmpty reports whether the filter constrains nothing.
func (t TagFilter) IsEmpty() bool {
	return len(t.IncludeGenres) == 0 && len(t.ExcludeGenres) == 0 &&
		len(t.IncludeThemes) == 0 && len(t.ExcludeThemes) == 0
}

// Matches reports whether a chunk's tags satisfy the filter.
func (t TagFilter) Matches(meta chunk.Metadata) bool {
	if t.IsEmpty() {
		return true
	}
	genres := toSet(meta.Genres)
	themes := toSet(meta.Themes)
	return containsAll(genres, t.IncludeGenres) && containsNone(genres, t.ExcludeGenres) &&
		containsAll(themes, t.IncludeThemes) && containsNone(themes, t.ExcludeThemes)
}

func toSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

func containsAll(set map[string]struct{}, want []string) bool {
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

func containsNone(set map[string]struct{}, reject []string) bool {
	for _, r := range reject {
		if _, ok := set[r]; ok {
			return false
		}
	}
	return true
}
