package search

import (
	"math"
	"strings"
)

// ScoreLexical scores each text by term overlap with query: every distinct query term
// that occurs tf > 0 times contributes 1 + ln(tf). Output is aligned with texts.
func ScoreLexical(query string, texts []string) []float64 {
	terms := uniqueTerms(query)
	scores := make([]float64, len(texts))
	if len(terms) == 0 {
		return scores
	}

	for i, text := range texts {
		counts := termCounts(text)
		var s float64
		for _, term := range terms {
			if tf := counts[term]; tf > 0 {
				s += 1 + math.Log(float64(tf))
			}
		}
		scores[i] = s
	}
	return scores
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func uniqueTerms(s string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range tokenize(s) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

func termCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenize(s) {
		counts[tok]++
	}
	return counts
}
