package result

// Candidate is one document-level recommendation.
type Candidate struct {
	AnimeID int     `json:"anime_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
}

// Truncate returns at most n candidates. n <= 0 returns the input unchanged.
func Truncate(cands []Candidate, n int) []Candidate {
	if n > 0 && len(cands) > n {
		return cands[:n]
	}
	return cands
}
