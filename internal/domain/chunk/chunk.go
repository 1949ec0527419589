// Package chunk defines the unit indexed by the vector store: a slice of an anime
// document's text plus the metadata every search filter runs against.
package chunk

import (
	"strconv"
	"strings"
)

// Type distinguishes synopsis slices from the structured taste profile.
type Type string

// Chunk types.
const (
	Narrative Type = "narrative"
	Taste     Type = "taste"
)

// IsValid reports whether t is a known chunk type.
func (t Type) IsValid() bool { return t == Narrative || t == Taste }

// Sentinels stored for absent optional fields so store-side predicates never see nulls.
const (
	NoYear  = -1
	NoScore = -1.0
)

// tagSeparator joins multi-value fields in the store wire format only.
const tagSeparator = "|"

// Metadata travels with every chunk. AnimeID is shared by all chunks of one document.
type Metadata struct {
	AnimeID int
	Title   string
	Genres  []string
	Themes  []string
	Studio  string
	Year    int
	Score   float64
	Type    Type
}

// Hit is one nearest-neighbour result. Distance is cosine distance (0 = identical).
type Hit struct {
	Text     string
	Distance float64
	Metadata Metadata
}

// Record is a chunk ready for upsert.
type Record struct {
	ID       string
	Text     string
	Metadata Metadata
	Vector   []float32
}

// RecordID returns the stable id of the i-th chunk of a document.
func RecordID(animeID, i int) string {
	return strconv.Itoa(animeID) + "_" + strconv.Itoa(i)
}

// JoinTags encodes a tag list for storage.
func JoinTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

// SplitTags decodes a stored tag list. The empty string decodes to no tags.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, tagSeparator)
}
