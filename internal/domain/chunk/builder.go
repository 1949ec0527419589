package chunk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/kailas-cloud/animerec/internal/domain/anime"
)

// Default splitter settings for synopsis text.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

var narrativeSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Builder slices anime documents into narrative chunks plus one taste chunk.
type Builder struct {
	splitter textsplitter.RecursiveCharacter
}

// NewBuilder creates a Builder. Non-positive sizes fall back to the defaults.
func NewBuilder(size, overlap int) *Builder {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Builder{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(narrativeSeparators),
		),
	}
}

// Build returns the document's chunks in order: narrative slices first, taste profile last.
func (b *Builder) Build(doc *anime.Document) ([]Record, error) {
	meta := MetadataFor(doc)
	var records []Record

	if doc.Synopsis != "" {
		parts, err := b.splitter.SplitText(fmt.Sprintf("Title: %s\nSynopsis: %s", doc.Title, doc.Synopsis))
		if err != nil {
			return nil, fmt.Errorf("split synopsis of %d: %w", doc.ID, err)
		}
		for _, p := range parts {
			m := meta
			m.Type = Narrative
			records = append(records, Record{ID: RecordID(doc.ID, len(records)), Text: p, Metadata: m})
		}
	}

	if taste := tasteProfile(doc); taste != "" {
		m := meta
		m.Type = Taste
		records = append(records, Record{ID: RecordID(doc.ID, len(records)), Text: taste, Metadata: m})
	}

	return records, nil
}

// MetadataFor materializes optional document fields as store sentinels.
func MetadataFor(doc *anime.Document) Metadata {
	m := Metadata{
		AnimeID: doc.ID,
		Title:   doc.Title,
		Genres:  doc.Genres,
		Themes:  doc.Themes,
		Year:    NoYear,
		Score:   NoScore,
	}
	if doc.Studio != nil {
		m.Studio = *doc.Studio
	}
	if doc.Year != nil {
		m.Year = *doc.Year
	}
	if doc.Score != nil {
		m.Score = *doc.Score
	}
	return m
}

func tasteProfile(doc *anime.Document) string {
	var parts []string
	if len(doc.Genres) > 0 {
		parts = append(parts, "Genres: "+strings.Join(doc.Genres, ", "))
	}
	if len(doc.Themes) > 0 {
		parts = append(parts, "Themes: "+strings.Join(doc.Themes, ", "))
	}
	if doc.Studio != nil && *doc.Studio != "" {
		parts = append(parts, "Studio: "+*doc.Studio)
	}
	if doc.Year != nil && *doc.Year != 0 {
		parts = append(parts, "Year: "+strconv.Itoa(*doc.Year))
	}
	if doc.Score != nil && *doc.Score != 0 {
		parts = append(parts, "Score: "+strconv.FormatFloat(*doc.Score, 'g', -1, 64))
	}
	return strings.Join(parts, " | ")
}
