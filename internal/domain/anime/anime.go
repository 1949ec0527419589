// Package anime holds the canonical anime document and its normalization from raw
// catalog records.
package anime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/animerec/internal/domain"
)

// Document is the canonical anime record shared by ingestion, indexing and search.
// Persisted one per line in the catalog JSONL file.
type Document struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Synopsis string   `json:"synopsis"`
	Genres   []string `json:"genres"`
	Themes   []string `json:"themes"`
	Studio   *string  `json:"studio"`
	Score    *float64 `json:"score"`
	Year     *int     `json:"year"`
	Episodes *int     `json:"episodes"`
}

// Named is a catalog entity referenced by name (genre, theme, studio).
type Named struct {
	ID   int    `json:"mal_id"`
	Name string `json:"name"`
}

// Raw is an anime record as returned by the upstream catalog API.
type Raw struct {
	MalID    int      `json:"mal_id"`
	Title    string   `json:"title"`
	Synopsis *string  `json:"synopsis"`
	Genres   []Named  `json:"genres"`
	Themes   []Named  `json:"themes"`
	Studios  []Named  `json:"studios"`
	Score    *float64 `json:"score"`
	Year     *int     `json:"year"`
	Episodes *int     `json:"episodes"`
}

// Normalize converts a raw record into a Document.
// ok=false means the record carries nothing worth indexing (no synopsis, id or title).
// A non-nil error means the record is corrupt; callers skip it as well.
func Normalize(raw *Raw) (doc Document, ok bool, err error) {
	synopsis := ""
	if raw.Synopsis != nil {
		synopsis = strings.TrimSpace(*raw.Synopsis)
	}
	if synopsis == "" {
		return Document{}, false, nil
	}
	title := strings.TrimSpace(raw.Title)
	if raw.MalID == 0 || title == "" {
		return Document{}, false, nil
	}
	if raw.MalID < 0 {
		return Document{}, false, corrupt(raw, "negative mal_id")
	}
	if raw.Score != nil && (*raw.Score < 0 || *raw.Score > 10) {
		return Document{}, false, corrupt(raw, fmt.Sprintf("score %g out of range", *raw.Score))
	}

	genres, err := names(raw.Genres)
	if err != nil {
		return Document{}, false, corrupt(raw, "genres: "+err.Error())
	}
	themes, err := names(raw.Themes)
	if err != nil {
		return Document{}, false, corrupt(raw, "themes: "+err.Error())
	}

	var studio *string
	if len(raw.Studios) > 0 && raw.Studios[0].Name != "" {
		s := raw.Studios[0].Name
		studio = &s
	}

	return Document{
		ID:       raw.MalID,
		Title:    title,
		Synopsis: synopsis,
		Genres:   genres,
		Themes:   themes,
		Studio:   studio,
		Score:    raw.Score,
		Year:     raw.Year,
		Episodes: raw.Episodes,
	}, true, nil
}

func names(entries []Named) ([]string, error) {
	out := make([]string, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("entry %d has no name", i)
		}
		if strings.Contains(name, "|") {
			return nil, fmt.Errorf("entry %d name %q contains '|'", i, name)
		}
		out = append(out, name)
	}
	return out, nil
}

func corrupt(raw *Raw, reason string) error {
	return domain.NewError(domain.KindNormalization, "malformed anime record",
		errors.New(reason), "mal_id", raw.MalID)
}
