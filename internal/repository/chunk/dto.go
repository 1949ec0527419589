package chunk

import (
	"strconv"

	"github.com/kailas-cloud/animerec/internal/db"
	domchunk "github.com/kailas-cloud/animerec/internal/domain/chunk"
)

// Hash field names. Filterable fields match the filter package's field names.
const (
	fieldText    = "text"
	fieldVector  = "vector"
	fieldAnimeID = "anime_id"
	fieldTitle   = "title"
	fieldGenres  = "genres"
	fieldThemes  = "themes"
	fieldStudio  = "studio"
	fieldYear    = "year"
	fieldScore   = "score"
	fieldType    = "type"
)

// returnFields is everything Query needs to rebuild a hit; the vector is never fetched back.
var returnFields = []string{
	fieldText, fieldAnimeID, fieldTitle, fieldGenres, fieldThemes,
	fieldStudio, fieldYear, fieldScore, fieldType,
}

// buildHashFields converts a chunk record into a flat map for HSET.
func buildHashFields(r *domchunk.Record) map[string]string {
	m := r.Metadata
	return map[string]string{
		fieldText:    r.Text,
		fieldVector:  db.VectorBytes(r.Vector),
		fieldAnimeID: strconv.Itoa(m.AnimeID),
		fieldTitle:   m.Title,
		fieldGenres:  domchunk.JoinTags(m.Genres),
		fieldThemes:  domchunk.JoinTags(m.Themes),
		fieldStudio:  m.Studio,
		fieldYear:    strconv.Itoa(m.Year),
		fieldScore:   strconv.FormatFloat(m.Score, 'f', -1, 64),
		fieldType:    string(m.Type),
	}
}

// parseHit rebuilds a hit from returned hash fields. Missing numerics fall back to sentinels.
func parseHit(fields map[string]string, distance float64) domchunk.Hit {
	meta := domchunk.Metadata{
		Title:  fields[fieldTitle],
		Genres: domchunk.SplitTags(fields[fieldGenres]),
		Themes: domchunk.SplitTags(fields[fieldThemes]),
		Studio: fields[fieldStudio],
		Year:   domchunk.NoYear,
		Score:  domchunk.NoScore,
		Type:   domchunk.Type(fields[fieldType]),
	}
	if id, err := strconv.Atoi(fields[fieldAnimeID]); err == nil {
		meta.AnimeID = id
	}
	if y, err := strconv.Atoi(fields[fieldYear]); err == nil {
		meta.Year = y
	}
	if s, err := strconv.ParseFloat(fields[fieldScore], 64); err == nil {
		meta.Score = s
	}
	return domchunk.Hit{Text: fields[fieldText], Distance: distance, Metadata: meta}
}
