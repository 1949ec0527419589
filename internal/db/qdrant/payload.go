package qdrant

import (
	pb "github.com/qdrant/go-client/qdrant"

	domchunk "github.com/kailas-cloud/animerec/internal/domain/chunk"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
)

func buildPayload(r *domchunk.Record) map[string]*pb.Value {
	m := r.Metadata
	return map[string]*pb.Value{
		keyChunkID: pb.NewValueString(r.ID),
		keyText:    pb.NewValueString(r.Text),
		keyAnimeID: pb.NewValueInt(int64(m.AnimeID)),
		keyTitle:   pb.NewValueString(m.Title),
		keyGenres:  stringList(m.Genres),
		keyThemes:  stringList(m.Themes),
		keyStudio:  pb.NewValueString(m.Studio),
		keyYear:    pb.NewValueInt(int64(m.Year)),
		keyScore:   pb.NewValueDouble(m.Score),
		keyType:    pb.NewValueString(string(m.Type)),
	}
}

func stringList(ss []string) *pb.Value {
	vals := make([]*pb.Value, len(ss))
	for i, s := range ss {
		vals[i] = pb.NewValueString(s)
	}
	return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
}

func parseHit(payload map[string]*pb.Value, distance float64) domchunk.Hit {
	meta := domchunk.Metadata{
		AnimeID: int(payload[keyAnimeID].GetIntegerValue()),
		Title:   payload[keyTitle].GetStringValue(),
		Genres:  listStrings(payload[keyGenres]),
		Themes:  listStrings(payload[keyThemes]),
		Studio:  payload[keyStudio].GetStringValue(),
		Year:    domchunk.NoYear,
		Score:   domchunk.NoScore,
		Type:    domchunk.Type(payload[keyType].GetStringValue()),
	}
	if v, ok := payload[keyYear]; ok {
		meta.Year = int(v.GetIntegerValue())
	}
	if v, ok := payload[keyScore]; ok {
		switch k := v.GetKind().(type) {
		case *pb.Value_DoubleValue:
			meta.Score = k.DoubleValue
		case *pb.Value_IntegerValue:
			meta.Score = float64(k.IntegerValue)
		}
	}
	return domchunk.Hit{Text: payload[keyText].GetStringValue(), Distance: distance, Metadata: meta}
}

func listStrings(v *pb.Value) []string {
	vals := v.GetListValue().GetValues()
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, 0, len(vals))
	for _, x := range vals {
		out = append(out, x.GetStringValue())
	}
	return out
}

// buildFilter translates a predicate into a Qdrant filter. An empty predicate yields nil.
func buildFilter(expr filter.Expression) *pb.Filter {
	if expr.IsEmpty() {
		return nil
	}
	must := make([]*pb.Condition, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		switch {
		case c.IsIn():
			must = append(must, pb.NewMatchKeywords(c.Key(), c.AnyOf()...))
		case c.IsRange():
			r := c.Range()
			must = append(must, pb.NewRange(c.Key(), &pb.Range{Gte: r.GTE(), Lte: r.LTE()}))
		}
	}
	return &pb.Filter{Must: must}
}
