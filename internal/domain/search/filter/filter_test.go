package filter

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/animerec/internal/domain/chunk"
)

func intPtr(i int) *int { return &i }

// --- Range tests ---

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name     string
		gte, lte *float64
	}{
		{"gte only", floatPtr(0), nil},
		{"lte only", nil, floatPtr(100)},
		{"both", floatPtr(0), floatPtr(10)},
		{"point", floatPtr(5), floatPtr(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeFilter(tt.gte, tt.lte)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r.GTE() == nil) != (tt.gte == nil) {
				t.Error("GTE() mismatch")
			}
			if (r.LTE() == nil) != (tt.lte == nil) {
				t.Error("LTE() mismatch")
			}
		})
	}
}

func TestNewRangeFilter_NoBoundary(t *testing.T) {
	_, err := NewRangeFilter(nil, nil)
	if err == nil || !strings.Contains(err.Error(), "at least one") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRangeFilter_Inverted(t *testing.T) {
	_, err := NewRangeFilter(floatPtr(10), floatPtr(1))
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v", err)
	}
}

// --- Condition tests ---

func TestNewIn(t *testing.T) {
	c, err := NewIn(FieldStudio, "Madhouse", "Bones")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsIn() || c.IsRange() {
		t.Error("expected set-membership condition")
	}
	if len(c.AnyOf()) != 2 {
		t.Errorf("AnyOf = %v", c.AnyOf())
	}
}

func TestNewIn_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		values []string
	}{
		{"empty key", "", []string{"a"}},
		{"no values", FieldStudio, nil},
		{"empty value", FieldStudio, []string{"a", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewIn(tt.key, tt.values...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditions+1)
	if _, err := NewExpression(conds...); err == nil {
		t.Fatal("expected error")
	}
}

// --- BuildPredicate tests ---

func TestBuildPredicate_Empty(t *testing.T) {
	if e := BuildPredicate(Filters{}); !e.IsEmpty() {
		t.Errorf("expected empty expression, got %d conditions", len(e.Must()))
	}
}

func TestBuildPredicate_TagsIgnored(t *testing.T) {
	e := BuildPredicate(Filters{Tags: TagFilter{IncludeGenres: []string{"Action"}}})
	if !e.IsEmpty() {
		t.Error("tag constraints must not reach the store predicate")
	}
}

func TestBuildPredicate_AllConstraints(t *testing.T) {
	e := BuildPredicate(Filters{
		MinYear:  intPtr(2000),
		MaxYear:  intPtr(2010),
		MinScore: floatPtr(8),
		Studios:  []string{"Madhouse", "Sunrise"},
	})

	must := e.Must()
	if len(must) != 4 {
		t.Fatalf("conditions = %d, want 4", len(must))
	}

	if must[0].Key() != FieldYear || *must[0].Range().GTE() != 2000 || must[0].Range().LTE() != nil {
		t.Errorf("min year clause = %+v", must[0].Range())
	}
	if must[1].Key() != FieldYear || *must[1].Range().LTE() != 2010 || must[1].Range().GTE() != nil {
		t.Errorf("max year clause = %+v", must[1].Range())
	}
	if must[2].Key() != FieldScore || *must[2].Range().GTE() != 8 {
		t.Errorf("score clause = %+v", must[2].Range())
	}
	if must[3].Key() != FieldStudio || strings.Join(must[3].AnyOf(), ",") != "Madhouse,Sunrise" {
		t.Errorf("studio clause = %v", must[3].AnyOf())
	}
}

func TestBuildPredicate_SingleConstraint(t *testing.T) {
	e := BuildPredicate(Filters{MinScore: floatPtr(7.5)})
	if len(e.Must()) != 1 {
		t.Fatalf("conditions = %d, want 1", len(e.Must()))
	}
	c := e.Must()[0]
	if !c.IsRange() || c.Key() != FieldScore {
		t.Errorf("unexpected condition %q", c.Key())
	}
}

func TestBuildPredicate_BlankStudiosDropped(t *testing.T) {
	if e := BuildPredicate(Filters{Studios: []string{""}}); !e.IsEmpty() {
		t.Error("blank studios should produce no clause")
	}
}

// --- TagFilter tests ---

func TestTagFilter_Matches(t *testing.T) {
	meta := chunk.Metadata{
		Genres: []string{"Action", "Comedy"},
		Themes: []string{"School"},
	}

	tests := []struct {
		name   string
		filter TagFilter
		want   bool
	}{
		{"empty", TagFilter{}, true},
		{"include subset", TagFilter{IncludeGenres: []string{"Action"}}, true},
		{"include all", TagFilter{IncludeGenres: []string{"Action", "Comedy"}}, true},
		{"include missing", TagFilter{IncludeGenres: []string{"Action", "Drama"}}, false},
		{"exclude hit", TagFilter{ExcludeGenres: []string{"Comedy"}}, false},
		{"exclude miss", TagFilter{ExcludeGenres: []string{"Horror"}}, true},
		{"theme include", TagFilter{IncludeThemes: []string{"School"}}, true},
		{"theme exclude", TagFilter{ExcludeThemes: []string{"School"}}, false},
		{"genre and theme independent", TagFilter{
			IncludeGenres: []string{"Action"},
			ExcludeThemes: []string{"Mecha"},
		}, true},
		{"genre tag does not satisfy theme include", TagFilter{IncludeThemes: []string{"Action"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(meta); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTagFilter_MatchesNoTags(t *testing.T) {
	meta := chunk.Metadata{}
	if !(TagFilter{ExcludeGenres: []string{"Action"}}).Matches(meta) {
		t.Error("untagged chunk should pass an exclude-only filter")
	}
	if (TagFilter{IncludeGenres: []string{"Action"}}).Matches(meta) {
		t.Error("untagged chunk should fail an include filter")
	}
}

func TestTagFilter_IsEmpty(t *testing.T) {
	if !(TagFilter{}).IsEmpty() {
		t.Error("zero value should be empty")
	}
	if (TagFilter{ExcludeThemes: []string{"x"}}).IsEmpty() {
		t.Error("exclude themes set, should not be empty")
	}
}
