package search

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
	"github.com/kailas-cloud/animerec/internal/metrics"
)

func shortlist() []result.Candidate {
	return []result.Candidate{
		{AnimeID: 1, Title: "Gurren Lagann", Score: 3},
		{AnimeID: 2, Title: "Evangelion", Score: 2},
		{AnimeID: 3, Title: "Code Geass", Score: 1},
	}
}

func TestRerank_Empty(t *testing.T) {
	oracle := returning("x")
	got := NewReranker(oracle, 0).Rerank(context.Background(), "q", nil)
	if len(got) != 0 {
		t.Errorf("got %v", got)
	}
	if oracle.calls != 0 {
		t.Error("oracle should not be called for empty input")
	}
}

func TestRerank_Disabled(t *testing.T) {
	in := shortlist()
	got := NewReranker(nil, 0).Rerank(context.Background(), "q", in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("disabled reranker changed order: %v", ids(got))
	}
	var nilReranker *Reranker
	if nilReranker.Enabled() {
		t.Error("nil reranker reports enabled")
	}
}

func TestRerank_Reorders(t *testing.T) {
	ctx, usage := domain.NewContextWithUsage(context.Background())
	oracle := returning("Code Geass", "Gurren Lagann")

	got := NewReranker(oracle, time.Second).Rerank(ctx, "mecha", shortlist())
	if !reflect.DeepEqual(ids(got), []int{3, 1}) {
		t.Errorf("ids = %v, want [3 1]", ids(got))
	}
	if !usage.Reranked {
		t.Error("usage not marked reranked")
	}
}

func TestRerank_DropsUnknownAndDuplicateTitles(t *testing.T) {
	oracle := returning("Evangelion", "Naruto", "Evangelion", " Gurren Lagann ")
	got := NewReranker(oracle, 0).Rerank(context.Background(), "q", shortlist())
	if !reflect.DeepEqual(ids(got), []int{2, 1}) {
		t.Errorf("ids = %v, want [2 1]", ids(got))
	}
}

func TestRerank_NoMatchFallback(t *testing.T) {
	before := testutil.ToFloat64(metrics.RerankFallbackTotal.WithLabelValues("no_match"))

	in := shortlist()
	got := NewReranker(returning("Naruto", "Bleach"), 0).Rerank(context.Background(), "q", in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("got %v, want input unchanged", ids(got))
	}

	after := testutil.ToFloat64(metrics.RerankFallbackTotal.WithLabelValues("no_match"))
	if after-before != 1 {
		t.Errorf("no_match fallback counter delta = %f", after-before)
	}
}

func TestRerank_ErrorFallback(t *testing.T) {
	before := testutil.ToFloat64(metrics.RerankFallbackTotal.WithLabelValues("error"))
	oracle := &mockOracle{rankFn: func(context.Context, string) ([]string, error) {
		return nil, errors.New("oracle down")
	}}

	in := shortlist()
	got := NewReranker(oracle, 0).Rerank(context.Background(), "q", in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("got %v, want input unchanged", ids(got))
	}
	if d := testutil.ToFloat64(metrics.RerankFallbackTotal.WithLabelValues("error")) - before; d != 1 {
		t.Errorf("error fallback counter delta = %f", d)
	}
}

func TestRerank_TimeoutFallback(t *testing.T) {
	before := testutil.ToFloat64(metrics.RerankFallbackTotal.WithLabelValues("timeout"))
	oracle := &mockOracle{rankFn: func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	in := shortlist()
	got := NewReranker(oracle, 10*time.Millisecond).Rerank(context.Background(), "q", in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("got %v, want input unchanged", ids(got))
	}
	if d := testutil.ToFloat64(metrics.RerankFallbackTotal.WithLabelValues("timeout")) - before; d != 1 {
		t.Errorf("timeout fallback counter delta = %f", d)
	}
}

func TestRerank_DuplicateTitlesLastWins(t *testing.T) {
	in := []result.Candidate{
		{AnimeID: 10, Title: "Hunter x Hunter"},
		{AnimeID: 11, Title: "Hunter x Hunter"},
	}
	got := NewReranker(returning("Hunter x Hunter"), 0).Rerank(context.Background(), "q", in)
	if !reflect.DeepEqual(ids(got), []int{11}) {
		t.Errorf("ids = %v, want [11]", ids(got))
	}
}

func TestBuildRankPrompt(t *testing.T) {
	got := BuildRankPrompt("giant robots", shortlist()[:2])
	want := "User wants anime recommendations for: giant robots\n\n" +
		"Rank these anime:\n1. Gurren Lagann\n2. Evangelion\n\n" +
		"Return the best ones in order."
	if got != want {
		t.Errorf("prompt = %q\nwant   %q", got, want)
	}
}
