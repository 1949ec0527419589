package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	data := "vector_store:\n  addrs: [\"localhost:6379\"]\ncatalog:\n  path: " +
		filepath.Join(dir, "anime.jsonl") + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := newApp()
	var out bytes.Buffer
	a.Writer = &out
	a.ErrWriter = &out
	err := a.Run(append([]string{"animerecctl"}, args...))
	return out.String(), err
}

func TestSearchFilters(t *testing.T) {
	var got filter.Filters
	a := &cli.App{
		Name: "animerecctl",
		Commands: []*cli.Command{{
			Name:  "search",
			Flags: searchFlags(),
			Action: func(c *cli.Context) error {
				got = searchFilters(c)
				return nil
			},
		}},
	}

	err := a.Run([]string{"animerecctl", "search", "--query", "mecha",
		"--min-year", "1995", "--min-score", "7.5",
		"--studio", "Sunrise", "--studio", "Gainax",
		"--include-genre", "Mecha", "--exclude-theme", "Romance"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got.MinYear == nil || *got.MinYear != 1995 {
		t.Errorf("min year: %v", got.MinYear)
	}
	if got.MaxYear != nil {
		t.Errorf("max year should be unset, got %d", *got.MaxYear)
	}
	if got.MinScore == nil || *got.MinScore != 7.5 {
		t.Errorf("min score: %v", got.MinScore)
	}
	if !reflect.DeepEqual(got.Studios, []string{"Sunrise", "Gainax"}) {
		t.Errorf("studios: %v", got.Studios)
	}
	if !reflect.DeepEqual(got.Tags.IncludeGenres, []string{"Mecha"}) ||
		!reflect.DeepEqual(got.Tags.ExcludeThemes, []string{"Romance"}) ||
		len(got.Tags.ExcludeGenres) != 0 || len(got.Tags.IncludeThemes) != 0 {
		t.Errorf("tags: %+v", got.Tags)
	}
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t), "search")
	if err == nil || !strings.Contains(err.Error(), "query") {
		t.Fatalf("expected missing query error, got %v", err)
	}
}

func TestSearchCommand_InvalidFilters(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t), "search", "--query", "x",
		"--min-year", "2010", "--max-year", "2000")
	if err == nil || !strings.Contains(err.Error(), "min_year") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIngestCommand_InvalidRange(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t), "ingest", "--start", "5", "--end", "2")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if !errors.Is(err, domain.KindIngestion) {
		t.Errorf("expected ingestion kind, got %v", err)
	}
}

func TestSetup_MissingConfig(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "index")
	if err == nil || !strings.Contains(err.Error(), "failed to read config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestSetup_BadLogLevel(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t), "--log-level", "loud", "ingest")
	if err == nil || !strings.Contains(err.Error(), "create logger") {
		t.Fatalf("expected logger error, got %v", err)
	}
}
