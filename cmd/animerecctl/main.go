package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/animerec/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "animerecctl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "animerecctl",
		Usage:   "Ingest, index and query the anime recommendation catalog",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment whose config/<env>.yaml is loaded (local, dev, prod)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Explicit config file; overrides --env lookup",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Fetch anime listing pages and append normalized records to the catalog",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "start", Usage: "First page (inclusive); defaults to ingestion.start_page"},
					&cli.IntFlag{Name: "end", Usage: "Last page (inclusive); defaults to ingestion.end_page"},
					&cli.IntFlag{Name: "batch-size", Usage: "Records per catalog flush; defaults to ingestion.batch_size"},
				},
			},
			{
				Name:   "index",
				Usage:  "Chunk, embed and upsert the catalog into the vector store",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reset", Usage: "Remove every indexed chunk before indexing"},
				},
			},
			{
				Name:   "search",
				Usage:  "Run a recommendation query against the index",
				Action: searchCommand,
				Flags:  searchFlags(),
			},
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Free-text description of what to watch", Required: true},
		&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Number of recommendations"},
		&cli.IntFlag{Name: "min-year", Usage: "Earliest release year"},
		&cli.IntFlag{Name: "max-year", Usage: "Latest release year"},
		&cli.Float64Flag{Name: "min-score", Usage: "Minimum community score (0-10)"},
		&cli.StringSliceFlag{Name: "studio", Usage: "Allowed studio (repeatable)"},
		&cli.StringSliceFlag{Name: "include-genre", Usage: "Required genre (repeatable)"},
		&cli.StringSliceFlag{Name: "exclude-genre", Usage: "Rejected genre (repeatable)"},
		&cli.StringSliceFlag{Name: "include-theme", Usage: "Required theme (repeatable)"},
		&cli.StringSliceFlag{Name: "exclude-theme", Usage: "Rejected theme (repeatable)"},
		&cli.BoolFlag{Name: "json", Usage: "Print results as JSON"},
	}
}
