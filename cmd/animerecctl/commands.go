package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/app"
	"github.com/kailas-cloud/animerec/internal/config"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
	"github.com/kailas-cloud/animerec/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/animerec/internal/logger"
	"github.com/kailas-cloud/animerec/internal/metrics"
	"github.com/kailas-cloud/animerec/internal/telemetry"
	indexuc "github.com/kailas-cloud/animerec/internal/usecase/index"
)

const (
	metaConfig   = "config"
	metaLogger   = "logger"
	metaShutdown = "tracing_shutdown"
)

// setup loads configuration and the logger once for every command.
func setup(c *cli.Context) error {
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(c.String("env"))
	}
	if err != nil {
		return err //nolint:wrapcheck // already carries the file path
	}

	level := cfg.Logging.Level
	if l := c.String("log-level"); l != "" {
		level = l
	}
	env := c.String("env")
	if env == "" {
		env = "local"
	}
	logger, err := logpkg.NewLogger(env, logpkg.WithLevel(level), logpkg.WithService("animerecctl"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterAll()

	shutdown, err := telemetry.Setup(c.Context, cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLogger] = logger
	c.App.Metadata[metaShutdown] = shutdown
	return nil
}

func teardown(c *cli.Context) error {
	if shutdown, ok := c.App.Metadata[metaShutdown].(telemetry.ShutdownFunc); ok {
		_ = shutdown(context.Background())
	}
	if l, ok := c.App.Metadata[metaLogger].(*zap.Logger); ok {
		_ = l.Sync()
	}
	return nil
}

func fromMetadata(c *cli.Context) (config.Config, *zap.Logger) {
	cfg, _ := c.App.Metadata[metaConfig].(config.Config)
	logger, ok := c.App.Metadata[metaLogger].(*zap.Logger)
	if !ok {
		logger = zap.NewNop()
	}
	return cfg, logger
}

// commandContext is canceled on SIGINT/SIGTERM and carries a logger tagged with the command.
func commandContext(c *cli.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	ctx = logpkg.ContextWithLogger(ctx, logger.With(zap.String("command", c.Command.Name)))
	return ctx, stop
}

func ingestCommand(c *cli.Context) error {
	cfg, logger := fromMetadata(c)
	if c.IsSet("batch-size") {
		cfg.Ingestion.BatchSize = c.Int("batch-size")
	}
	start, end := cfg.Ingestion.StartPage, cfg.Ingestion.EndPage
	if c.IsSet("start") {
		start = c.Int("start")
	}
	if c.IsSet("end") {
		end = c.Int("end")
	}

	ctx, stop := commandContext(c, logger)
	defer stop()

	stats, err := app.NewIngestService(cfg, logger).Run(ctx, start, end)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "pages=%d fetched=%d written=%d dropped=%d catalog=%s\n",
		stats.Pages, stats.Fetched, stats.Written, stats.Dropped, cfg.Catalog.Path)
	return nil
}

func indexCommand(c *cli.Context) error {
	cfg, logger := fromMetadata(c)
	ctx, stop := commandContext(c, logger)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	defer a.Close()

	svc := a.IndexService()
	run := svc.Run
	if c.Bool("reset") {
		run = func(ctx context.Context) (indexuc.Stats, error) { return svc.ResetAndRun(ctx, a.Index()) }
	}
	stats, err := run(ctx)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "documents=%d chunks=%d removed=%d\n", stats.Documents, stats.Chunks, stats.Reset)
	return nil
}

func searchCommand(c *cli.Context) error {
	cfg, logger := fromMetadata(c)

	topK := cfg.Search.DefaultTopK
	if c.IsSet("top-k") {
		topK = min(c.Int("top-k"), cfg.Search.MaxTopK)
	}
	req, err := request.New(c.String("query"), topK, searchFilters(c))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	ctx, stop := commandContext(c, logger)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer a.Close()

	results, err := a.SearchService().Search(ctx, &req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(results) //nolint:wrapcheck // terminal output
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tANIME_ID\tSCORE\tTITLE")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%s\n", i+1, r.AnimeID, r.Score, r.Title)
	}
	return tw.Flush() //nolint:wrapcheck // terminal output
}

// searchFilters collects only the filter flags the user actually set.
func searchFilters(c *cli.Context) filter.Filters {
	var f filter.Filters
	if c.IsSet("min-year") {
		v := c.Int("min-year")
		f.MinYear = &v
	}
	if c.IsSet("max-year") {
		v := c.Int("max-year")
		f.MaxYear = &v
	}
	if c.IsSet("min-score") {
		v := c.Float64("min-score")
		f.MinScore = &v
	}
	f.Studios = c.StringSlice("studio")
	f.Tags = filter.TagFilter{
		IncludeGenres: c.StringSlice("include-genre"),
		ExcludeGenres: c.StringSlice("exclude-genre"),
		IncludeThemes: c.StringSlice("include-theme"),
		ExcludeThemes: c.StringSlice("exclude-theme"),
	}
	return f
}
