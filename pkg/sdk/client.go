package animerec

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/app"
	"github.com/kailas-cloud/animerec/internal/config"
	"github.com/kailas-cloud/animerec/internal/domain/search/request"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
	indexuc "github.com/kailas-cloud/animerec/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/animerec/internal/usecase/ingest"
)

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) ([]result.Candidate, error)
}

type indexUseCase interface {
	Run(ctx context.Context) (indexuc.Stats, error)
	ResetAndRun(ctx context.Context, r indexuc.Resetter) (indexuc.Stats, error)
}

type ingestUseCase interface {
	Run(ctx context.Context, start, end int) (ingestuc.Stats, error)
}

// Client is the animerec SDK entry point. It is safe for concurrent use.
type Client struct {
	searchSvc searchUseCase
	healthSvc healthUseCase
	indexSvc  indexUseCase
	ingestSvc ingestUseCase
	resetter  indexuc.Resetter
	obs       *observer
	closeFn   func()
}

// New connects to the vector store, makes sure the index exists and builds the
// retrieval pipeline. The provided context bounds the readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.core.VectorStore.Driver == "" {
		return nil, errors.New("animerec: vector store required (use WithValkey, WithRedis or WithQdrant)")
	}
	cfg.core.ApplyDefaults()
	if err := cfg.core.Validate(); err != nil {
		return nil, fmt.Errorf("animerec: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg.core, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("animerec: %w", err)
	}
	if err := a.Index().EnsureIndex(ctx, cfg.core.Embedding.Dimensions); err != nil {
		a.Close()
		return nil, fmt.Errorf("animerec: ensure index: %w", err)
	}

	return wireClient(a, cfg.core, obs), nil
}

func wireClient(a *app.App, cfg config.Config, obs *observer) *Client {
	return &Client{
		searchSvc: a.SearchService(),
		healthSvc: a.HealthService(),
		indexSvc:  a.IndexService(),
		ingestSvc: app.NewIngestService(cfg, zap.NewNop()),
		resetter:  a.Index(),
		obs:       obs,
		closeFn:   a.Close,
	}
}

// Close releases all connections.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}
