package animerec

import (
	"context"

	"github.com/kailas-cloud/animerec/internal/domain/search/request"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/animerec/internal/usecase/health"
	indexuc "github.com/kailas-cloud/animerec/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/animerec/internal/usecase/ingest"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) ([]result.Candidate, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) ([]result.Candidate, error) {
	return m.searchFn(ctx, req)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- indexUseCase mock ---

type mockIndexUC struct {
	runFn   func(ctx context.Context) (indexuc.Stats, error)
	resetFn func(ctx context.Context, r indexuc.Resetter) (indexuc.Stats, error)
}

func (m *mockIndexUC) Run(ctx context.Context) (indexuc.Stats, error) {
	return m.runFn(ctx)
}

func (m *mockIndexUC) ResetAndRun(ctx context.Context, r indexuc.Resetter) (indexuc.Stats, error) {
	return m.resetFn(ctx, r)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	runFn func(ctx context.Context, start, end int) (ingestuc.Stats, error)
}

func (m *mockIngestUC) Run(ctx context.Context, start, end int) (ingestuc.Stats, error) {
	return m.runFn(ctx, start, end)
}

// --- Resetter stub ---

type stubResetter struct{ removed int }

func (s stubResetter) Reset(_ context.Context) (int, error) { return s.removed, nil }
