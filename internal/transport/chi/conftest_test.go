package chi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain/search/request"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/animerec/internal/usecase/health"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, req *request.Request) ([]result.Candidate, error)
	calls    int
	lastReq  *request.Request
}

func (m *mockSearcher) Search(ctx context.Context, req *request.Request) ([]result.Candidate, error) {
	m.calls++
	m.lastReq = req
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return nil, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report {
	return m.report
}

func newTestRouter(s Searcher, h HealthChecker, limits Limits, apiKeys ...string) http.Handler {
	if h == nil {
		h = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewRouter(NewServer(s, h, limits, zap.NewNop()), apiKeys, zap.NewNop())
}
