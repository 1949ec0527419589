package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/search/filter"
	"github.com/kailas-cloud/animerec/internal/domain/search/request"
	"github.com/kailas-cloud/animerec/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/animerec/internal/usecase/health"
)

// maxRequestBody caps POST /v1/search bodies.
const maxRequestBody = 1 << 20

// Searcher runs the recommendation pipeline.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) ([]result.Candidate, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Limits bounds top_k for API callers. Zero values fall back to the request package defaults.
type Limits struct {
	DefaultTopK int
	MaxTopK     int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the recommendation API.
type Server struct {
	search        Searcher
	health        HealthChecker
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health HealthChecker, limits Limits, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		limits: limits,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

type searchRequestBody struct {
	Query   string       `json:"query"`
	TopK    int          `json:"top_k"`
	Filters *filtersBody `json:"filters,omitempty"`
}

type filtersBody struct {
	MinYear       *int     `json:"min_year,omitempty"`
	MaxYear       *int     `json:"max_year,omitempty"`
	MinScore      *float64 `json:"min_score,omitempty"`
	Studios       []string `json:"studios,omitempty"`
	IncludeGenres []string `json:"include_genres,omitempty"`
	ExcludeGenres []string `json:"exclude_genres,omitempty"`
	IncludeThemes []string `json:"include_themes,omitempty"`
	ExcludeThemes []string `json:"exclude_themes,omitempty"`
}

func (f *filtersBody) toDomain() filter.Filters {
	if f == nil {
		return filter.Filters{}
	}
	return filter.Filters{
		MinYear:  f.MinYear,
		MaxYear:  f.MaxYear,
		MinScore: f.MinScore,
		Studios:  f.Studios,
		Tags: filter.TagFilter{
			IncludeGenres: f.IncludeGenres,
			ExcludeGenres: f.ExcludeGenres,
			IncludeThemes: f.IncludeThemes,
			ExcludeThemes: f.ExcludeThemes,
		},
	}
}

// recommendationParams mirrors filtersBody for query binding, where optional
// parameters bind through an extra pointer.
type recommendationParams struct {
	MinYear       *int
	MaxYear       *int
	MinScore      *float64
	Studios       *[]string
	IncludeGenres *[]string
	ExcludeGenres *[]string
	IncludeThemes *[]string
	ExcludeThemes *[]string
}

func (p recommendationParams) toDomain() filter.Filters {
	f := filtersBody{
		MinYear:       p.MinYear,
		MaxYear:       p.MaxYear,
		MinScore:      p.MinScore,
		Studios:       deref(p.Studios),
		IncludeGenres: deref(p.IncludeGenres),
		ExcludeGenres: deref(p.ExcludeGenres),
		IncludeThemes: deref(p.IncludeThemes),
		ExcludeThemes: deref(p.ExcludeThemes),
	}
	return f.toDomain()
}

func deref(s *[]string) []string {
	if s == nil {
		return nil
	}
	return *s
}

type searchResponse struct {
	Items []result.Candidate `json:"items"`
	TopK  int                `json:"top_k"`
	Total int                `json:"total"`
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	s.runSearch(w, r, body.Query, body.TopK, body.Filters.toDomain())
}

// Recommendations handles GET /v1/recommendations?q=&top_k=.
// Filters use repeated form parameters: studio, include_genre, exclude_genre,
// include_theme, exclude_theme.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var (
		q    string
		p    recommendationParams
		topK *int
	)
	bindings := []struct {
		name     string
		required bool
		dest     any
	}{
		{"q", true, &q},
		{"top_k", false, &topK},
		{"min_year", false, &p.MinYear},
		{"max_year", false, &p.MaxYear},
		{"min_score", false, &p.MinScore},
		{"studio", false, &p.Studios},
		{"include_genre", false, &p.IncludeGenres},
		{"exclude_genre", false, &p.ExcludeGenres},
		{"include_theme", false, &p.IncludeThemes},
		{"exclude_theme", false, &p.ExcludeThemes},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, params, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid parameter "+b.name+": "+err.Error())
			return
		}
	}

	k := 0
	if topK != nil {
		k = *topK
	}
	s.runSearch(w, r, q, k, p.toDomain())
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query string, topK int, filters filter.Filters) {
	topK = s.clampTopK(topK)

	req, err := request.New(query, topK, filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if items == nil {
		items = []result.Candidate{}
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Items: items,
		TopK:  req.TopK(),
		Total: len(items),
	})
}

func (s *Server) clampTopK(topK int) int {
	if topK <= 0 && s.limits.DefaultTopK > 0 {
		topK = s.limits.DefaultTopK
	}
	if s.limits.MaxTopK > 0 && topK > s.limits.MaxTopK {
		topK = s.limits.MaxTopK
	}
	return topK
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health. Degraded answers 200; only total failure answers 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	if usage == nil {
		return
	}
	if usage.Embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
	w.Header().Set("X-Reranked", strconv.FormatBool(usage.Reranked))
}

type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeUnauthorized           errorCode = "unauthorized"
	codeNotFound               errorCode = "not_found"
	codeRateLimited            errorCode = "rate_limited"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeInternalError          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err), zap.String("kind", string(domain.KindOf(err))))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
