// Package jikan is a rate-limited client for the Jikan (MyAnimeList) REST API.
package jikan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/animerec/internal/domain"
	"github.com/kailas-cloud/animerec/internal/domain/anime"
	"github.com/kailas-cloud/animerec/internal/metrics"
)

// Defaults mirror Jikan's public limits (3 req/s, 60 req/min) with headroom.
const (
	DefaultBaseURL        = "https://api.jikan.moe/v4"
	DefaultRequestsPerSec = 2.5
	DefaultMaxAttempts    = 5
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 10 * time.Second
	DefaultTimeout        = 30 * time.Second
)

// Config holds client settings. Zero values take the defaults.
type Config struct {
	BaseURL        string
	RequestsPerSec float64
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
	Logger         *zap.Logger
}

// Page is one page of the anime listing.
type Page struct {
	Records   []anime.Raw
	Malformed int // entries that could not be decoded; already logged
	HasNext   bool
}

type pageResponse struct {
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		HasNextPage bool `json:"has_next_page"`
	} `json:"pagination"`
}

// Client fetches anime listing pages.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	initialWait time.Duration
	maxWait     time.Duration
	logger      *zap.Logger
	newTimer    func() backoff.Timer // nil uses the real clock
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = DefaultRequestsPerSec
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		maxAttempts: cfg.MaxAttempts,
		initialWait: cfg.InitialBackoff,
		maxWait:     cfg.MaxBackoff,
		logger:      cfg.Logger,
	}
}

// FetchPage returns one page of the anime listing (1-indexed).
// Transient failures (network, 429, 5xx) are retried with exponential backoff.
func (c *Client) FetchPage(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		return nil, c.fail("invalid page number", domain.ErrInvalidRequest, page)
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		b, err := c.get(ctx, page)
		if err != nil {
			var te *transientError
			if !errors.As(err, &te) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metrics.UpstreamRequestsTotal.WithLabelValues("retry").Inc()
		c.logger.Warn("Jikan request failed, retrying",
			zap.Int("page", page), zap.Int("attempt", attempt),
			zap.Duration("backoff", wait), zap.Error(err))
	}

	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}
	if err := backoff.RetryNotifyWithTimer(op, c.policy(ctx), notify, timer); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("error").Inc()
		return nil, c.fail("fetch anime page", err, page)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("ok").Inc()
	return c.decodePage(body, page)
}

// policy doubles the wait from initialWait up to maxWait, without jitter, for at most
// maxAttempts calls in total.
func (c *Client) policy(ctx context.Context) backoff.BackOff {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     c.initialWait,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.maxWait,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxAttempts-1)), ctx)
}

func (c *Client) get(ctx context.Context, page int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := c.baseURL + "/anime?page=" + strconv.Itoa(page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		return nil, &transientError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &transientError{err: fmt.Errorf("HTTP %d: %w", resp.StatusCode, domain.ErrRateLimited)}
	case resp.StatusCode >= 500:
		return nil, &transientError{err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet(body))}
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet(body))
	}
}

func (c *Client) decodePage(body []byte, page int) (*Page, error) {
	var pr pageResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, c.fail("decode anime page", err, page)
	}

	data := bytes.TrimSpace(pr.Data)
	if len(data) == 0 || data[0] != '[' {
		return nil, c.fail("unexpected response: data is not a list", domain.ErrUpstreamUnavailable, page)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, c.fail("decode anime list", err, page)
	}

	out := &Page{Records: make([]anime.Raw, 0, len(entries)), HasNext: pr.Pagination.HasNextPage}
	for i, e := range entries {
		var raw anime.Raw
		if err := json.Unmarshal(e, &raw); err != nil {
			out.Malformed++
			c.logger.Warn("Skipping malformed anime entry",
				zap.Int("page", page), zap.Int("index", i), zap.Error(err))
			continue
		}
		out.Records = append(out.Records, raw)
	}
	if len(entries) == 0 {
		c.logger.Warn("No anime returned for page", zap.Int("page", page))
	}
	return out, nil
}

func (c *Client) fail(msg string, err error, page int) error {
	return domain.NewError(domain.KindIngestion, msg, err, "page", page)
}

// transientError marks failures worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
