// Package api is the client for the studyplan backend REST and streaming
// endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
	"github.com/felixgeelhaar/studyplan/internal/telemetry"
	"github.com/felixgeelhaar/studyplan/internal/version"
)

const defaultCacheSize = 64

// Client is the studyplan backend API client. It attaches the bearer token
// from the shared state to every request and clears that state when the
// server answers 401.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streamHTTP *http.Client
	state      *appstate.State
	limiter    *rate.Limiter
	roadmaps   *lru.Cache[string, *Roadmap]
	logger     *log.Logger
	metrics    *metrics.Metrics
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is reused for
// streaming requests, which never time out on their own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit bounds outgoing requests. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCacheSize sets how many roadmaps are kept in the read-through cache.
func WithCacheSize(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			n = defaultCacheSize
		}
		c.roadmaps, _ = lru.New[string, *Roadmap](n)
	}
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for baseURL (for example
// http://localhost:8000/api/v1). state may be shared with other components.
func NewClient(baseURL string, state *appstate.State, opts ...Option) *Client {
	cache, _ := lru.New[string, *Roadmap](defaultCacheSize)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		state:     state,
		roadmaps:  cache,
		logger:    log.Discard(),
		userAgent: version.GetInfo().UserAgent(),
	}
	if c.state == nil {
		c.state = appstate.New()
	}
	for _, opt := range opts {
		opt(c)
	}
	c.streamHTTP = &http.Client{Transport: c.httpClient.Transport}
	return c
}

// State returns the shared state the client reads tokens from.
func (c *Client) State() *appstate.State {
	return c.state
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an authenticated JSON request. route is the path
// template used as the metrics label.
func (c *Client) doRequest(ctx context.Context, method, route, path string, body any) (*http.Response, error) {
	return c.send(ctx, c.httpClient, method, route, path, body, "application/json")
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, route, path string, body any, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrCodeAPIRequest, "request cancelled while rate limited", err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	ctx, span := telemetry.StartRequestSpan(ctx, method, route)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	telemetry.Inject(ctx, req.Header)

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.state.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		telemetry.RecordError(span, err)
		c.metrics.ObserveRequest(method, route, "error", time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(errors.ErrCodeAPIRequest, fmt.Sprintf("%s %s failed", method, route), err).
			WithSuggestion("Check that the API is reachable at " + c.baseURL).
			WithSuggestion("Set STUDYPLAN_ENABLE_MOCK=true to use the built-in mock backend")
	}
	telemetry.RecordStatus(span, resp.StatusCode)
	c.metrics.ObserveRequest(method, route, strconv.Itoa(resp.StatusCode), time.Since(start))
	c.logger.Debug("api request",
		"method", method,
		"route", route,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.handleUnauthorized()
		return nil, errors.NewUnauthorizedError()
	}
	return resp, nil
}

// handleUnauthorized is the global logout side effect of a 401.
func (c *Client) handleUnauthorized() {
	c.logger.Info("session rejected by server, signing out")
	if c.metrics != nil {
		c.metrics.APILogouts.Inc()
	}
	c.roadmaps.Purge()
	c.state.Logout("unauthorized")
}

// parseResponse parses the response body into the target struct
func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !stderrors.Is(err, io.EOF) {
			return errors.Wrap(errors.ErrCodeAPIDecode, "failed to decode response", err)
		}
	}
	return nil
}

// checkStatus turns a non-2xx response into a coded error, preferring the
// server's own message.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp ErrorResponse
	msg := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		for _, m := range []string{errResp.Message, errResp.Error, errResp.Detail} {
			if m != "" {
				msg = m
				break
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		msg = fmt.Sprintf("request failed with status %d: %s", resp.StatusCode, text)
	}
	return errors.NewStatusError(resp.StatusCode, msg)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
