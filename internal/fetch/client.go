// Package fetch talks to the workflow engine's REST API and converts its
// payloads into the domain types the analyzer consumes.
//
// The client caches what it fetches: the workflow list for the configured
// definition TTL and each workflow's execution window for the execution TTL.
// Transient request failures (network errors, 5xx, 429) are retried with
// jittered exponential backoff; other 4xx responses are permanent and
// returned immediately.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/flowpulse/flowpulse/internal/config"
	"github.com/flowpulse/flowpulse/internal/metrics"
	"github.com/flowpulse/flowpulse/internal/workflow"
)

// maxAttempts bounds how often one logical request hits the engine before
// the current cycle gives up. The next poll cycle starts fresh.
const maxAttempts = 3

// Client is a caching REST client for the workflow engine.
// Safe for concurrent use.
type Client struct {
	cfg   config.EngineConfig
	httpc *http.Client
	reg   *metrics.Registry

	// Injectable for tests.
	now        func() time.Time
	retryDelay func(attempt int) time.Duration

	mu     sync.Mutex
	defs   []workflow.Definition
	defsAt time.Time
	execs  map[string]execEntry
}

type execEntry struct {
	records   []workflow.ExecutionRecord
	fetchedAt time.Time
}

// NewClient builds a Client for the given engine settings. The API key, when
// configured, is injected into every request by the transport.
func NewClient(cfg config.EngineConfig, reg *metrics.Registry) *Client {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	transport := &authRoundTripper{
		base: http.DefaultTransport,
		cfg:  cfg,
	}
	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		reg:        reg,
		now:        time.Now,
		retryDelay: retryDelay,
		execs:      make(map[string]execEntry),
	}
}

// authRoundTripper injects the API key header into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	cfg  config.EngineConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if key := t.cfg.APIKey(); key != "" {
		req = req.Clone(req.Context())
		req.Header.Set(t.cfg.APIKeyHeader, key)
	}
	return t.base.RoundTrip(req)
}

// ListWorkflows returns the engine's workflow definitions, served from cache
// while the definition TTL holds.
func (c *Client) ListWorkflows(ctx context.Context) ([]workflow.Definition, error) {
	c.mu.Lock()
	if c.defs != nil && c.now().Sub(c.defsAt) < c.cfg.DefinitionTTL {
		defs := append([]workflow.Definition(nil), c.defs...)
		c.mu.Unlock()
		c.reg.Inc(metrics.EngineCacheHitsTotal)
		return defs, nil
	}
	c.mu.Unlock()

	var payload workflowListPayload
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/api/v1/workflows", &payload); err != nil {
		return nil, err
	}
	defs := toDefinitions(payload.Data)

	c.mu.Lock()
	c.defs, c.defsAt = defs, c.now()
	c.mu.Unlock()
	return append([]workflow.Definition(nil), defs...), nil
}

// ListExecutions returns the recent execution window for one workflow,
// served from cache while the execution TTL holds. The window is a single
// bounded request; the engine's newest executions come first.
func (c *Client) ListExecutions(ctx context.Context, workflowID string) ([]workflow.ExecutionRecord, error) {
	c.mu.Lock()
	if e, ok := c.execs[workflowID]; ok && c.now().Sub(e.fetchedAt) < c.cfg.ExecutionTTL {
		records := append([]workflow.ExecutionRecord(nil), e.records...)
		c.mu.Unlock()
		c.reg.Inc(metrics.EngineCacheHitsTotal)
		return records, nil
	}
	c.mu.Unlock()

	u := fmt.Sprintf("%s/api/v1/executions?workflowId=%s&limit=%d",
		c.cfg.BaseURL, url.QueryEscape(workflowID), c.cfg.ExecutionLimit)

	var payload executionListPayload
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	records := toRecords(payload.Data)

	c.mu.Lock()
	c.execs[workflowID] = execEntry{records: records, fetchedAt: c.now()}
	c.mu.Unlock()
	return append([]workflow.ExecutionRecord(nil), records...), nil
}

// Ping sends one uncached, unretried request against the workflow list
// endpoint. The doctor command uses it for a fast reachability verdict.
func (c *Client) Ping(ctx context.Context) error {
	var payload workflowListPayload
	return c.doJSON(ctx, c.cfg.BaseURL+"/api/v1/workflows", &payload)
}

// getJSON performs a GET with retry. Transient failures back off and retry
// up to maxAttempts; permanent failures and context cancellation return
// immediately.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := c.retryDelay(attempt)
			slog.Debug("fetch: retrying engine request",
				"url", u, "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err := c.doJSON(ctx, u, out)
		if err == nil {
			return nil
		}
		lastErr = err
		c.reg.Inc(metrics.EngineRequestFailuresTotal)

		if isPermanentError(err) || ctx.Err() != nil {
			return err
		}
	}
	return fmt.Errorf("engine: giving up after %d attempts: %w", maxAttempts, lastErr)
}

// doJSON performs a single GET and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, u string, out any) error {
	c.reg.Inc(metrics.EngineRequestsTotal)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("engine: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("engine: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &apiError{Status: resp.StatusCode, URL: u}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("engine: decode response: %w", err)
	}
	return nil
}

// apiError is a non-200 engine response.
type apiError struct {
	Status int
	URL    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("engine: %s returned status %d", e.URL, e.Status)
}

// isPermanentError returns true for responses that a retry cannot fix:
// client errors other than 429. Network failures and 5xx are transient.
func isPermanentError(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status >= 400 && ae.Status < 500 && ae.Status != http.StatusTooManyRequests
}
