package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"techpulse/internal/monitoring"
)

// apiClient wraps the HTTP plumbing shared by both fetchers: JSON GETs,
// default headers and the single rate-limit cooldown retry on the
// primary call.
type apiClient struct {
	httpc    *http.Client
	headers  map[string]string
	cooldown time.Duration
	source   string
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func newAPIClient(timeout, cooldown time.Duration, headers map[string]string, source string, m *monitoring.Metrics, l *zap.Logger) *apiClient {
	return &apiClient{
		httpc:    &http.Client{Timeout: timeout},
		headers:  headers,
		cooldown: cooldown,
		source:   source,
		metrics:  m,
		logger:   l,
	}
}

// getJSON issues one GET and decodes the body into v. The status code is
// returned alongside the error so callers can tell a rate-limit response
// from other failures.
func (c *apiClient) getJSON(ctx context.Context, url string, v any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(v)
}

// getPrimary issues the primary metadata call. A 403 is taken as a
// rate-limit signal: sleep the cooldown once and retry once; whatever
// the retry returns is final.
func (c *apiClient) getPrimary(ctx context.Context, url string, v any) error {
	status, err := c.getJSON(ctx, url, v)
	if status == http.StatusForbidden {
		c.logger.Warn("rate limit hit, cooling down",
			zap.String("url", url),
			zap.Duration("cooldown", c.cooldown))
		c.metrics.IncCooldown(c.source)
		time.Sleep(c.cooldown)
		_, err = c.getJSON(ctx, url, v)
	}
	return err
}

// getSecondary issues a best-effort enrichment call. On failure the
// target is left untouched and the caller's zero-value defaults apply.
func (c *apiClient) getSecondary(ctx context.Context, url string, v any) {
	if _, err := c.getJSON(ctx, url, v); err != nil {
		c.logger.Debug("enrichment call failed, using defaults",
			zap.String("url", url),
			zap.Error(err))
		c.metrics.IncEnrichmentFailure(c.source)
	}
}
