// Package baseline fetches historical average cluster counts from the
// analytics layer's baseline history API.
package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/observability"
)

// Client implements domain.BaselineProvider against the baseline
// history HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a baseline history client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchBaselines returns historical average counts for the given
// cluster IDs. IDs with no recorded history are absent from the result.
func (c *Client) FetchBaselines(ctx context.Context, clusterIDs []string) (map[string]int, error) {
	if len(clusterIDs) == 0 {
		return map[string]int{}, nil
	}

	params := url.Values{"ids": {strings.Join(clusterIDs, ",")}}
	fullURL := c.baseURL + "/v1/baselines?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.BaselineAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.BaselineRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("baseline request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.BaselineRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("baseline API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.BaselineRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}
	c.metrics.BaselineRequests.WithLabelValues("success").Inc()

	if payload.Baselines == nil {
		return map[string]int{}, nil
	}
	return payload.Baselines, nil
}

// Baseline API response type.

type response struct {
	Baselines map[string]int `json:"baselines"`
}
