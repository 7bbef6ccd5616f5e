package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client talks to the remote usage authority for the rate-limited
// high-fidelity recognition tier. Remaining counts are queried fresh per
// decision and never cached.
type Client struct {
	baseURL    string
	tier       string
	httpClient *http.Client
}

func New(baseURL, tier string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tier:       tier,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// RemainingCalls returns the remaining high-fidelity call count. Any
// transport or parse failure degrades to 0: quota-unknown means
// quota-exhausted, failing safe toward the free tier.
func (c *Client) RemainingCalls(ctx context.Context) int {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/usage/remaining", nil)
	if err != nil {
		slog.Warn("quota_query_failed", "error", err)
		return 0
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("quota_query_failed", "error", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("quota_query_failed", "status", resp.Status)
		return 0
	}

	var payload map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		slog.Warn("quota_query_failed", "error", fmt.Errorf("decode remaining usage: %w", err))
		return 0
	}

	remaining, ok := payload[c.tier]
	if !ok {
		slog.Warn("quota_query_failed", "error", fmt.Errorf("tier %q missing from response", c.tier))
		return 0
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ReportUsage fires one usage-increment call. Failures are logged and
// never retried; the response body is ignored.
func (c *Client) ReportUsage(ctx context.Context, deviceLabel, service string) {
	body, err := json.Marshal(map[string]string{
		"device_name": deviceLabel,
		"service":     service,
	})
	if err != nil {
		slog.Warn("usage_report_failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/usage/report", bytes.NewReader(body))
	if err != nil {
		slog.Warn("usage_report_failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("usage_report_failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("usage_report_failed", "status", resp.Status)
	}
}
