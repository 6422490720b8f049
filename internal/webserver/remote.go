package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tejzpr/eloy-nominator/internal/db"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

// RemoteClient talks to a running nominator API.
type RemoteClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewRemoteClient returns a client for the API at baseURL.
func NewRemoteClient(baseURL string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Healthy reports whether baseURL is a nominator server.
func (c *RemoteClient) Healthy(ctx context.Context) bool {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/api/health", &body); err != nil {
		return false
	}
	return body.Status == healthMagic
}

// Categories fetches the live category list through the server.
func (c *RemoteClient) Categories(ctx context.Context) ([]string, error) {
	var body struct {
		Categories []string `json:"categories"`
	}
	if err := c.getJSON(ctx, "/api/categories", &body); err != nil {
		return nil, err
	}
	return body.Categories, nil
}

// Submit posts req to the server and returns its verdict.
func (c *RemoteClient) Submit(ctx context.Context, req nomination.Request) (nomination.Outcome, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nomination.Outcome{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/submit", bytes.NewReader(payload))
	if err != nil {
		return nomination.Outcome{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nomination.Outcome{}, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nomination.Outcome{}, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var out nomination.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nomination.Outcome{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// Submissions lists the server's ledger.
func (c *RemoteClient) Submissions(ctx context.Context) ([]db.Submission, error) {
	var body struct {
		Submissions []db.Submission `json:"submissions"`
	}
	if err := c.getJSON(ctx, "/api/submissions", &body); err != nil {
		return nil, err
	}
	return body.Submissions, nil
}

func (c *RemoteClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
