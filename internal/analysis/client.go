// Package analysis calls the external video-trend analysis endpoint.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidpulse/internal/core"
)

// DefaultPath is appended to the base URL when no path is configured.
const DefaultPath = "/api/analyze"

// APIError is a non-2xx response from the analysis endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Client invokes the analysis endpoint.
type Client struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL+path. Analyses are slow, so the
// timeout should be generous.
func NewClient(baseURL, path, apiKey string, timeout time.Duration) *Client {
	if path == "" {
		path = DefaultPath
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		Endpoint: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		APIKey:   apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze runs one analysis for the given business.
func (c *Client) Analyze(ctx context.Context, req core.AnalysisRequest) (*core.AnalysisResult, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call analysis endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result core.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return &result, nil
}
