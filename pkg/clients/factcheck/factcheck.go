// Package factcheck calls an external claim verification service.
package factcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// Verdict is the verification outcome for one article.
type Verdict struct {
	Status  string         `json:"status"` // VERIFIED, DISPUTED, FALSE or MIXED
	Details map[string]any `json:"details,omitempty"`
}

// Client is an HTTP client for the fact-checking service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a fact-check client against baseURL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type checkRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// Check submits an article for verification and returns the verdict.
func (c *Client) Check(ctx context.Context, title, content, url string) (*Verdict, error) {
	body, err := json.Marshal(checkRequest{Title: title, Content: content, URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fact check request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/check", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build fact check request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fact check request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, fmt.Errorf("fact check service returned status %d: %s", resp.StatusCode, string(detail))
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("failed to decode fact check response: %w", err)
	}

	if verdict.Status == "" {
		return nil, fmt.Errorf("fact check service returned no status")
	}

	return &verdict, nil
}
