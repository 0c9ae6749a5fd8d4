// Package summary calls an external AI summarization service.
package summary

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

// DefaultMaxLength bounds generated summaries in characters.
const DefaultMaxLength = 500

// Client is an HTTP client for the summarization service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a summary client against baseURL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

type summarizeRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
	MaxLength int    `json:"max_length"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize condenses text to at most maxLength characters. A
// maxLength <= 0 uses DefaultMaxLength.
func (c *Client) Summarize(ctx context.Context, text, language string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	body, err := json.Marshal(summarizeRequest{Text: text, Language: language, MaxLength: maxLength})
	if err != nil {
		return "", fmt.Errorf("failed to marshal summarize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/summarize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build summarize request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("summarize request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return "", fmt.Errorf("summary service returned status %d: %s", resp.StatusCode, string(detail))
	}

	var decoded summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode summarize response: %w", err)
	}

	if decoded.Summary == "" {
		return "", fmt.Errorf("summary service returned an empty summary")
	}

	return decoded.Summary, nil
}
