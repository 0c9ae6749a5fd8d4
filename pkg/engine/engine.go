// Package engine is the HTTP client for the external workflow
// automation engine. The engine owns workflow execution; this platform
// only mirrors definitions and reconciles execution status.
package engine

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

// Per-operation timeouts. Reads are quick, definition pushes moderate,
// executions can take a while before the engine even acknowledges.
const (
	readTimeout    = 10 * time.Second
	writeTimeout   = 30 * time.Second
	executeTimeout = 60 * time.Second
)

// Workflow is the engine-side workflow representation.
type Workflow struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Active     bool           `json:"active"`
	Definition map[string]any `json:"definition"`
}

// Execution is the engine-side execution representation.
type Execution struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Status     string         `json:"status"` // running, waiting, success, error, failed, crashed
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	StoppedAt  *time.Time     `json:"stopped_at,omitempty"`
}

// Client talks to the engine's REST API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates an engine client against baseURL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// CreateWorkflow registers a workflow on the engine and returns the
// engine-assigned workflow ID.
func (c *Client) CreateWorkflow(ctx context.Context, workflow Workflow) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var created Workflow
	if err := c.do(ctx, http.MethodPost, "/api/v1/workflows", workflow, &created); err != nil {
		return "", err
	}

	if created.ID == "" {
		return "", fmt.Errorf("engine returned no workflow ID")
	}

	return created.ID, nil
}

// UpdateWorkflow pushes a changed definition to the engine.
func (c *Client) UpdateWorkflow(ctx context.Context, engineWorkflowID string, workflow Workflow) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return c.do(ctx, http.MethodPut, "/api/v1/workflows/"+engineWorkflowID, workflow, nil)
}

// Activate enables triggering of a workflow on the engine.
func (c *Client) Activate(ctx context.Context, engineWorkflowID string) error {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	return c.do(ctx, http.MethodPost, "/api/v1/workflows/"+engineWorkflowID+"/activate", nil, nil)
}

// Deactivate disables triggering of a workflow on the engine.
func (c *Client) Deactivate(ctx context.Context, engineWorkflowID string) error {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	return c.do(ctx, http.MethodPost, "/api/v1/workflows/"+engineWorkflowID+"/deactivate", nil, nil)
}

// Execute starts a workflow run with the given input and returns the
// engine execution.
func (c *Client) Execute(ctx context.Context, engineWorkflowID string, input map[string]any) (*Execution, error) {
	ctx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()

	var execution Execution
	if err := c.do(ctx, http.MethodPost, "/api/v1/workflows/"+engineWorkflowID+"/execute", map[string]any{"data": input}, &execution); err != nil {
		return nil, err
	}

	if execution.ID == "" {
		return nil, fmt.Errorf("engine returned no execution ID")
	}

	return &execution, nil
}

// GetExecution fetches the current state of an engine execution.
func (c *Client) GetExecution(ctx context.Context, engineExecutionID string) (*Execution, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var execution Execution
	if err := c.do(ctx, http.MethodGet, "/api/v1/executions/"+engineExecutionID, nil, &execution); err != nil {
		return nil, err
	}

	return &execution, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, target any) error {
	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal engine request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build engine request: %w", err)
	}

	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpReq.Header.Set("X-N8N-API-KEY", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(detail))
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode engine response: %w", err)
		}
	}

	return nil
}
