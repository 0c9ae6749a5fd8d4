package media

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

const videoRequestTimeout = 60 * time.Second

// VideoGenerator talks to an asynchronous avatar video HTTP API. The
// provider queues a rendering job and returns its ID; callers poll the
// job until it reaches a terminal state.
type VideoGenerator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewVideoGenerator creates a video generator against baseURL.
func NewVideoGenerator(baseURL, apiKey string) *VideoGenerator {
	return &VideoGenerator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: videoRequestTimeout},
	}
}

type videoGenerateRequest struct {
	AvatarID string `json:"avatar_id"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Quality  string `json:"quality"`
}

type videoGenerateResponse struct {
	Data struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
}

// Generate queues an avatar video job. The returned result is async
// and carries only the provider job ID.
func (g *VideoGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Kind != KindVideo {
		return nil, fmt.Errorf("video generator cannot produce %s", req.Kind)
	}

	body, err := json.Marshal(videoGenerateRequest{
		AvatarID: req.Video.AvatarID,
		Text:     req.Text,
		Language: req.Language,
		Quality:  req.Video.Quality,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal video request: %w", err)
	}

	url := g.baseURL + "/v2/video/generate"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build video request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video provider request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, fmt.Errorf("video provider returned status %d: %s", resp.StatusCode, string(detail))
	}

	var decoded videoGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode video response: %w", err)
	}

	if decoded.Data.VideoID == "" {
		return nil, fmt.Errorf("video provider returned no job ID")
	}

	return &Result{JobID: decoded.Data.VideoID, Async: true}, nil
}

type videoStatusResponse struct {
	Data struct {
		Status       string `json:"status"`
		VideoURL     string `json:"video_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Duration     int    `json:"duration"`
		Error        string `json:"error"`
	} `json:"data"`
}

// PollJob fetches the current state of a queued video job.
func (g *VideoGenerator) PollJob(ctx context.Context, jobID string) (*JobStatus, error) {
	url := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", g.baseURL, jobID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}

	httpReq.Header.Set("X-Api-Key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video provider request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, fmt.Errorf("video provider returned status %d: %s", resp.StatusCode, string(detail))
	}

	var decoded videoStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	switch decoded.Data.Status {
	case "pending", "waiting":
		return &JobStatus{State: JobPending}, nil
	case "processing":
		return &JobStatus{State: JobProcessing}, nil
	case "completed":
		return &JobStatus{
			State:        JobCompleted,
			VideoURL:     decoded.Data.VideoURL,
			ThumbnailURL: decoded.Data.ThumbnailURL,
			Duration:     decoded.Data.Duration,
		}, nil
	case "failed":
		return &JobStatus{State: JobFailed, Reason: decoded.Data.Error}, nil
	default:
		return nil, fmt.Errorf("video provider returned unknown job status %q", decoded.Data.Status)
	}
}
