// Package media generates narration audio and avatar video for
// broadcasts through external providers. Audio providers answer
// synchronously; video providers hand back a job to poll.
package media

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Kind selects which media a request produces.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// VoiceSettings tunes the TTS rendering.
type VoiceSettings struct {
	VoiceID   string  `json:"voice_id"  validate:"required"`
	Stability float64 `json:"stability" validate:"min=0,max=1"`
	Clarity   float64 `json:"clarity"   validate:"min=0,max=1"`
	Speed     float64 `json:"speed"     validate:"min=0.25,max=4"`
	Pitch     float64 `json:"pitch"     validate:"min=-20,max=20"`
}

// VideoSettings tunes the avatar video rendering.
type VideoSettings struct {
	AvatarID string `json:"avatar_id" validate:"required"`
	Quality  string `json:"quality"   validate:"required,oneof=low medium high ultra"`
}

// Request is one media generation order for a broadcast.
type Request struct {
	BroadcastID string         `json:"broadcast_id" validate:"required"`
	Text        string         `json:"text"         validate:"required"`
	Language    string         `json:"language"     validate:"required,min=2"`
	Kind        Kind           `json:"kind"         validate:"required,oneof=audio video"`
	Voice       *VoiceSettings `json:"voice,omitempty"`
	Video       *VideoSettings `json:"video,omitempty"`
}

var validate = validator.New()

// Validate checks the request shape and the settings matching its kind.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid media request: %w", err)
	}

	switch r.Kind {
	case KindAudio:
		if r.Voice == nil {
			return fmt.Errorf("invalid media request: voice settings are required for audio")
		}

		if err := validate.Struct(r.Voice); err != nil {
			return fmt.Errorf("invalid voice settings: %w", err)
		}
	case KindVideo:
		if r.Video == nil {
			return fmt.Errorf("invalid media request: video settings are required for video")
		}

		if err := validate.Struct(r.Video); err != nil {
			return fmt.Errorf("invalid video settings: %w", err)
		}
	}

	return nil
}

// Result is the outcome of a generation call. Async providers return
// only JobID; the media URLs arrive later through polling.
type Result struct {
	AudioURL string `json:"audio_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Duration int    `json:"duration,omitempty"` // seconds
	JobID    string `json:"job_id,omitempty"`
	Async    bool   `json:"async"`
}

// JobState is the provider-side state of an async generation job.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether the job will not change state anymore.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobStatus is one poll of an async generation job.
type JobStatus struct {
	State        JobState `json:"state"`
	VideoURL     string   `json:"video_url,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Duration     int      `json:"duration,omitempty"` // seconds
	Reason       string   `json:"reason,omitempty"`
}

// Generator produces media for a broadcast.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// JobPoller checks the state of async generation jobs.
type JobPoller interface {
	PollJob(ctx context.Context, jobID string) (*JobStatus, error)
}
