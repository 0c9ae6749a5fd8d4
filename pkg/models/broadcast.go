package models

import "time"

// BroadcastType selects the airing mode of a broadcast.
type BroadcastType string

const (
	BroadcastTypeLive     BroadcastType = "LIVE"     // No pre-rendering, narrated on air
	BroadcastTypeRecorded BroadcastType = "RECORDED" // Media generated ahead of airing
)

// BroadcastStatus represents the lifecycle state of a broadcast.
type BroadcastStatus string

const (
	BroadcastStatusScheduled BroadcastStatus = "SCHEDULED"
	BroadcastStatusPreparing BroadcastStatus = "PREPARING" // RECORDED only: media generation in flight
	BroadcastStatusReady     BroadcastStatus = "READY"
	BroadcastStatusFailed    BroadcastStatus = "FAILED" // Terminal until an explicit retry
	BroadcastStatusCompleted BroadcastStatus = "COMPLETED"
)

// BroadcastTransitions is the legal transition table for broadcast
// statuses. FAILED -> SCHEDULED exists only for the manual retry path;
// COMPLETED is terminal.
var BroadcastTransitions = map[BroadcastStatus][]BroadcastStatus{
	BroadcastStatusScheduled: {BroadcastStatusPreparing, BroadcastStatusReady, BroadcastStatusFailed},
	BroadcastStatusPreparing: {BroadcastStatusReady, BroadcastStatusFailed},
	BroadcastStatusReady:     {BroadcastStatusCompleted, BroadcastStatusFailed},
	BroadcastStatusFailed:    {BroadcastStatusScheduled},
	BroadcastStatusCompleted: {},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s BroadcastStatus) CanTransitionTo(next BroadcastStatus) bool {
	for _, allowed := range BroadcastTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Broadcast is one rendering/airing instance of an article through a
// specific avatar. Only the broadcast service mutates status and media
// fields; everyone else reads through the store.
type Broadcast struct {
	ID              string          `json:"id"`
	ArticleID       string          `json:"article_id" validate:"required"`
	AvatarID        string          `json:"avatar_id"  validate:"required"`
	BroadcastType   BroadcastType   `json:"broadcast_type" validate:"required,oneof=LIVE RECORDED"`
	Status          BroadcastStatus `json:"status"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	GenerationJobID string          `json:"generation_job_id,omitempty"` // provider handle for async media jobs
	AudioURL        string          `json:"audio_url,omitempty"`
	VideoURL        string          `json:"video_url,omitempty"`
	ThumbnailURL    string          `json:"thumbnail_url,omitempty"`
	Duration        int             `json:"duration,omitempty"`
	ViewCount       int             `json:"view_count"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// BroadcastWithArticle is the playout view returned to clients pulling
// their next item: the broadcast plus the article and avatar it needs.
type BroadcastWithArticle struct {
	Broadcast Broadcast `json:"broadcast"`
	Article   Article   `json:"article"`
	Avatar    Avatar    `json:"avatar"`
}
