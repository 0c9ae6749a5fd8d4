// Package models defines the core domain models for the news publication pipeline.
package models

import "time"

// ArticleStatus represents the lifecycle state of an article.
type ArticleStatus string

const (
	ArticleStatusDraft       ArticleStatus = "DRAFT"       // Ingested, awaiting editorial approval
	ArticleStatusApproved    ArticleStatus = "APPROVED"    // Cleared for broadcast scheduling
	ArticleStatusScheduled   ArticleStatus = "SCHEDULED"   // Bound to at least one broadcast
	ArticleStatusBroadcasted ArticleStatus = "BROADCASTED" // Aired at least once
	ArticleStatusArchived    ArticleStatus = "ARCHIVED"    // Retired, never hard-deleted
)

// Priority orders articles inside the playout queue.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Rank returns the sort weight of a priority; higher airs first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ArticleTransitions is the legal transition table for article statuses.
var ArticleTransitions = map[ArticleStatus][]ArticleStatus{
	ArticleStatusDraft:       {ArticleStatusApproved, ArticleStatusArchived},
	ArticleStatusApproved:    {ArticleStatusApproved, ArticleStatusScheduled, ArticleStatusArchived},
	ArticleStatusScheduled:   {ArticleStatusBroadcasted, ArticleStatusArchived},
	ArticleStatusBroadcasted: {ArticleStatusArchived},
	ArticleStatusArchived:    {},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ArticleStatus) CanTransitionTo(next ArticleStatus) bool {
	for _, allowed := range ArticleTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Article is a news item moving through the publication state machine.
// FormattedText and Duration are derived from Content and recomputed
// whenever Content changes.
type Article struct {
	ID            string        `json:"id"`
	SourceID      string        `json:"source_id"      validate:"required"`
	Title         string        `json:"title"          validate:"required,min=3"`
	Content       string        `json:"content"        validate:"required"`
	Summary       string        `json:"summary,omitempty"`
	FormattedText string        `json:"formatted_text,omitempty"`
	Duration      int           `json:"duration"` // estimated seconds of speech
	Category      string        `json:"category,omitempty"`
	Priority      Priority      `json:"priority"       validate:"required,oneof=LOW NORMAL HIGH URGENT"`
	Language      string        `json:"language"       validate:"required,min=2"`
	OriginalURL   string        `json:"original_url,omitempty"`
	ImageURL      string        `json:"image_url,omitempty"`
	Status        ArticleStatus `json:"status"`
	ScheduledAt   *time.Time    `json:"scheduled_at,omitempty"`
	BroadcastAt   *time.Time    `json:"broadcast_at,omitempty"`
	PublishedAt   *time.Time    `json:"published_at,omitempty"`
	CreatedBy     string        `json:"created_by,omitempty"`
	UpdatedBy     string        `json:"updated_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
}
