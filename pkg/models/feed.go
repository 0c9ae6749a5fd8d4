package models

import "time"

// FactCheckStatus is the verification verdict attached to a feed article.
type FactCheckStatus string

const (
	FactCheckPending  FactCheckStatus = "PENDING"
	FactCheckVerified FactCheckStatus = "VERIFIED"
	FactCheckDisputed FactCheckStatus = "DISPUTED"
	FactCheckFalse    FactCheckStatus = "FALSE"
	FactCheckMixed    FactCheckStatus = "MIXED"
	FactCheckDisabled FactCheckStatus = "DISABLED" // feed has fact-checking turned off
)

// Feed is an RSS/Atom ingestion source. URL is unique among non-deleted
// feeds; UpdateFrequency is the refresh interval in minutes.
type Feed struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"             validate:"required,min=2"`
	URL              string     `json:"url"              validate:"required,url"`
	Category         string     `json:"category,omitempty"`
	Language         string     `json:"language"         validate:"required,min=2"`
	UpdateFrequency  int        `json:"update_frequency" validate:"required,min=1"` // minutes
	FactCheckEnabled bool       `json:"fact_check_enabled"`
	AISummaryEnabled bool       `json:"ai_summary_enabled"`
	ScrapeEnabled    bool       `json:"scrape_enabled"` // backfill full article text from the origin page
	IsActive         bool       `json:"is_active"`
	LastFetchedAt    *time.Time `json:"last_fetched_at,omitempty"`
	CreatedBy        string     `json:"created_by,omitempty"`
	UpdatedBy        string     `json:"updated_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// FeedArticle is one ingested item of a feed, uniquely identified by
// (FeedID, OriginalURL) so re-fetching an unchanged feed is a no-op.
type FeedArticle struct {
	ID                   string          `json:"id"`
	FeedID               string          `json:"feed_id"      validate:"required"`
	Title                string          `json:"title"        validate:"required"`
	Summary              string          `json:"summary,omitempty"`
	Content              string          `json:"content,omitempty"` // full text when scraping is enabled
	OriginalURL          string          `json:"original_url" validate:"required,url"`
	PublishedAt          time.Time       `json:"published_at"`
	FactCheckStatus      FactCheckStatus `json:"fact_check_status"`
	FactCheckResult      map[string]any  `json:"fact_check_result,omitempty"`
	FactCheckedAt        *time.Time      `json:"fact_checked_at,omitempty"`
	AISummary            string          `json:"ai_summary,omitempty"`
	AISummaryGeneratedAt *time.Time      `json:"ai_summary_generated_at,omitempty"`
	IsActive             bool            `json:"is_active"`
	CreatedBy            string          `json:"created_by,omitempty"`
	UpdatedBy            string          `json:"updated_by,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            *time.Time      `json:"deleted_at,omitempty"`
}
