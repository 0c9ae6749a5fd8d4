// Package events defines event types and structures for the publication
// pipeline notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topic.
const Topic = "newscast.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Broadcast media lifecycle events.
	BroadcastMediaRequestedEvent EventType = "broadcast.media.requested"
	BroadcastMediaFinishedEvent  EventType = "broadcast.media.finished"
	BroadcastMediaFailedEvent    EventType = "broadcast.media.failed"

	// Ingestion events.
	FeedFetchedEvent EventType = "feed.fetched"

	// Workflow execution events.
	ExecutionStartedEvent EventType = "execution.started"
	ExecutionSyncedEvent  EventType = "execution.synced"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent builds the common envelope carried by every event.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// BroadcastMediaRequested asks a worker to generate audio/video for a
// freshly scheduled broadcast.
type BroadcastMediaRequested struct {
	BaseEvent

	BroadcastID string `json:"broadcast_id"`
	ArticleID   string `json:"article_id"`
	AvatarID    string `json:"avatar_id"`
}

func (b BroadcastMediaRequested) GetType() EventType {
	return BroadcastMediaRequestedEvent
}

// BroadcastMediaFinished reports generated media for a broadcast.
type BroadcastMediaFinished struct {
	BaseEvent

	BroadcastID string `json:"broadcast_id"`
	AudioURL    string `json:"audio_url,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

func (b BroadcastMediaFinished) GetType() EventType {
	return BroadcastMediaFinishedEvent
}

// BroadcastMediaFailed reports a failed media generation attempt.
type BroadcastMediaFailed struct {
	BaseEvent

	BroadcastID string `json:"broadcast_id"`
	Reason      string `json:"reason"`
}

func (b BroadcastMediaFailed) GetType() EventType {
	return BroadcastMediaFailedEvent
}

// FeedFetched reports the outcome of one feed ingestion pass.
type FeedFetched struct {
	BaseEvent

	FeedID       string `json:"feed_id"`
	NewArticles  int    `json:"new_articles"`
	TotalEntries int    `json:"total_entries"`
}

func (f FeedFetched) GetType() EventType {
	return FeedFetchedEvent
}

// ExecutionStarted reports a workflow execution handed to the engine.
type ExecutionStarted struct {
	BaseEvent

	ExecutionID       string `json:"execution_id"`
	WorkflowID        string `json:"workflow_id"`
	EngineExecutionID string `json:"engine_execution_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// ExecutionSynced reports a local execution record refreshed from the
// engine.
type ExecutionSynced struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

func (e ExecutionSynced) GetType() EventType {
	return ExecutionSyncedEvent
}
