package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/newscast/pkg/eventbus"
	"github.com/dukex/newscast/pkg/events"
	"github.com/dukex/newscast/pkg/media"
	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
)

// Default narration tuning applied when a voice profile carries no
// explicit values.
const (
	defaultVoiceStability = 0.5
	defaultVoiceClarity   = 0.75
	defaultVoiceSpeed     = 1.0
	defaultVideoQuality   = "high"
)

// VoiceDefaults is the narration tuning for one language, loaded from
// provider configuration at startup.
type VoiceDefaults struct {
	VoiceID   string
	Stability float64
	Clarity   float64
}

// Broadcasts manages the broadcast lifecycle from scheduling through
// media generation to completion.
type Broadcasts struct {
	store     persistence.Persistence
	publisher eventbus.EventPublisher
	audio     media.Generator
	video     media.Generator
	poller    media.JobPoller
	voices    map[string]VoiceDefaults
	logger    *slog.Logger
}

// NewBroadcasts creates the broadcast service. publisher may be nil,
// in which case Schedule generates media inline instead of handing it
// to a worker. voices keys language codes to narration defaults and
// may be nil.
func NewBroadcasts(
	store persistence.Persistence,
	publisher eventbus.EventPublisher,
	audio media.Generator,
	video media.Generator,
	poller media.JobPoller,
	voices map[string]VoiceDefaults,
	logger *slog.Logger,
) *Broadcasts {
	return &Broadcasts{
		store:     store,
		publisher: publisher,
		audio:     audio,
		video:     video,
		poller:    poller,
		voices:    voices,
		logger:    logger,
	}
}

// ScheduleRequest binds an approved article to an avatar and a slot.
// A zero ScheduledAt means immediate eligibility.
type ScheduleRequest struct {
	ArticleID     string               `json:"article_id"     validate:"required"`
	AvatarID      string               `json:"avatar_id"      validate:"required"`
	BroadcastType models.BroadcastType `json:"broadcast_type" validate:"required,oneof=LIVE RECORDED"`
	ScheduledAt   time.Time            `json:"scheduled_at"`
}

// Schedule creates a broadcast for an approved article. The article is
// claimed with a conditional status update so concurrent schedulers
// for the same article produce exactly one broadcast.
func (s *Broadcasts) Schedule(ctx context.Context, req ScheduleRequest) (*models.Broadcast, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("schedule broadcast", "invalid_schedule", err.Error(), ErrInvalidRequest)
	}

	article, err := s.store.Articles().GetByID(ctx, req.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	if article.Status != models.ArticleStatusApproved {
		return nil, NewValidationError("schedule broadcast", "article_not_approved",
			fmt.Sprintf("article %s is %s", article.ID, article.Status), ErrArticleNotApproved)
	}

	avatar, err := s.store.Avatars().GetByID(ctx, req.AvatarID)
	if err != nil {
		return nil, fmt.Errorf("failed to load avatar: %w", err)
	}

	if !avatar.IsActive {
		return nil, NewValidationError("schedule broadcast", "avatar_inactive",
			fmt.Sprintf("avatar %s is inactive", avatar.ID), ErrInvalidRequest)
	}

	won, err := s.store.Articles().PromoteIfStatus(ctx, article.ID,
		models.ArticleStatusApproved, models.ArticleStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to claim article: %w", err)
	}

	if !won {
		return nil, &ServiceError{
			Op:      "schedule broadcast",
			Code:    "already_scheduled",
			Message: fmt.Sprintf("article %s was scheduled by a concurrent request", article.ID),
			Err:     ErrAlreadyScheduled,
		}
	}

	scheduledAt := req.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now().UTC()
	}

	article.Status = models.ArticleStatusScheduled
	article.ScheduledAt = &scheduledAt

	if err := s.store.Articles().Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article schedule: %w", err)
	}

	status := models.BroadcastStatusScheduled
	if req.BroadcastType == models.BroadcastTypeLive {
		// LIVE broadcasts need no pre-rendered media and are
		// immediately visible to the playout poll.
		status = models.BroadcastStatusReady
	}

	broadcast := &models.Broadcast{
		ArticleID:     article.ID,
		AvatarID:      avatar.ID,
		BroadcastType: req.BroadcastType,
		Status:        status,
		ScheduledAt:   scheduledAt,
	}

	if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to save broadcast: %w", err)
	}

	s.logger.InfoContext(ctx, "broadcast scheduled",
		"broadcast_id", broadcast.ID, "article_id", article.ID, "avatar_id", avatar.ID,
		"type", broadcast.BroadcastType, "scheduled_at", broadcast.ScheduledAt)

	if broadcast.BroadcastType != models.BroadcastTypeRecorded {
		return broadcast, nil
	}

	if s.publisher != nil {
		event := events.BroadcastMediaRequested{
			BaseEvent:   events.NewBaseEvent(events.BroadcastMediaRequestedEvent),
			BroadcastID: broadcast.ID,
			ArticleID:   article.ID,
			AvatarID:    avatar.ID,
		}

		if err := s.publisher.Publish(ctx, broadcast.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish media request, falling back to inline generation",
				"broadcast_id", broadcast.ID, "error", err)
		} else {
			return broadcast, nil
		}
	}

	if err := s.GenerateMedia(ctx, broadcast.ID); err != nil {
		s.logger.ErrorContext(ctx, "inline media generation failed",
			"broadcast_id", broadcast.ID, "error", err)
	}

	return s.store.Broadcasts().GetByID(ctx, broadcast.ID)
}

// Get loads one broadcast.
func (s *Broadcasts) Get(ctx context.Context, id string) (*models.Broadcast, error) {
	return s.store.Broadcasts().GetByID(ctx, id)
}

// List returns a page of broadcasts.
func (s *Broadcasts) List(ctx context.Context, params persistence.ListBroadcastsParams) (*persistence.ListResult[models.Broadcast], error) {
	return s.store.Broadcasts().List(ctx, params)
}

// GetNext returns the highest priority due broadcast for an avatar, or
// nil when nothing is ready.
func (s *Broadcasts) GetNext(ctx context.Context, avatarID string) (*models.BroadcastWithArticle, error) {
	return s.store.Broadcasts().NextReadyForAvatar(ctx, avatarID)
}

// UpdateStatusRequest carries a playout status report. Timestamps and the
// view count are optional and default from the server clock when omitted.
type UpdateStatusRequest struct {
	Status    models.BroadcastStatus `json:"status" validate:"required"`
	StartedAt *time.Time             `json:"started_at"`
	EndedAt   *time.Time             `json:"ended_at"`
	ViewCount *int                   `json:"view_count"`
}

// UpdateStatus applies a playout-side status change. Completing a
// broadcast cascades the article to BROADCASTED.
func (s *Broadcasts) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*models.Broadcast, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("update broadcast status", "invalid_request", err.Error(), ErrInvalidRequest)
	}

	broadcast, err := s.store.Broadcasts().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load broadcast: %w", err)
	}

	next := req.Status
	if !broadcast.Status.CanTransitionTo(next) {
		return nil, NewValidationError("update broadcast status", "illegal_transition",
			fmt.Sprintf("cannot move broadcast from %s to %s", broadcast.Status, next), ErrIllegalTransition)
	}

	now := time.Now().UTC()

	broadcast.Status = next

	if req.StartedAt != nil {
		broadcast.StartedAt = req.StartedAt
	}
	if req.EndedAt != nil {
		broadcast.EndedAt = req.EndedAt
	}
	if req.ViewCount != nil {
		broadcast.ViewCount = *req.ViewCount
	}

	switch next {
	case models.BroadcastStatusCompleted:
		if broadcast.EndedAt == nil {
			broadcast.EndedAt = &now
		}
		if broadcast.StartedAt == nil {
			broadcast.StartedAt = &now
		}
	case models.BroadcastStatusFailed:
		if broadcast.FailureReason == "" {
			broadcast.FailureReason = "reported by playout"
		}
	}

	if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to save broadcast: %w", err)
	}

	if next == models.BroadcastStatusCompleted {
		if err := s.markArticleBroadcasted(ctx, broadcast.ArticleID, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to cascade article status",
				"broadcast_id", broadcast.ID, "article_id", broadcast.ArticleID, "error", err)
		}
	}

	return broadcast, nil
}

func (s *Broadcasts) markArticleBroadcasted(ctx context.Context, articleID string, at time.Time) error {
	article, err := s.store.Articles().GetByID(ctx, articleID)
	if err != nil {
		return err
	}

	if !article.Status.CanTransitionTo(models.ArticleStatusBroadcasted) {
		return nil
	}

	article.Status = models.ArticleStatusBroadcasted
	article.BroadcastAt = &at

	return s.store.Articles().Save(ctx, article)
}

// Retry puts a FAILED broadcast back in the generation queue.
func (s *Broadcasts) Retry(ctx context.Context, id string) (*models.Broadcast, error) {
	broadcast, err := s.store.Broadcasts().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load broadcast: %w", err)
	}

	if broadcast.Status != models.BroadcastStatusFailed {
		return nil, NewValidationError("retry broadcast", "illegal_transition",
			fmt.Sprintf("cannot retry broadcast in status %s", broadcast.Status), ErrIllegalTransition)
	}

	broadcast.Status = models.BroadcastStatusScheduled
	broadcast.FailureReason = ""
	broadcast.GenerationJobID = ""

	if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
		return nil, fmt.Errorf("failed to save broadcast: %w", err)
	}

	if s.publisher != nil {
		event := events.BroadcastMediaRequested{
			BaseEvent:   events.NewBaseEvent(events.BroadcastMediaRequestedEvent),
			BroadcastID: broadcast.ID,
			ArticleID:   broadcast.ArticleID,
			AvatarID:    broadcast.AvatarID,
		}

		if err := s.publisher.Publish(ctx, broadcast.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish media request for retry",
				"broadcast_id", broadcast.ID, "error", err)
		}
	}

	return broadcast, nil
}

// GenerateMedia renders audio, and video when the avatar has a video
// persona, for a SCHEDULED broadcast. Audio lands synchronously; video
// providers answer with a job handle that ReconcilePending resolves.
func (s *Broadcasts) GenerateMedia(ctx context.Context, broadcastID string) error {
	broadcast, err := s.store.Broadcasts().GetByID(ctx, broadcastID)
	if err != nil {
		return fmt.Errorf("failed to load broadcast: %w", err)
	}

	if broadcast.Status != models.BroadcastStatusScheduled {
		return NewValidationError("generate media", "illegal_transition",
			fmt.Sprintf("cannot generate media for broadcast in status %s", broadcast.Status), ErrIllegalTransition)
	}

	article, err := s.store.Articles().GetByID(ctx, broadcast.ArticleID)
	if err != nil {
		return fmt.Errorf("failed to load article: %w", err)
	}

	avatar, err := s.store.Avatars().GetByID(ctx, broadcast.AvatarID)
	if err != nil {
		return fmt.Errorf("failed to load avatar: %w", err)
	}

	broadcast.Status = models.BroadcastStatusPreparing
	if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
		return fmt.Errorf("failed to save broadcast: %w", err)
	}

	voice := media.VoiceSettings{
		VoiceID:   avatar.VoiceID,
		Stability: defaultVoiceStability,
		Clarity:   defaultVoiceClarity,
		Speed:     defaultVoiceSpeed,
	}

	if defaults, ok := s.voices[article.Language]; ok {
		if defaults.Stability > 0 {
			voice.Stability = defaults.Stability
		}

		if defaults.Clarity > 0 {
			voice.Clarity = defaults.Clarity
		}

		if voice.VoiceID == "" {
			voice.VoiceID = defaults.VoiceID
		}
	}

	audioResult, err := s.audio.Generate(ctx, media.Request{
		BroadcastID: broadcast.ID,
		Text:        article.FormattedText,
		Language:    article.Language,
		Kind:        media.KindAudio,
		Voice:       &voice,
	})
	if err != nil {
		s.failBroadcast(ctx, broadcast, err.Error())

		return NewExternalError("generate media", "tts provider", err)
	}

	broadcast.AudioURL = audioResult.AudioURL
	broadcast.Duration = audioResult.Duration

	if avatar.VideoAvatarID == "" {
		broadcast.Status = models.BroadcastStatusReady

		if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
			return fmt.Errorf("failed to save broadcast: %w", err)
		}

		s.publishFinished(ctx, broadcast)

		return nil
	}

	videoResult, err := s.video.Generate(ctx, media.Request{
		BroadcastID: broadcast.ID,
		Text:        article.FormattedText,
		Language:    article.Language,
		Kind:        media.KindVideo,
		Video: &media.VideoSettings{
			AvatarID: avatar.VideoAvatarID,
			Quality:  defaultVideoQuality,
		},
	})
	if err != nil {
		s.failBroadcast(ctx, broadcast, err.Error())

		return NewExternalError("generate media", "video provider", err)
	}

	if videoResult.Async {
		broadcast.GenerationJobID = videoResult.JobID

		if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
			return fmt.Errorf("failed to save broadcast: %w", err)
		}

		s.logger.InfoContext(ctx, "video generation job started",
			"broadcast_id", broadcast.ID, "job_id", videoResult.JobID)

		return nil
	}

	broadcast.VideoURL = videoResult.VideoURL
	broadcast.Status = models.BroadcastStatusReady

	if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
		return fmt.Errorf("failed to save broadcast: %w", err)
	}

	s.publishFinished(ctx, broadcast)

	return nil
}

// ReconcilePending polls the video provider for every PREPARING
// broadcast with an open job and settles the ones that finished. It
// returns the number of broadcasts it moved to a new status.
func (s *Broadcasts) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := s.store.Broadcasts().ListPreparingWithJob(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending broadcasts: %w", err)
	}

	settled := 0

	for _, broadcast := range pending {
		status, err := s.poller.PollJob(ctx, broadcast.GenerationJobID)
		if err != nil {
			s.logger.WarnContext(ctx, "job poll failed",
				"broadcast_id", broadcast.ID, "job_id", broadcast.GenerationJobID, "error", err)

			continue
		}

		if !status.State.Terminal() {
			continue
		}

		switch status.State {
		case media.JobCompleted:
			broadcast.VideoURL = status.VideoURL
			broadcast.ThumbnailURL = status.ThumbnailURL
			if status.Duration > 0 {
				broadcast.Duration = status.Duration
			}
			broadcast.Status = models.BroadcastStatusReady
			broadcast.GenerationJobID = ""
		case media.JobFailed:
			broadcast.Status = models.BroadcastStatusFailed
			broadcast.FailureReason = status.Reason
			broadcast.GenerationJobID = ""
		}

		if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
			s.logger.ErrorContext(ctx, "failed to settle broadcast",
				"broadcast_id", broadcast.ID, "error", err)

			continue
		}

		if broadcast.Status == models.BroadcastStatusReady {
			s.publishFinished(ctx, broadcast)
		} else {
			s.publishFailed(ctx, broadcast)
		}

		settled++
	}

	return settled, nil
}

// Delete soft deletes a broadcast.
func (s *Broadcasts) Delete(ctx context.Context, id string) error {
	return s.store.Broadcasts().Delete(ctx, id)
}

func (s *Broadcasts) failBroadcast(ctx context.Context, broadcast *models.Broadcast, reason string) {
	broadcast.Status = models.BroadcastStatusFailed
	broadcast.FailureReason = reason

	if err := s.store.Broadcasts().Save(ctx, broadcast); err != nil {
		s.logger.ErrorContext(ctx, "failed to record broadcast failure",
			"broadcast_id", broadcast.ID, "error", err)

		return
	}

	s.publishFailed(ctx, broadcast)
}

func (s *Broadcasts) publishFinished(ctx context.Context, broadcast *models.Broadcast) {
	if s.publisher == nil {
		return
	}

	event := events.BroadcastMediaFinished{
		BaseEvent:   events.NewBaseEvent(events.BroadcastMediaFinishedEvent),
		BroadcastID: broadcast.ID,
		AudioURL:    broadcast.AudioURL,
		VideoURL:    broadcast.VideoURL,
		Duration:    broadcast.Duration,
	}

	if err := s.publisher.Publish(ctx, broadcast.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media finished event",
			"broadcast_id", broadcast.ID, "error", err)
	}
}

func (s *Broadcasts) publishFailed(ctx context.Context, broadcast *models.Broadcast) {
	if s.publisher == nil {
		return
	}

	event := events.BroadcastMediaFailed{
		BaseEvent:   events.NewBaseEvent(events.BroadcastMediaFailedEvent),
		BroadcastID: broadcast.ID,
		Reason:      broadcast.FailureReason,
	}

	if err := s.publisher.Publish(ctx, broadcast.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media failed event",
			"broadcast_id", broadcast.ID, "error", err)
	}
}
