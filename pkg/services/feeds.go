package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/newscast/pkg/cache"
	"github.com/dukex/newscast/pkg/clients/factcheck"
	"github.com/dukex/newscast/pkg/clients/summary"
	"github.com/dukex/newscast/pkg/eventbus"
	"github.com/dukex/newscast/pkg/events"
	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/rss"
)

// Feeds manages ingestion sources and the items pulled from them.
type Feeds struct {
	store     persistence.Persistence
	fetcher   rss.Fetcher
	scraper   rss.Scraper
	factCheck *factcheck.Client
	summary   *summary.Client
	publisher eventbus.EventPublisher
	cache     *cache.Cache
	logger    *slog.Logger
}

// NewFeeds creates the feed service. scraper, factCheck, summary and
// publisher may each be nil; the matching capability is then skipped
// or rejected per call.
func NewFeeds(
	store persistence.Persistence,
	fetcher rss.Fetcher,
	scraper rss.Scraper,
	fc *factcheck.Client,
	sum *summary.Client,
	publisher eventbus.EventPublisher,
	c *cache.Cache,
	logger *slog.Logger,
) *Feeds {
	return &Feeds{
		store:     store,
		fetcher:   fetcher,
		scraper:   scraper,
		factCheck: fc,
		summary:   sum,
		publisher: publisher,
		cache:     c,
		logger:    logger,
	}
}

// CreateFeedRequest registers a new ingestion source.
type CreateFeedRequest struct {
	Name             string `json:"name"             validate:"required,min=2"`
	URL              string `json:"url"              validate:"required,url"`
	Category         string `json:"category"`
	Language         string `json:"language"         validate:"required,min=2"`
	UpdateFrequency  int    `json:"update_frequency" validate:"required,min=1"`
	FactCheckEnabled bool   `json:"fact_check_enabled"`
	AISummaryEnabled bool   `json:"ai_summary_enabled"`
	ScrapeEnabled    bool   `json:"scrape_enabled"`
	CreatedBy        string `json:"created_by"`
}

// Create registers a feed. The URL must not already be registered.
func (s *Feeds) Create(ctx context.Context, req CreateFeedRequest) (*models.Feed, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("create feed", "invalid_feed", err.Error(), ErrInvalidRequest)
	}

	existing, err := s.store.Feeds().GetByURL(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check feed url: %w", err)
	}

	if existing != nil {
		return nil, &ServiceError{
			Op:      "create feed",
			Code:    "duplicate_feed_url",
			Message: fmt.Sprintf("a feed with url %s already exists", req.URL),
			Err:     ErrDuplicateFeedURL,
		}
	}

	feed := &models.Feed{
		Name:             req.Name,
		URL:              req.URL,
		Category:         req.Category,
		Language:         req.Language,
		UpdateFrequency:  req.UpdateFrequency,
		FactCheckEnabled: req.FactCheckEnabled,
		AISummaryEnabled: req.AISummaryEnabled,
		ScrapeEnabled:    req.ScrapeEnabled,
		IsActive:         true,
		CreatedBy:        req.CreatedBy,
		UpdatedBy:        req.CreatedBy,
	}

	if err := s.store.Feeds().Save(ctx, feed); err != nil {
		if persistence.IsDuplicate(err) {
			return nil, &ServiceError{
				Op:      "create feed",
				Code:    "duplicate_feed_url",
				Message: fmt.Sprintf("a feed with url %s already exists", req.URL),
				Err:     ErrDuplicateFeedURL,
			}
		}

		return nil, fmt.Errorf("failed to save feed: %w", err)
	}

	s.cache.Invalidate(ctx, cache.FeedsPattern())

	s.logger.InfoContext(ctx, "feed created", "feed_id", feed.ID, "url", feed.URL)

	return feed, nil
}

// UpdateFeedRequest carries editable feed fields; nil pointers leave
// the stored value untouched.
type UpdateFeedRequest struct {
	Name             *string `json:"name,omitempty"             validate:"omitempty,min=2"`
	Category         *string `json:"category,omitempty"`
	UpdateFrequency  *int    `json:"update_frequency,omitempty" validate:"omitempty,min=1"`
	FactCheckEnabled *bool   `json:"fact_check_enabled,omitempty"`
	AISummaryEnabled *bool   `json:"ai_summary_enabled,omitempty"`
	ScrapeEnabled    *bool   `json:"scrape_enabled,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
	UpdatedBy        string  `json:"updated_by"`
}

// Update edits a feed.
func (s *Feeds) Update(ctx context.Context, id string, req UpdateFeedRequest) (*models.Feed, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("update feed", "invalid_feed", err.Error(), ErrInvalidRequest)
	}

	feed, err := s.store.Feeds().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	if req.Name != nil {
		feed.Name = *req.Name
	}

	if req.Category != nil {
		feed.Category = *req.Category
	}

	if req.UpdateFrequency != nil {
		feed.UpdateFrequency = *req.UpdateFrequency
	}

	if req.FactCheckEnabled != nil {
		feed.FactCheckEnabled = *req.FactCheckEnabled
	}

	if req.AISummaryEnabled != nil {
		feed.AISummaryEnabled = *req.AISummaryEnabled
	}

	if req.ScrapeEnabled != nil {
		feed.ScrapeEnabled = *req.ScrapeEnabled
	}

	if req.IsActive != nil {
		feed.IsActive = *req.IsActive
	}

	feed.UpdatedBy = req.UpdatedBy

	if err := s.store.Feeds().Save(ctx, feed); err != nil {
		return nil, fmt.Errorf("failed to save feed: %w", err)
	}

	s.cache.Invalidate(ctx, cache.FeedsPattern())

	return feed, nil
}

// Get loads one feed.
func (s *Feeds) Get(ctx context.Context, id string) (*models.Feed, error) {
	return s.store.Feeds().GetByID(ctx, id)
}

// List returns feeds, optionally only active ones, served from the
// cache when possible.
func (s *Feeds) List(ctx context.Context, activeOnly bool) ([]*models.Feed, error) {
	key := cache.FeedsListKey(activeOnly)

	var cached []*models.Feed
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	feeds, err := s.store.Feeds().List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, feeds)

	return feeds, nil
}

// Delete soft deletes a feed.
func (s *Feeds) Delete(ctx context.Context, id string) error {
	if err := s.store.Feeds().Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.FeedsPattern())

	return nil
}

// DueFeeds returns active feeds whose refresh interval has elapsed.
func (s *Feeds) DueFeeds(ctx context.Context) ([]*models.Feed, error) {
	return s.store.Feeds().ListDue(ctx, time.Now().UTC())
}

// FetchFeed downloads a feed and stores the items not seen before.
// Items are deduplicated by (feed, original URL), so fetching an
// unchanged feed stores nothing. Returns the number of new items.
func (s *Feeds) FetchFeed(ctx context.Context, feedID string) (int, error) {
	feed, err := s.store.Feeds().GetByID(ctx, feedID)
	if err != nil {
		return 0, fmt.Errorf("failed to load feed: %w", err)
	}

	if !feed.IsActive {
		return 0, NewValidationError("fetch feed", "feed_inactive",
			fmt.Sprintf("feed %s is inactive", feed.ID), ErrFeedInactive)
	}

	items, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return 0, NewExternalError("fetch feed", "feed origin", err)
	}

	created := 0

	for _, item := range items {
		existing, err := s.store.FeedArticles().GetByFeedAndURL(ctx, feed.ID, item.OriginalURL)
		if err != nil {
			return created, fmt.Errorf("failed to check feed article: %w", err)
		}

		if existing != nil {
			continue
		}

		article := &models.FeedArticle{
			FeedID:          feed.ID,
			Title:           item.Title,
			Summary:         rss.HTMLToText(item.Summary),
			OriginalURL:     item.OriginalURL,
			PublishedAt:     item.PublishedAt,
			FactCheckStatus: models.FactCheckDisabled,
			IsActive:        true,
		}

		if feed.FactCheckEnabled {
			article.FactCheckStatus = models.FactCheckPending
		}

		if feed.ScrapeEnabled && s.scraper != nil {
			content, err := s.scraper.Scrape(ctx, item.OriginalURL)
			if err != nil {
				s.logger.WarnContext(ctx, "scrape failed, keeping feed summary",
					"feed_id", feed.ID, "url", item.OriginalURL, "error", err)
			} else {
				article.Content = content
			}
		}

		if err := s.store.FeedArticles().Save(ctx, article); err != nil {
			if persistence.IsDuplicate(err) {
				continue
			}

			return created, fmt.Errorf("failed to save feed article: %w", err)
		}

		created++
	}

	now := time.Now().UTC()
	feed.LastFetchedAt = &now

	if err := s.store.Feeds().Save(ctx, feed); err != nil {
		return created, fmt.Errorf("failed to record fetch time: %w", err)
	}

	s.cache.Invalidate(ctx, cache.FeedsPattern())

	if s.publisher != nil {
		event := events.FeedFetched{
			BaseEvent:    events.NewBaseEvent(events.FeedFetchedEvent),
			FeedID:       feed.ID,
			NewArticles:  created,
			TotalEntries: len(items),
		}

		if err := s.publisher.Publish(ctx, feed.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish feed fetched event",
				"feed_id", feed.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "feed fetched",
		"feed_id", feed.ID, "entries", len(items), "new", created)

	return created, nil
}

// FetchDue runs one ingestion pass over every due feed. Failures on
// individual feeds are logged and do not stop the pass.
func (s *Feeds) FetchDue(ctx context.Context) (int, error) {
	due, err := s.DueFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list due feeds: %w", err)
	}

	total := 0

	for _, feed := range due {
		n, err := s.FetchFeed(ctx, feed.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "feed fetch failed", "feed_id", feed.ID, "error", err)

			continue
		}

		total += n
	}

	return total, nil
}

// GetArticle loads one ingested item.
func (s *Feeds) GetArticle(ctx context.Context, id string) (*models.FeedArticle, error) {
	return s.store.FeedArticles().GetByID(ctx, id)
}

// ListArticles returns a page of ingested items.
func (s *Feeds) ListArticles(ctx context.Context, params persistence.ListFeedArticlesParams) (*persistence.ListResult[models.FeedArticle], error) {
	return s.store.FeedArticles().List(ctx, params)
}

// FactCheckArticle verifies an ingested item through the fact-check
// provider. Re-checking overwrites the previous verdict.
func (s *Feeds) FactCheckArticle(ctx context.Context, articleID string) (*models.FeedArticle, error) {
	article, err := s.store.FeedArticles().GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed article: %w", err)
	}

	feed, err := s.store.Feeds().GetByID(ctx, article.FeedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	if !feed.FactCheckEnabled || s.factCheck == nil {
		return nil, NewValidationError("fact check article", "fact_check_disabled",
			fmt.Sprintf("fact-checking is disabled for feed %s", feed.ID), ErrFactCheckDisabled)
	}

	content := article.Content
	if content == "" {
		content = article.Summary
	}

	verdict, err := s.factCheck.Check(ctx, article.Title, content, article.OriginalURL)
	if err != nil {
		return nil, NewExternalError("fact check article", "fact-check provider", err)
	}

	now := time.Now().UTC()
	article.FactCheckStatus = models.FactCheckStatus(verdict.Status)
	article.FactCheckResult = verdict.Details
	article.FactCheckedAt = &now

	if err := s.store.FeedArticles().Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save verdict: %w", err)
	}

	s.logger.InfoContext(ctx, "feed article fact-checked",
		"feed_article_id", article.ID, "status", article.FactCheckStatus)

	return article, nil
}

// SummarizeArticle generates an AI summary for an ingested item.
func (s *Feeds) SummarizeArticle(ctx context.Context, articleID string) (*models.FeedArticle, error) {
	article, err := s.store.FeedArticles().GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed article: %w", err)
	}

	feed, err := s.store.Feeds().GetByID(ctx, article.FeedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	if !feed.AISummaryEnabled || s.summary == nil {
		return nil, NewValidationError("summarize article", "summary_disabled",
			fmt.Sprintf("summaries are disabled for feed %s", feed.ID), ErrSummaryDisabled)
	}

	text := article.Content
	if text == "" {
		text = article.Summary
	}

	generated, err := s.summary.Summarize(ctx, text, feed.Language, summary.DefaultMaxLength)
	if err != nil {
		return nil, NewExternalError("summarize article", "summary provider", err)
	}

	now := time.Now().UTC()
	article.AISummary = generated
	article.AISummaryGeneratedAt = &now

	if err := s.store.FeedArticles().Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}

	return article, nil
}
