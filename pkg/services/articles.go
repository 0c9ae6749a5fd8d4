package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/newscast/pkg/cache"
	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/tts"
)

var validate = validator.New()

// Articles manages the editorial article lifecycle. Speech text and
// duration are derived here so they never drift from the content.
type Articles struct {
	store  persistence.Persistence
	cache  *cache.Cache
	logger *slog.Logger
}

// NewArticles creates the article service.
func NewArticles(store persistence.Persistence, c *cache.Cache, logger *slog.Logger) *Articles {
	return &Articles{store: store, cache: c, logger: logger}
}

// HealthCheck checks the health of the persistence layer.
func (s *Articles) HealthCheck(ctx context.Context) (string, bool) {
	if s.store == nil {
		return "Persistence layer not initialized", false
	}

	err := s.store.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateArticleRequest carries the fields an editor submits.
type CreateArticleRequest struct {
	SourceID    string          `json:"source_id" validate:"required"`
	Title       string          `json:"title"     validate:"required,min=3"`
	Content     string          `json:"content"   validate:"required"`
	Summary     string          `json:"summary"`
	Category    string          `json:"category"`
	Priority    models.Priority `json:"priority"  validate:"required,oneof=LOW NORMAL HIGH URGENT"`
	Language    string          `json:"language"  validate:"required,min=2"`
	OriginalURL string          `json:"original_url"`
	ImageURL    string          `json:"image_url"`
	CreatedBy   string          `json:"created_by"`
}

// Create stores a new article in DRAFT with derived speech fields.
func (s *Articles) Create(ctx context.Context, req CreateArticleRequest) (*models.Article, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("create article", "invalid_article", err.Error(), ErrInvalidRequest)
	}

	formatted := tts.Normalize(req.Content, req.Language)

	article := &models.Article{
		SourceID:      req.SourceID,
		Title:         req.Title,
		Content:       req.Content,
		Summary:       req.Summary,
		FormattedText: formatted,
		Duration:      tts.EstimateDuration(formatted, tts.DefaultWordsPerMinute),
		Category:      req.Category,
		Priority:      req.Priority,
		Language:      req.Language,
		OriginalURL:   req.OriginalURL,
		ImageURL:      req.ImageURL,
		Status:        models.ArticleStatusDraft,
		CreatedBy:     req.CreatedBy,
		UpdatedBy:     req.CreatedBy,
	}

	if err := s.store.Articles().Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ArticlesPattern())

	s.logger.InfoContext(ctx, "article created",
		"article_id", article.ID, "priority", article.Priority, "duration", article.Duration)

	return article, nil
}

// UpdateArticleRequest carries editable fields; nil pointers leave the
// stored value untouched.
type UpdateArticleRequest struct {
	Title     *string          `json:"title,omitempty"    validate:"omitempty,min=3"`
	Content   *string          `json:"content,omitempty"  validate:"omitempty,min=1"`
	Summary   *string          `json:"summary,omitempty"`
	Category  *string          `json:"category,omitempty"`
	Priority  *models.Priority `json:"priority,omitempty" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	UpdatedBy string           `json:"updated_by"`
}

// Update edits an article. A content change recomputes the speech text
// and duration.
func (s *Articles) Update(ctx context.Context, id string, req UpdateArticleRequest) (*models.Article, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("update article", "invalid_article", err.Error(), ErrInvalidRequest)
	}

	article, err := s.store.Articles().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	if req.Title != nil {
		article.Title = *req.Title
	}

	if req.Summary != nil {
		article.Summary = *req.Summary
	}

	if req.Category != nil {
		article.Category = *req.Category
	}

	if req.Priority != nil {
		article.Priority = *req.Priority
	}

	if req.Content != nil && *req.Content != article.Content {
		article.Content = *req.Content
		article.FormattedText = tts.Normalize(article.Content, article.Language)
		article.Duration = tts.EstimateDuration(article.FormattedText, tts.DefaultWordsPerMinute)
	}

	article.UpdatedBy = req.UpdatedBy

	if err := s.store.Articles().Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ArticlesPattern())

	return article, nil
}

// Get loads one article.
func (s *Articles) Get(ctx context.Context, id string) (*models.Article, error) {
	return s.store.Articles().GetByID(ctx, id)
}

// List returns a page of articles. Plain status-filtered pages are
// served from the cache; any richer filter bypasses it.
func (s *Articles) List(ctx context.Context, params persistence.ListArticlesParams) (*persistence.ListResult[models.Article], error) {
	cacheable := params.Search == "" && params.Category == "" &&
		params.Language == "" && params.Priority == "" && params.SortBy == ""

	var key string

	if cacheable {
		key = cache.ArticlesListKey(params.Page, params.Limit, string(params.Status))

		var cached persistence.ListResult[models.Article]
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	result, err := s.store.Articles().List(ctx, params)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.Set(ctx, key, result)
	}

	return result, nil
}

// Approve moves an article to APPROVED. Approving an already approved
// article is a no-op; any other starting status is rejected.
func (s *Articles) Approve(ctx context.Context, id, updatedBy string, scheduledAt *time.Time) (*models.Article, error) {
	article, err := s.store.Articles().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	if article.Status == models.ArticleStatusApproved && scheduledAt == nil {
		return article, nil
	}

	if !article.Status.CanTransitionTo(models.ArticleStatusApproved) {
		return nil, NewValidationError("approve article", "illegal_transition",
			fmt.Sprintf("cannot approve article in status %s", article.Status), ErrIllegalTransition)
	}

	article.Status = models.ArticleStatusApproved
	article.UpdatedBy = updatedBy
	if scheduledAt != nil {
		article.ScheduledAt = scheduledAt
	}

	if err := s.store.Articles().Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ArticlesPattern())

	s.logger.InfoContext(ctx, "article approved", "article_id", article.ID)

	return article, nil
}

// Archive retires an article. Archiving is legal from every status
// except ARCHIVED itself.
func (s *Articles) Archive(ctx context.Context, id, updatedBy string) (*models.Article, error) {
	article, err := s.store.Articles().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	if !article.Status.CanTransitionTo(models.ArticleStatusArchived) {
		return nil, NewValidationError("archive article", "illegal_transition",
			fmt.Sprintf("cannot archive article in status %s", article.Status), ErrIllegalTransition)
	}

	article.Status = models.ArticleStatusArchived
	article.UpdatedBy = updatedBy

	if err := s.store.Articles().Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ArticlesPattern())

	return article, nil
}

// Delete soft deletes an article.
func (s *Articles) Delete(ctx context.Context, id string) error {
	if err := s.store.Articles().Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.ArticlesPattern())

	return nil
}
