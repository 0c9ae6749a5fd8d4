// Package persistence provides the data storage abstraction layer for
// articles, broadcasts, feeds and workflows.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/newscast/pkg/models"
)

// Persistence groups the per-entity repositories behind a single
// storage backend. Implementations share one connection and one
// transaction boundary per call.
type Persistence interface {
	Articles() ArticleRepository
	Broadcasts() BroadcastRepository
	Avatars() AvatarRepository
	Feeds() FeedRepository
	FeedArticles() FeedArticleRepository
	Workflows() WorkflowRepository
	Executions() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListArticlesParams filters and paginates article listings.
type ListArticlesParams struct {
	Status   models.ArticleStatus
	Priority models.Priority
	Category string
	Language string
	Search   string
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

// ArticleRepository stores editorial articles.
type ArticleRepository interface {
	Save(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, params ListArticlesParams) (*ListResult[models.Article], error)
	Delete(ctx context.Context, id string) error

	// PromoteIfStatus atomically moves an article from one status to
	// another. It reports false when the article was not in the
	// expected status, which lets concurrent callers race safely.
	PromoteIfStatus(ctx context.Context, id string, from, to models.ArticleStatus) (bool, error)
}

// ListBroadcastsParams filters and paginates broadcast listings.
type ListBroadcastsParams struct {
	Status    models.BroadcastStatus
	Type      models.BroadcastType
	AvatarID  string
	ArticleID string
	Page      int
	Limit     int
}

// BroadcastRepository stores scheduled broadcasts and their media state.
type BroadcastRepository interface {
	Save(ctx context.Context, broadcast *models.Broadcast) error
	GetByID(ctx context.Context, id string) (*models.Broadcast, error)
	List(ctx context.Context, params ListBroadcastsParams) (*ListResult[models.Broadcast], error)
	Delete(ctx context.Context, id string) error

	// NextReadyForAvatar returns the highest-priority ready broadcast
	// for an avatar, earliest scheduled first. A nil broadcast with a
	// nil error means nothing is ready.
	NextReadyForAvatar(ctx context.Context, avatarID string) (*models.BroadcastWithArticle, error)

	// ListPreparingWithJob returns broadcasts stuck in media
	// generation that carry an async provider job handle.
	ListPreparingWithJob(ctx context.Context) ([]*models.Broadcast, error)
}

// AvatarRepository stores presenter avatars.
type AvatarRepository interface {
	Save(ctx context.Context, avatar *models.Avatar) error
	GetByID(ctx context.Context, id string) (*models.Avatar, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Avatar, error)
	Delete(ctx context.Context, id string) error
}

// FeedRepository stores RSS feed subscriptions.
type FeedRepository interface {
	Save(ctx context.Context, feed *models.Feed) error
	GetByID(ctx context.Context, id string) (*models.Feed, error)
	GetByURL(ctx context.Context, url string) (*models.Feed, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Feed, error)
	Delete(ctx context.Context, id string) error

	// ListDue returns active feeds whose last fetch is older than
	// their update frequency, relative to now.
	ListDue(ctx context.Context, now time.Time) ([]*models.Feed, error)
}

// ListFeedArticlesParams filters and paginates ingested feed items.
type ListFeedArticlesParams struct {
	FeedID          string
	FactCheckStatus models.FactCheckStatus
	Page            int
	Limit           int
}

// FeedArticleRepository stores items ingested from RSS feeds. Items are
// unique per feed and original URL.
type FeedArticleRepository interface {
	Save(ctx context.Context, item *models.FeedArticle) error
	GetByID(ctx context.Context, id string) (*models.FeedArticle, error)
	GetByFeedAndURL(ctx context.Context, feedID, originalURL string) (*models.FeedArticle, error)
	List(ctx context.Context, params ListFeedArticlesParams) (*ListResult[models.FeedArticle], error)
	Delete(ctx context.Context, id string) error
}

// WorkflowRepository stores workflow definitions mirrored to the
// external automation engine.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetByName(ctx context.Context, name string) (*models.Workflow, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores workflow execution records.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string, page, limit int) (*ListResult[models.Execution], error)
}
