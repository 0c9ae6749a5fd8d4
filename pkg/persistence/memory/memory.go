// Package memory provides an in-memory persistence implementation used
// for development mode and tests. It honors the same semantics as the
// PostgreSQL layer: soft deletes, uniqueness constraints and the atomic
// status promotion used for scheduling races.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
)

// Persistence implements persistence.Persistence with in-process maps.
type Persistence struct {
	mu sync.RWMutex

	articles     map[string]*models.Article
	broadcasts   map[string]*models.Broadcast
	avatars      map[string]*models.Avatar
	feeds        map[string]*models.Feed
	feedArticles map[string]*models.FeedArticle
	workflows    map[string]*models.Workflow
	executions   map[string]*models.Execution
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		articles:     make(map[string]*models.Article),
		broadcasts:   make(map[string]*models.Broadcast),
		avatars:      make(map[string]*models.Avatar),
		feeds:        make(map[string]*models.Feed),
		feedArticles: make(map[string]*models.FeedArticle),
		workflows:    make(map[string]*models.Workflow),
		executions:   make(map[string]*models.Execution),
	}
}

func (p *Persistence) Articles() persistence.ArticleRepository         { return &articleRepo{p} }
func (p *Persistence) Broadcasts() persistence.BroadcastRepository     { return &broadcastRepo{p} }
func (p *Persistence) Avatars() persistence.AvatarRepository           { return &avatarRepo{p} }
func (p *Persistence) Feeds() persistence.FeedRepository               { return &feedRepo{p} }
func (p *Persistence) FeedArticles() persistence.FeedArticleRepository { return &feedArticleRepo{p} }
func (p *Persistence) Workflows() persistence.WorkflowRepository       { return &workflowRepo{p} }
func (p *Persistence) Executions() persistence.ExecutionRepository     { return &executionRepo{p} }

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (p *Persistence) Close(ctx context.Context) error { return nil }

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}

	return id.String(), nil
}

type articleRepo struct{ p *Persistence }

func (r *articleRepo) Save(ctx context.Context, article *models.Article) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}

	article.UpdatedAt = now

	if article.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		article.ID = id
	}

	clone := *article
	r.p.articles[article.ID] = &clone

	return nil
}

func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	article, ok := r.p.articles[id]
	if !ok || article.DeletedAt != nil {
		return nil, persistence.ErrNotFound
	}

	clone := *article

	return &clone, nil
}

func (r *articleRepo) List(ctx context.Context, params persistence.ListArticlesParams) (*persistence.ListResult[models.Article], error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Article, 0)

	for _, article := range r.p.articles {
		if article.DeletedAt != nil {
			continue
		}

		if params.Status != "" && article.Status != params.Status {
			continue
		}

		if params.Priority != "" && article.Priority != params.Priority {
			continue
		}

		if params.Category != "" && article.Category != params.Category {
			continue
		}

		if params.Language != "" && article.Language != params.Language {
			continue
		}

		if params.Search != "" &&
			!strings.Contains(strings.ToLower(article.Title), strings.ToLower(params.Search)) &&
			!strings.Contains(strings.ToLower(article.Content), strings.ToLower(params.Search)) {
			continue
		}

		clone := *article
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	return paginate(matches, params.Page, params.Limit), nil
}

func (r *articleRepo) PromoteIfStatus(ctx context.Context, id string, from, to models.ArticleStatus) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	article, ok := r.p.articles[id]
	if !ok || article.DeletedAt != nil || article.Status != from {
		return false, nil
	}

	article.Status = to
	article.UpdatedAt = time.Now().UTC()

	return true, nil
}

func (r *articleRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	article, ok := r.p.articles[id]
	if !ok || article.DeletedAt != nil {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC()
	article.DeletedAt = &now

	return nil
}

type broadcastRepo struct{ p *Persistence }

func (r *broadcastRepo) Save(ctx context.Context, broadcast *models.Broadcast) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if broadcast.CreatedAt.IsZero() {
		broadcast.CreatedAt = now
	}

	broadcast.UpdatedAt = now

	if broadcast.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		broadcast.ID = id
	}

	clone := *broadcast
	r.p.broadcasts[broadcast.ID] = &clone

	return nil
}

func (r *broadcastRepo) GetByID(ctx context.Context, id string) (*models.Broadcast, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	broadcast, ok := r.p.broadcasts[id]
	if !ok || broadcast.DeletedAt != nil {
		return nil, persistence.ErrNotFound
	}

	clone := *broadcast

	return &clone, nil
}

func (r *broadcastRepo) List(ctx context.Context, params persistence.ListBroadcastsParams) (*persistence.ListResult[models.Broadcast], error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Broadcast, 0)

	for _, broadcast := range r.p.broadcasts {
		if broadcast.DeletedAt != nil {
			continue
		}

		if params.Status != "" && broadcast.Status != params.Status {
			continue
		}

		if params.Type != "" && broadcast.BroadcastType != params.Type {
			continue
		}

		if params.AvatarID != "" && broadcast.AvatarID != params.AvatarID {
			continue
		}

		if params.ArticleID != "" && broadcast.ArticleID != params.ArticleID {
			continue
		}

		clone := *broadcast
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ScheduledAt.Before(matches[j].ScheduledAt)
	})

	return paginate(matches, params.Page, params.Limit), nil
}

func (r *broadcastRepo) NextReadyForAvatar(ctx context.Context, avatarID string) (*models.BroadcastWithArticle, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	now := time.Now().UTC()

	var (
		best        *models.Broadcast
		bestArticle *models.Article
	)

	for _, broadcast := range r.p.broadcasts {
		if broadcast.DeletedAt != nil ||
			broadcast.AvatarID != avatarID ||
			broadcast.Status != models.BroadcastStatusReady ||
			broadcast.ScheduledAt.After(now) {
			continue
		}

		article, ok := r.p.articles[broadcast.ArticleID]
		if !ok {
			continue
		}

		if best == nil ||
			article.Priority.Rank() > bestArticle.Priority.Rank() ||
			(article.Priority.Rank() == bestArticle.Priority.Rank() &&
				broadcast.ScheduledAt.Before(best.ScheduledAt)) {
			best = broadcast
			bestArticle = article
		}
	}

	if best == nil {
		return nil, nil
	}

	avatar, ok := r.p.avatars[best.AvatarID]
	if !ok {
		return nil, persistence.ErrNotFound
	}

	return &models.BroadcastWithArticle{
		Broadcast: *best,
		Article:   *bestArticle,
		Avatar:    *avatar,
	}, nil
}

func (r *broadcastRepo) ListPreparingWithJob(ctx context.Context) ([]*models.Broadcast, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Broadcast, 0)

	for _, broadcast := range r.p.broadcasts {
		if broadcast.DeletedAt != nil ||
			broadcast.Status != models.BroadcastStatusPreparing ||
			broadcast.GenerationJobID == "" {
			continue
		}

		clone := *broadcast
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ScheduledAt.Before(matches[j].ScheduledAt)
	})

	return matches, nil
}

func (r *broadcastRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	broadcast, ok := r.p.broadcasts[id]
	if !ok || broadcast.DeletedAt != nil {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC()
	broadcast.DeletedAt = &now

	return nil
}

type avatarRepo struct{ p *Persistence }

func (r *avatarRepo) Save(ctx context.Context, avatar *models.Avatar) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if avatar.CreatedAt.IsZero() {
		avatar.CreatedAt = now
	}

	avatar.UpdatedAt = now

	if avatar.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		avatar.ID = id
	}

	clone := *avatar
	r.p.avatars[avatar.ID] = &clone

	return nil
}

func (r *avatarRepo) GetByID(ctx context.Context, id string) (*models.Avatar, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	avatar, ok := r.p.avatars[id]
	if !ok || avatar.DeletedAt != nil {
		return nil, persistence.ErrNotFound
	}

	clone := *avatar

	return &clone, nil
}

func (r *avatarRepo) List(ctx context.Context, activeOnly bool) ([]*models.Avatar, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Avatar, 0)

	for _, avatar := range r.p.avatars {
		if avatar.DeletedAt != nil {
			continue
		}

		if activeOnly && !avatar.IsActive {
			continue
		}

		clone := *avatar
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Name < matches[j].Name
	})

	return matches, nil
}

func (r *avatarRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	avatar, ok := r.p.avatars[id]
	if !ok || avatar.DeletedAt != nil {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC()
	avatar.DeletedAt = &now

	return nil
}

type feedRepo struct{ p *Persistence }

func (r *feedRepo) Save(ctx context.Context, feed *models.Feed) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, existing := range r.p.feeds {
		if existing.DeletedAt == nil && existing.URL == feed.URL && existing.ID != feed.ID {
			return fmt.Errorf("feeds_url_unique: %w", persistence.ErrDuplicate)
		}
	}

	now := time.Now().UTC()

	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = now
	}

	feed.UpdatedAt = now

	if feed.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		feed.ID = id
	}

	clone := *feed
	r.p.feeds[feed.ID] = &clone

	return nil
}

func (r *feedRepo) GetByID(ctx context.Context, id string) (*models.Feed, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	feed, ok := r.p.feeds[id]
	if !ok || feed.DeletedAt != nil {
		return nil, persistence.ErrNotFound
	}

	clone := *feed

	return &clone, nil
}

func (r *feedRepo) GetByURL(ctx context.Context, url string) (*models.Feed, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, feed := range r.p.feeds {
		if feed.DeletedAt == nil && feed.URL == url {
			clone := *feed

			return &clone, nil
		}
	}

	return nil, nil
}

func (r *feedRepo) List(ctx context.Context, activeOnly bool) ([]*models.Feed, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Feed, 0)

	for _, feed := range r.p.feeds {
		if feed.DeletedAt != nil {
			continue
		}

		if activeOnly && !feed.IsActive {
			continue
		}

		clone := *feed
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Name < matches[j].Name
	})

	return matches, nil
}

func (r *feedRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Feed, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Feed, 0)

	for _, feed := range r.p.feeds {
		if feed.DeletedAt != nil || !feed.IsActive {
			continue
		}

		if feed.LastFetchedAt != nil {
			next := feed.LastFetchedAt.Add(time.Duration(feed.UpdateFrequency) * time.Minute)
			if next.After(now) {
				continue
			}
		}

		clone := *feed
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		left, right := matches[i].LastFetchedAt, matches[j].LastFetchedAt
		if left == nil {
			return true
		}

		if right == nil {
			return false
		}

		return left.Before(*right)
	})

	return matches, nil
}

func (r *feedRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	feed, ok := r.p.feeds[id]
	if !ok || feed.DeletedAt != nil {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC()
	feed.DeletedAt = &now

	return nil
}

type feedArticleRepo struct{ p *Persistence }

func (r *feedArticleRepo) Save(ctx context.Context, item *models.FeedArticle) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, existing := range r.p.feedArticles {
		if existing.DeletedAt == nil &&
			existing.FeedID == item.FeedID &&
			existing.OriginalURL == item.OriginalURL &&
			existing.ID != item.ID {
			return fmt.Errorf("feed_articles_feed_url_unique: %w", persistence.ErrDuplicate)
		}
	}

	now := time.Now().UTC()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}

	item.UpdatedAt = now

	if item.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		item.ID = id
	}

	clone := *item
	r.p.feedArticles[item.ID] = &clone

	return nil
}

func (r *feedArticleRepo) GetByID(ctx context.Context, id string) (*models.FeedArticle, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	item, ok := r.p.feedArticles[id]
	if !ok || item.DeletedAt != nil {
		return nil, persistence.ErrNotFound
	}

	clone := *item

	return &clone, nil
}

func (r *feedArticleRepo) GetByFeedAndURL(ctx context.Context, feedID, originalURL string) (*models.FeedArticle, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, item := range r.p.feedArticles {
		if item.DeletedAt == nil && item.FeedID == feedID && item.OriginalURL == originalURL {
			clone := *item

			return &clone, nil
		}
	}

	return nil, nil
}

func (r *feedArticleRepo) List(ctx context.Context, params persistence.ListFeedArticlesParams) (*persistence.ListResult[models.FeedArticle], error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.FeedArticle, 0)

	for _, item := range r.p.feedArticles {
		if item.DeletedAt != nil {
			continue
		}

		if params.FeedID != "" && item.FeedID != params.FeedID {
			continue
		}

		if params.FactCheckStatus != "" && item.FactCheckStatus != params.FactCheckStatus {
			continue
		}

		clone := *item
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].PublishedAt.After(matches[j].PublishedAt)
	})

	return paginate(matches, params.Page, params.Limit), nil
}

func (r *feedArticleRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	item, ok := r.p.feedArticles[id]
	if !ok || item.DeletedAt != nil {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC()
	item.DeletedAt = &now

	return nil
}

type workflowRepo struct{ p *Persistence }

func (r *workflowRepo) Save(ctx context.Context, workflow *models.Workflow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, existing := range r.p.workflows {
		if existing.DeletedAt == nil && existing.Name == workflow.Name && existing.ID != workflow.ID {
			return fmt.Errorf("workflows_name_unique: %w", persistence.ErrDuplicate)
		}
	}

	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		workflow.ID = id
	}

	clone := *workflow
	r.p.workflows[workflow.ID] = &clone

	return nil
}

func (r *workflowRepo) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	workflow, ok := r.p.workflows[id]
	if !ok || workflow.DeletedAt != nil {
		return nil, persistence.ErrNotFound
	}

	clone := *workflow

	return &clone, nil
}

func (r *workflowRepo) GetByName(ctx context.Context, name string) (*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for _, workflow := range r.p.workflows {
		if workflow.DeletedAt == nil && workflow.Name == name {
			clone := *workflow

			return &clone, nil
		}
	}

	return nil, nil
}

func (r *workflowRepo) List(ctx context.Context, activeOnly bool) ([]*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Workflow, 0)

	for _, workflow := range r.p.workflows {
		if workflow.DeletedAt != nil {
			continue
		}

		if activeOnly && !workflow.IsActive {
			continue
		}

		clone := *workflow
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	return matches, nil
}

func (r *workflowRepo) Delete(ctx context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	workflow, ok := r.p.workflows[id]
	if !ok || workflow.DeletedAt != nil {
		return persistence.ErrNotFound
	}

	now := time.Now().UTC()
	workflow.DeletedAt = &now

	return nil
}

type executionRepo struct{ p *Persistence }

func (r *executionRepo) Save(ctx context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	if execution.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		execution.ID = id
	}

	clone := *execution
	r.p.executions[execution.ID] = &clone

	return nil
}

func (r *executionRepo) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}

	clone := *execution

	return &clone, nil
}

func (r *executionRepo) ListByWorkflow(ctx context.Context, workflowID string, page, limit int) (*persistence.ListResult[models.Execution], error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Execution, 0)

	for _, execution := range r.p.executions {
		if execution.WorkflowID != workflowID {
			continue
		}

		clone := *execution
		matches = append(matches, &clone)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartedAt.After(matches[j].StartedAt)
	})

	return paginate(matches, page, limit), nil
}

func paginate[T any](items []*T, page, limit int) *persistence.ListResult[T] {
	page, limit = persistence.NormalizePage(page, limit)

	total := len(items)
	start := (page - 1) * limit

	if start > total {
		start = total
	}

	end := start + limit
	if end > total {
		end = total
	}

	return &persistence.ListResult[T]{
		Items:      items[start:end],
		Pagination: persistence.NewPagination(page, limit, total),
	}
}
