package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{
		"executions", "feed_articles", "broadcasts",
		"workflows", "feeds", "avatars", "articles", "schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("newscast_test"),
			postgres.WithUsername("newscast"),
			postgres.WithPassword("newscast"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx, databaseURL
}

func createTestAvatar(ctx context.Context, t *testing.T, store *postgresql.Persistence) *models.Avatar {
	t.Helper()

	avatar := &models.Avatar{
		Name:          "Claire",
		VoiceProvider: "elevenlabs",
		VoiceID:       "voice-claire",
		VideoAvatarID: "avatar-claire",
		Language:      "fr",
		IsActive:      true,
	}
	require.NoError(t, store.Avatars().Save(ctx, avatar))

	return avatar
}

func createTestArticle(ctx context.Context, t *testing.T, store *postgresql.Persistence, status models.ArticleStatus, priority models.Priority) *models.Article {
	t.Helper()

	article := &models.Article{
		SourceID: "manual",
		Title:    "Une annonce importante",
		Content:  "Le gouvernement a annoncé une réforme.",
		Priority: priority,
		Language: "fr",
		Status:   status,
	}
	require.NoError(t, store.Articles().Save(ctx, article))

	return article
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"articles", "broadcasts", "avatars", "feeds", "feed_articles", "workflows", "executions"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	assert.NoError(t, store.HealthCheck(ctx))
}

func TestArticleRepository_SaveAndGet(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	article := createTestArticle(ctx, t, store, models.ArticleStatusDraft, models.PriorityNormal)
	require.NotEmpty(t, article.ID)

	got, err := store.Articles().GetByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.Title, got.Title)
	assert.Equal(t, models.ArticleStatusDraft, got.Status)

	article.Title = "Titre corrigé"
	require.NoError(t, store.Articles().Save(ctx, article))

	got, err = store.Articles().GetByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, "Titre corrigé", got.Title)
}

func TestArticleRepository_GetByIDNotFound(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	_, err := store.Articles().GetByID(ctx, "0198a001-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestArticleRepository_ListFilters(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	draft := createTestArticle(ctx, t, store, models.ArticleStatusDraft, models.PriorityNormal)
	approved := createTestArticle(ctx, t, store, models.ArticleStatusApproved, models.PriorityHigh)

	result, err := store.Articles().List(ctx, persistence.ListArticlesParams{
		Status: models.ArticleStatusApproved,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, approved.ID, result.Items[0].ID)
	assert.Equal(t, 1, result.Pagination.Total)

	result, err = store.Articles().List(ctx, persistence.ListArticlesParams{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)

	require.NoError(t, store.Articles().Delete(ctx, draft.ID))

	result, err = store.Articles().List(ctx, persistence.ListArticlesParams{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestArticleRepository_PromoteIfStatus(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	article := createTestArticle(ctx, t, store, models.ArticleStatusApproved, models.PriorityNormal)

	promoted, err := store.Articles().PromoteIfStatus(ctx, article.ID, models.ArticleStatusApproved, models.ArticleStatusScheduled)
	require.NoError(t, err)
	assert.True(t, promoted)

	// Second promotion from the same status must lose the race.
	promoted, err = store.Articles().PromoteIfStatus(ctx, article.ID, models.ArticleStatusApproved, models.ArticleStatusScheduled)
	require.NoError(t, err)
	assert.False(t, promoted)

	got, err := store.Articles().GetByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArticleStatusScheduled, got.Status)
}

func TestBroadcastRepository_NextReadyForAvatar(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	avatar := createTestAvatar(ctx, t, store)
	normal := createTestArticle(ctx, t, store, models.ArticleStatusScheduled, models.PriorityNormal)
	urgent := createTestArticle(ctx, t, store, models.ArticleStatusScheduled, models.PriorityUrgent)

	past := time.Now().UTC().Add(-time.Hour)

	for _, articleID := range []string{normal.ID, urgent.ID} {
		broadcast := &models.Broadcast{
			ArticleID:     articleID,
			AvatarID:      avatar.ID,
			BroadcastType: models.BroadcastTypeRecorded,
			Status:        models.BroadcastStatusReady,
			ScheduledAt:   past,
		}
		require.NoError(t, store.Broadcasts().Save(ctx, broadcast))
	}

	next, err := store.Broadcasts().NextReadyForAvatar(ctx, avatar.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, urgent.ID, next.Article.ID, "urgent article should air first")
	assert.Equal(t, avatar.ID, next.Avatar.ID)
}

func TestBroadcastRepository_NextReadyForAvatarEmpty(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	avatar := createTestAvatar(ctx, t, store)

	next, err := store.Broadcasts().NextReadyForAvatar(ctx, avatar.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestBroadcastRepository_ListPreparingWithJob(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	avatar := createTestAvatar(ctx, t, store)
	article := createTestArticle(ctx, t, store, models.ArticleStatusScheduled, models.PriorityNormal)

	pending := &models.Broadcast{
		ArticleID:       article.ID,
		AvatarID:        avatar.ID,
		BroadcastType:   models.BroadcastTypeRecorded,
		Status:          models.BroadcastStatusPreparing,
		ScheduledAt:     time.Now().UTC(),
		GenerationJobID: "job-42",
	}
	require.NoError(t, store.Broadcasts().Save(ctx, pending))

	noJob := &models.Broadcast{
		ArticleID:     article.ID,
		AvatarID:      avatar.ID,
		BroadcastType: models.BroadcastTypeRecorded,
		Status:        models.BroadcastStatusPreparing,
		ScheduledAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Broadcasts().Save(ctx, noJob))

	preparing, err := store.Broadcasts().ListPreparingWithJob(ctx)
	require.NoError(t, err)
	require.Len(t, preparing, 1)
	assert.Equal(t, pending.ID, preparing[0].ID)
}

func TestFeedRepository_UniqueURL(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	feed := &models.Feed{
		Name:            "Le Monde",
		URL:             "https://lemonde.example.com/rss",
		Language:        "fr",
		UpdateFrequency: 30,
		IsActive:        true,
	}
	require.NoError(t, store.Feeds().Save(ctx, feed))

	duplicate := &models.Feed{
		Name:            "Le Monde bis",
		URL:             "https://lemonde.example.com/rss",
		Language:        "fr",
		UpdateFrequency: 30,
	}
	err := store.Feeds().Save(ctx, duplicate)
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	found, err := store.Feeds().GetByURL(ctx, feed.URL)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, feed.ID, found.ID)
}

func TestFeedRepository_ListDue(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	now := time.Now().UTC()
	staleTime := now.Add(-2 * time.Hour)
	freshTime := now.Add(-time.Minute)

	never := &models.Feed{Name: "Never fetched", URL: "https://a.example.com/rss", Language: "fr", UpdateFrequency: 60, IsActive: true}
	require.NoError(t, store.Feeds().Save(ctx, never))

	stale := &models.Feed{Name: "Stale", URL: "https://b.example.com/rss", Language: "fr", UpdateFrequency: 60, IsActive: true, LastFetchedAt: &staleTime}
	require.NoError(t, store.Feeds().Save(ctx, stale))

	fresh := &models.Feed{Name: "Fresh", URL: "https://c.example.com/rss", Language: "fr", UpdateFrequency: 60, IsActive: true, LastFetchedAt: &freshTime}
	require.NoError(t, store.Feeds().Save(ctx, fresh))

	inactive := &models.Feed{Name: "Inactive", URL: "https://d.example.com/rss", Language: "fr", UpdateFrequency: 60, IsActive: false}
	require.NoError(t, store.Feeds().Save(ctx, inactive))

	due, err := store.Feeds().ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)

	ids := []string{due[0].ID, due[1].ID}
	assert.Contains(t, ids, never.ID)
	assert.Contains(t, ids, stale.ID)
}

func TestFeedArticleRepository_Dedup(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	feed := &models.Feed{Name: "Source", URL: "https://s.example.com/rss", Language: "fr", UpdateFrequency: 30, IsActive: true}
	require.NoError(t, store.Feeds().Save(ctx, feed))

	item := &models.FeedArticle{
		FeedID:          feed.ID,
		Title:           "Première dépêche",
		OriginalURL:     "https://s.example.com/articles/1",
		PublishedAt:     time.Now().UTC(),
		FactCheckStatus: models.FactCheckPending,
		IsActive:        true,
	}
	require.NoError(t, store.FeedArticles().Save(ctx, item))

	duplicate := &models.FeedArticle{
		FeedID:          feed.ID,
		Title:           "Première dépêche (bis)",
		OriginalURL:     "https://s.example.com/articles/1",
		PublishedAt:     time.Now().UTC(),
		FactCheckStatus: models.FactCheckPending,
	}
	err := store.FeedArticles().Save(ctx, duplicate)
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	found, err := store.FeedArticles().GetByFeedAndURL(ctx, feed.ID, item.OriginalURL)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, item.ID, found.ID)

	missing, err := store.FeedArticles().GetByFeedAndURL(ctx, feed.ID, "https://s.example.com/articles/other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFeedArticleRepository_FactCheckResultRoundTrip(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	feed := &models.Feed{Name: "Source", URL: "https://s.example.com/rss", Language: "fr", UpdateFrequency: 30, IsActive: true}
	require.NoError(t, store.Feeds().Save(ctx, feed))

	checkedAt := time.Now().UTC().Truncate(time.Second)
	item := &models.FeedArticle{
		FeedID:          feed.ID,
		Title:           "Dépêche vérifiée",
		OriginalURL:     "https://s.example.com/articles/2",
		PublishedAt:     time.Now().UTC(),
		FactCheckStatus: models.FactCheckVerified,
		FactCheckResult: map[string]any{"score": 0.92, "source": "factcheck.example"},
		FactCheckedAt:   &checkedAt,
		IsActive:        true,
	}
	require.NoError(t, store.FeedArticles().Save(ctx, item))

	got, err := store.FeedArticles().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FactCheckVerified, got.FactCheckStatus)
	assert.Equal(t, "factcheck.example", got.FactCheckResult["source"])
	require.NotNil(t, got.FactCheckedAt)
}

func TestWorkflowRepository_SaveAndGetByName(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	workflow := &models.Workflow{
		Name:        "daily-digest",
		TriggerType: "schedule",
		Definition:  map[string]any{"nodes": []any{}, "connections": map[string]any{}},
	}
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	found, err := store.Workflows().GetByName(ctx, "daily-digest")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, workflow.ID, found.ID)
	assert.Contains(t, found.Definition, "nodes")

	missing, err := store.Workflows().GetByName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	duplicate := &models.Workflow{
		Name:        "daily-digest",
		TriggerType: "manual",
		Definition:  map[string]any{},
	}
	err = store.Workflows().Save(ctx, duplicate)
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestExecutionRepository_SaveAndList(t *testing.T) {
	store, ctx, _ := setupTestDB(t)

	workflow := &models.Workflow{
		Name:        "publish-article",
		TriggerType: "manual",
		Definition:  map[string]any{},
	}
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	execution := &models.Execution{
		WorkflowID:        workflow.ID,
		EngineExecutionID: "eng-1",
		Status:            models.ExecutionStatusRunning,
		InputData:         map[string]any{"articleId": "a-1"},
		TriggeredBy:       "editor@example.com",
		StartedAt:         time.Now().UTC(),
	}
	require.NoError(t, store.Executions().Save(ctx, execution))

	finished := time.Now().UTC()
	execution.Status = models.ExecutionStatusSuccess
	execution.OutputData = map[string]any{"published": true}
	execution.FinishedAt = &finished
	require.NoError(t, store.Executions().Save(ctx, execution))

	got, err := store.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, got.Status)
	assert.Equal(t, true, got.OutputData["published"])

	result, err := store.Executions().ListByWorkflow(ctx, workflow.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.Pagination.Total)
}
