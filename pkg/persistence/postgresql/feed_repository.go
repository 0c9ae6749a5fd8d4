package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
)

var feedColumns = []string{
	"id", "name", "url", "category", "language", "update_frequency",
	"fact_check_enabled", "ai_summary_enabled", "scrape_enabled",
	"is_active", "last_fetched_at", "created_by", "updated_by",
	"created_at", "updated_at", "deleted_at",
}

// FeedRepository handles feed-related database operations.
type FeedRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(db *sql.DB, logger *slog.Logger) *FeedRepository {
	return &FeedRepository{db: db, logger: logger}
}

// Save inserts or updates a feed.
func (r *FeedRepository) Save(ctx context.Context, feed *models.Feed) error {
	now := time.Now().UTC()

	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = now
	}

	feed.UpdatedAt = now

	if feed.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate feed ID: %w", err)
		}

		feed.ID = id.String()
	}

	query := `
		INSERT INTO feeds (id, name, url, category, language, update_frequency,
			fact_check_enabled, ai_summary_enabled, scrape_enabled, is_active,
			last_fetched_at, created_by, updated_by, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			category = EXCLUDED.category,
			language = EXCLUDED.language,
			update_frequency = EXCLUDED.update_frequency,
			fact_check_enabled = EXCLUDED.fact_check_enabled,
			ai_summary_enabled = EXCLUDED.ai_summary_enabled,
			scrape_enabled = EXCLUDED.scrape_enabled,
			is_active = EXCLUDED.is_active,
			last_fetched_at = EXCLUDED.last_fetched_at,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err := r.db.ExecContext(ctx, query,
		feed.ID,
		feed.Name,
		feed.URL,
		feed.Category,
		feed.Language,
		feed.UpdateFrequency,
		feed.FactCheckEnabled,
		feed.AISummaryEnabled,
		feed.ScrapeEnabled,
		feed.IsActive,
		feed.LastFetchedAt,
		feed.CreatedBy,
		feed.UpdatedBy,
		feed.CreatedAt,
		feed.UpdatedAt,
		feed.DeletedAt,
	)
	if err != nil {
		return translateError("save feed", err)
	}

	return nil
}

// GetByID returns a feed by its ID or persistence.ErrNotFound.
func (r *FeedRepository) GetByID(ctx context.Context, id string) (*models.Feed, error) {
	query, args, err := psql.Select(feedColumns...).
		From("feeds").
		Where(sq.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed query: %w", err)
	}

	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}

	return feed, nil
}

// GetByURL returns the feed subscribed to the given URL, or (nil, nil)
// when none exists. Used for duplicate URL checks.
func (r *FeedRepository) GetByURL(ctx context.Context, url string) (*models.Feed, error) {
	query, args, err := psql.Select(feedColumns...).
		From("feeds").
		Where(sq.Eq{"url": url}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed query: %w", err)
	}

	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}

	return feed, nil
}

// List returns all feeds, optionally only active ones.
func (r *FeedRepository) List(ctx context.Context, activeOnly bool) ([]*models.Feed, error) {
	builder := psql.Select(feedColumns...).
		From("feeds").
		Where("deleted_at IS NULL").
		OrderBy("name ASC")

	if activeOnly {
		builder = builder.Where(sq.Eq{"is_active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed list query: %w", err)
	}

	return r.queryFeeds(ctx, query, args...)
}

// ListDue returns active feeds whose last fetch is older than their
// update frequency. Never-fetched feeds are always due.
func (r *FeedRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Feed, error) {
	query, args, err := psql.Select(feedColumns...).
		From("feeds").
		Where(sq.Eq{"is_active": true}).
		Where("deleted_at IS NULL").
		Where(sq.Or{
			sq.Expr("last_fetched_at IS NULL"),
			sq.Expr("last_fetched_at + (update_frequency * INTERVAL '1 minute') <= ?", now),
		}).
		OrderBy("last_fetched_at ASC NULLS FIRST").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build due feeds query: %w", err)
	}

	return r.queryFeeds(ctx, query, args...)
}

func (r *FeedRepository) queryFeeds(ctx context.Context, query string, args ...any) ([]*models.Feed, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	feeds := make([]*models.Feed, 0)

	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}

		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feeds: %w", err)
	}

	return feeds, nil
}

// Delete soft deletes a feed by setting deleted_at.
func (r *FeedRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE feeds SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError("delete feed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func scanFeed(row rowScanner) (*models.Feed, error) {
	var feed models.Feed

	err := row.Scan(
		&feed.ID,
		&feed.Name,
		&feed.URL,
		&feed.Category,
		&feed.Language,
		&feed.UpdateFrequency,
		&feed.FactCheckEnabled,
		&feed.AISummaryEnabled,
		&feed.ScrapeEnabled,
		&feed.IsActive,
		&feed.LastFetchedAt,
		&feed.CreatedBy,
		&feed.UpdatedBy,
		&feed.CreatedAt,
		&feed.UpdatedAt,
		&feed.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &feed, nil
}
