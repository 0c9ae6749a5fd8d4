package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
)

var feedArticleColumns = []string{
	"id", "feed_id", "title", "summary", "content", "original_url",
	"published_at", "fact_check_status", "fact_check_result",
	"fact_checked_at", "ai_summary", "ai_summary_generated_at",
	"is_active", "created_by", "updated_by", "created_at", "updated_at",
	"deleted_at",
}

// FeedArticleRepository handles ingested feed item database operations.
type FeedArticleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFeedArticleRepository creates a new feed article repository.
func NewFeedArticleRepository(db *sql.DB, logger *slog.Logger) *FeedArticleRepository {
	return &FeedArticleRepository{db: db, logger: logger}
}

// Save inserts or updates a feed article. The (feed_id, original_url)
// uniqueness constraint surfaces as persistence.ErrDuplicate.
func (r *FeedArticleRepository) Save(ctx context.Context, item *models.FeedArticle) error {
	now := time.Now().UTC()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}

	item.UpdatedAt = now

	if item.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate feed article ID: %w", err)
		}

		item.ID = id.String()
	}

	var factCheckJSON any
	if item.FactCheckResult != nil {
		data, err := json.Marshal(item.FactCheckResult)
		if err != nil {
			return fmt.Errorf("failed to marshal fact check result: %w", err)
		}

		factCheckJSON = data
	}

	query := `
		INSERT INTO feed_articles (id, feed_id, title, summary, content,
			original_url, published_at, fact_check_status, fact_check_result,
			fact_checked_at, ai_summary, ai_summary_generated_at, is_active,
			created_by, updated_by, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			content = EXCLUDED.content,
			published_at = EXCLUDED.published_at,
			fact_check_status = EXCLUDED.fact_check_status,
			fact_check_result = EXCLUDED.fact_check_result,
			fact_checked_at = EXCLUDED.fact_checked_at,
			ai_summary = EXCLUDED.ai_summary,
			ai_summary_generated_at = EXCLUDED.ai_summary_generated_at,
			is_active = EXCLUDED.is_active,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.FeedID,
		item.Title,
		item.Summary,
		item.Content,
		item.OriginalURL,
		item.PublishedAt,
		item.FactCheckStatus,
		factCheckJSON,
		item.FactCheckedAt,
		item.AISummary,
		item.AISummaryGeneratedAt,
		item.IsActive,
		item.CreatedBy,
		item.UpdatedBy,
		item.CreatedAt,
		item.UpdatedAt,
		item.DeletedAt,
	)
	if err != nil {
		return translateError("save feed article", err)
	}

	return nil
}

// GetByID returns a feed article by its ID or persistence.ErrNotFound.
func (r *FeedArticleRepository) GetByID(ctx context.Context, id string) (*models.FeedArticle, error) {
	query, args, err := psql.Select(feedArticleColumns...).
		From("feed_articles").
		Where(sq.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed article query: %w", err)
	}

	item, err := scanFeedArticle(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan feed article: %w", err)
	}

	return item, nil
}

// GetByFeedAndURL returns the item ingested from originalURL for a
// feed, or (nil, nil) when the URL has not been seen. This is the
// deduplication lookup on the ingestion path.
func (r *FeedArticleRepository) GetByFeedAndURL(ctx context.Context, feedID, originalURL string) (*models.FeedArticle, error) {
	query, args, err := psql.Select(feedArticleColumns...).
		From("feed_articles").
		Where(sq.Eq{"feed_id": feedID, "original_url": originalURL}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed article query: %w", err)
	}

	item, err := scanFeedArticle(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan feed article: %w", err)
	}

	return item, nil
}

// List returns a page of feed articles matching the given filters.
func (r *FeedArticleRepository) List(ctx context.Context, params persistence.ListFeedArticlesParams) (*persistence.ListResult[models.FeedArticle], error) {
	page, limit := persistence.NormalizePage(params.Page, params.Limit)

	where := sq.And{sq.Expr("deleted_at IS NULL")}

	if params.FeedID != "" {
		where = append(where, sq.Eq{"feed_id": params.FeedID})
	}

	if params.FactCheckStatus != "" {
		where = append(where, sq.Eq{"fact_check_status": params.FactCheckStatus})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("feed_articles").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed article count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count feed articles: %w", err)
	}

	query, args, err := psql.Select(feedArticleColumns...).
		From("feed_articles").
		Where(where).
		OrderBy("published_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed article list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed articles: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	items := make([]*models.FeedArticle, 0)

	for rows.Next() {
		item, err := scanFeedArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed article: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed articles: %w", err)
	}

	return &persistence.ListResult[models.FeedArticle]{
		Items:      items,
		Pagination: persistence.NewPagination(page, limit, total),
	}, nil
}

// Delete soft deletes a feed article by setting deleted_at.
func (r *FeedArticleRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE feed_articles SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError("delete feed article", err)
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

func scanFeedArticle(row rowScanner) (*models.FeedArticle, error) {
	var (
		item          models.FeedArticle
		factCheckJSON []byte
	)

	err := row.Scan(
		&item.ID,
		&item.FeedID,
		&item.Title,
		&item.Summary,
		&item.Content,
		&item.OriginalURL,
		&item.PublishedAt,
		&item.FactCheckStatus,
		&factCheckJSON,
		&item.FactCheckedAt,
		&item.AISummary,
		&item.AISummaryGeneratedAt,
		&item.IsActive,
		&item.CreatedBy,
		&item.UpdatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(factCheckJSON) > 0 {
		if err := json.Unmarshal(factCheckJSON, &item.FactCheckResult); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fact check result: %w", err)
		}
	}

	return &item, nil
}
