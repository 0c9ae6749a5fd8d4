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

var articleColumns = []string{
	"id", "source_id", "title", "content", "summary", "formatted_text",
	"duration", "category", "priority", "language", "original_url",
	"image_url", "status", "scheduled_at", "broadcast_at", "published_at",
	"created_by", "updated_by", "created_at", "updated_at", "deleted_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ArticleRepository handles article-related database operations.
type ArticleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sql.DB, logger *slog.Logger) *ArticleRepository {
	return &ArticleRepository{db: db, logger: logger}
}

// Save inserts or updates an article.
func (r *ArticleRepository) Save(ctx context.Context, article *models.Article) error {
	now := time.Now().UTC()

	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}

	article.UpdatedAt = now

	if article.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate article ID: %w", err)
		}

		article.ID = id.String()
	}

	query := `
		INSERT INTO articles (id, source_id, title, content, summary, formatted_text,
			duration, category, priority, language, original_url, image_url, status,
			scheduled_at, broadcast_at, published_at, created_by, updated_by,
			created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			formatted_text = EXCLUDED.formatted_text,
			duration = EXCLUDED.duration,
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			language = EXCLUDED.language,
			original_url = EXCLUDED.original_url,
			image_url = EXCLUDED.image_url,
			status = EXCLUDED.status,
			scheduled_at = EXCLUDED.scheduled_at,
			broadcast_at = EXCLUDED.broadcast_at,
			published_at = EXCLUDED.published_at,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err := r.db.ExecContext(ctx, query,
		article.ID,
		article.SourceID,
		article.Title,
		article.Content,
		article.Summary,
		article.FormattedText,
		article.Duration,
		article.Category,
		article.Priority,
		article.Language,
		article.OriginalURL,
		article.ImageURL,
		article.Status,
		article.ScheduledAt,
		article.BroadcastAt,
		article.PublishedAt,
		article.CreatedBy,
		article.UpdatedBy,
		article.CreatedAt,
		article.UpdatedAt,
		article.DeletedAt,
	)
	if err != nil {
		return translateError("save article", err)
	}

	return nil
}

// GetByID returns an article by its ID or persistence.ErrNotFound.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	return article, nil
}

// List returns a page of articles matching the given filters.
func (r *ArticleRepository) List(ctx context.Context, params persistence.ListArticlesParams) (*persistence.ListResult[models.Article], error) {
	page, limit := persistence.NormalizePage(params.Page, params.Limit)

	where := r.listConditions(params)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("articles").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	query, args, err := psql.Select(articleColumns...).
		From("articles").
		Where(where).
		OrderBy(r.orderBy(params)).
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	articles := make([]*models.Article, 0)

	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return &persistence.ListResult[models.Article]{
		Items:      articles,
		Pagination: persistence.NewPagination(page, limit, total),
	}, nil
}

func (r *ArticleRepository) listConditions(params persistence.ListArticlesParams) sq.And {
	where := sq.And{sq.Expr("deleted_at IS NULL")}

	if params.Status != "" {
		where = append(where, sq.Eq{"status": params.Status})
	}

	if params.Priority != "" {
		where = append(where, sq.Eq{"priority": params.Priority})
	}

	if params.Category != "" {
		where = append(where, sq.Eq{"category": params.Category})
	}

	if params.Language != "" {
		where = append(where, sq.Eq{"language": params.Language})
	}

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"content": pattern},
		})
	}

	return where
}

// orderBy whitelists sortable columns; anything else falls back to
// newest first.
func (r *ArticleRepository) orderBy(params persistence.ListArticlesParams) string {
	column := "created_at"

	switch params.SortBy {
	case "title", "priority", "status", "scheduled_at", "updated_at", "created_at":
		column = params.SortBy
	}

	direction := "ASC"
	if params.SortDesc || params.SortBy == "" {
		direction = "DESC"
	}

	return column + " " + direction
}

// PromoteIfStatus atomically moves an article between statuses. The
// status check and the update are one statement, so of N concurrent
// callers exactly one observes true.
func (r *ArticleRepository) PromoteIfStatus(ctx context.Context, id string, from, to models.ArticleStatus) (bool, error) {
	query := `
		UPDATE articles
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, translateError("promote article", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Delete soft deletes an article by setting deleted_at.
func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE articles SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError("delete article", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var article models.Article

	err := row.Scan(
		&article.ID,
		&article.SourceID,
		&article.Title,
		&article.Content,
		&article.Summary,
		&article.FormattedText,
		&article.Duration,
		&article.Category,
		&article.Priority,
		&article.Language,
		&article.OriginalURL,
		&article.ImageURL,
		&article.Status,
		&article.ScheduledAt,
		&article.BroadcastAt,
		&article.PublishedAt,
		&article.CreatedBy,
		&article.UpdatedBy,
		&article.CreatedAt,
		&article.UpdatedAt,
		&article.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &article, nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
