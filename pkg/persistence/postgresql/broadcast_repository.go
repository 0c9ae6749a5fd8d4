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

var broadcastColumns = []string{
	"id", "article_id", "avatar_id", "broadcast_type", "status",
	"scheduled_at", "generation_job_id", "failure_reason", "audio_url",
	"video_url", "thumbnail_url", "duration", "view_count", "started_at",
	"ended_at", "created_at", "updated_at", "deleted_at",
}

// BroadcastRepository handles broadcast-related database operations.
type BroadcastRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBroadcastRepository creates a new broadcast repository.
func NewBroadcastRepository(db *sql.DB, logger *slog.Logger) *BroadcastRepository {
	return &BroadcastRepository{db: db, logger: logger}
}

// Save inserts or updates a broadcast.
func (r *BroadcastRepository) Save(ctx context.Context, broadcast *models.Broadcast) error {
	now := time.Now().UTC()

	if broadcast.CreatedAt.IsZero() {
		broadcast.CreatedAt = now
	}

	broadcast.UpdatedAt = now

	if broadcast.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate broadcast ID: %w", err)
		}

		broadcast.ID = id.String()
	}

	query := `
		INSERT INTO broadcasts (id, article_id, avatar_id, broadcast_type, status,
			scheduled_at, generation_job_id, failure_reason, audio_url, video_url,
			thumbnail_url, duration, view_count, started_at, ended_at,
			created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			scheduled_at = EXCLUDED.scheduled_at,
			generation_job_id = EXCLUDED.generation_job_id,
			failure_reason = EXCLUDED.failure_reason,
			audio_url = EXCLUDED.audio_url,
			video_url = EXCLUDED.video_url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			duration = EXCLUDED.duration,
			view_count = EXCLUDED.view_count,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err := r.db.ExecContext(ctx, query,
		broadcast.ID,
		broadcast.ArticleID,
		broadcast.AvatarID,
		broadcast.BroadcastType,
		broadcast.Status,
		broadcast.ScheduledAt,
		broadcast.GenerationJobID,
		broadcast.FailureReason,
		broadcast.AudioURL,
		broadcast.VideoURL,
		broadcast.ThumbnailURL,
		broadcast.Duration,
		broadcast.ViewCount,
		broadcast.StartedAt,
		broadcast.EndedAt,
		broadcast.CreatedAt,
		broadcast.UpdatedAt,
		broadcast.DeletedAt,
	)
	if err != nil {
		return translateError("save broadcast", err)
	}

	return nil
}

// GetByID returns a broadcast by its ID or persistence.ErrNotFound.
func (r *BroadcastRepository) GetByID(ctx context.Context, id string) (*models.Broadcast, error) {
	query, args, err := psql.Select(broadcastColumns...).
		From("broadcasts").
		Where(sq.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build broadcast query: %w", err)
	}

	broadcast, err := scanBroadcast(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan broadcast: %w", err)
	}

	return broadcast, nil
}

// List returns a page of broadcasts matching the given filters.
func (r *BroadcastRepository) List(ctx context.Context, params persistence.ListBroadcastsParams) (*persistence.ListResult[models.Broadcast], error) {
	page, limit := persistence.NormalizePage(params.Page, params.Limit)

	where := sq.And{sq.Expr("deleted_at IS NULL")}

	if params.Status != "" {
		where = append(where, sq.Eq{"status": params.Status})
	}

	if params.Type != "" {
		where = append(where, sq.Eq{"broadcast_type": params.Type})
	}

	if params.AvatarID != "" {
		where = append(where, sq.Eq{"avatar_id": params.AvatarID})
	}

	if params.ArticleID != "" {
		where = append(where, sq.Eq{"article_id": params.ArticleID})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("broadcasts").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build broadcast count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count broadcasts: %w", err)
	}

	query, args, err := psql.Select(broadcastColumns...).
		From("broadcasts").
		Where(where).
		OrderBy("scheduled_at ASC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build broadcast list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query broadcasts: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	broadcasts := make([]*models.Broadcast, 0)

	for rows.Next() {
		broadcast, err := scanBroadcast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broadcast: %w", err)
		}

		broadcasts = append(broadcasts, broadcast)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating broadcasts: %w", err)
	}

	return &persistence.ListResult[models.Broadcast]{
		Items:      broadcasts,
		Pagination: persistence.NewPagination(page, limit, total),
	}, nil
}

// NextReadyForAvatar returns the next ready broadcast for an avatar:
// highest article priority first, then earliest scheduled. Returns
// (nil, nil) when nothing is ready.
func (r *BroadcastRepository) NextReadyForAvatar(ctx context.Context, avatarID string) (*models.BroadcastWithArticle, error) {
	query := `
		SELECT
			b.id, b.article_id, b.avatar_id, b.broadcast_type, b.status,
			b.scheduled_at, b.generation_job_id, b.failure_reason, b.audio_url,
			b.video_url, b.thumbnail_url, b.duration, b.view_count, b.started_at,
			b.ended_at, b.created_at, b.updated_at, b.deleted_at,
			a.id, a.source_id, a.title, a.content, a.summary, a.formatted_text,
			a.duration, a.category, a.priority, a.language, a.original_url,
			a.image_url, a.status, a.scheduled_at, a.broadcast_at, a.published_at,
			a.created_by, a.updated_by, a.created_at, a.updated_at, a.deleted_at,
			v.id, v.name, v.voice_provider, v.voice_id, v.video_avatar_id,
			v.language, v.is_active, v.created_at, v.updated_at, v.deleted_at
		FROM broadcasts b
		JOIN articles a ON a.id = b.article_id
		JOIN avatars v ON v.id = b.avatar_id
		WHERE b.avatar_id = $1
		  AND b.status = $2
		  AND b.scheduled_at <= NOW()
		  AND b.deleted_at IS NULL
		ORDER BY
			CASE a.priority
				WHEN 'URGENT' THEN 4
				WHEN 'HIGH' THEN 3
				WHEN 'NORMAL' THEN 2
				WHEN 'LOW' THEN 1
				ELSE 0
			END DESC,
			b.scheduled_at ASC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, avatarID, models.BroadcastStatusReady)

	var item models.BroadcastWithArticle

	err := row.Scan(
		&item.Broadcast.ID,
		&item.Broadcast.ArticleID,
		&item.Broadcast.AvatarID,
		&item.Broadcast.BroadcastType,
		&item.Broadcast.Status,
		&item.Broadcast.ScheduledAt,
		&item.Broadcast.GenerationJobID,
		&item.Broadcast.FailureReason,
		&item.Broadcast.AudioURL,
		&item.Broadcast.VideoURL,
		&item.Broadcast.ThumbnailURL,
		&item.Broadcast.Duration,
		&item.Broadcast.ViewCount,
		&item.Broadcast.StartedAt,
		&item.Broadcast.EndedAt,
		&item.Broadcast.CreatedAt,
		&item.Broadcast.UpdatedAt,
		&item.Broadcast.DeletedAt,
		&item.Article.ID,
		&item.Article.SourceID,
		&item.Article.Title,
		&item.Article.Content,
		&item.Article.Summary,
		&item.Article.FormattedText,
		&item.Article.Duration,
		&item.Article.Category,
		&item.Article.Priority,
		&item.Article.Language,
		&item.Article.OriginalURL,
		&item.Article.ImageURL,
		&item.Article.Status,
		&item.Article.ScheduledAt,
		&item.Article.BroadcastAt,
		&item.Article.PublishedAt,
		&item.Article.CreatedBy,
		&item.Article.UpdatedBy,
		&item.Article.CreatedAt,
		&item.Article.UpdatedAt,
		&item.Article.DeletedAt,
		&item.Avatar.ID,
		&item.Avatar.Name,
		&item.Avatar.VoiceProvider,
		&item.Avatar.VoiceID,
		&item.Avatar.VideoAvatarID,
		&item.Avatar.Language,
		&item.Avatar.IsActive,
		&item.Avatar.CreatedAt,
		&item.Avatar.UpdatedAt,
		&item.Avatar.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan next ready broadcast: %w", err)
	}

	return &item, nil
}

// ListPreparingWithJob returns broadcasts whose media generation is in
// flight on an async provider.
func (r *BroadcastRepository) ListPreparingWithJob(ctx context.Context) ([]*models.Broadcast, error) {
	query, args, err := psql.Select(broadcastColumns...).
		From("broadcasts").
		Where(sq.Eq{"status": models.BroadcastStatusPreparing}).
		Where("generation_job_id <> ''").
		Where("deleted_at IS NULL").
		OrderBy("scheduled_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build preparing broadcasts query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query preparing broadcasts: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	broadcasts := make([]*models.Broadcast, 0)

	for rows.Next() {
		broadcast, err := scanBroadcast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broadcast: %w", err)
		}

		broadcasts = append(broadcasts, broadcast)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating broadcasts: %w", err)
	}

	return broadcasts, nil
}

// Delete soft deletes a broadcast by setting deleted_at.
func (r *BroadcastRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE broadcasts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError("delete broadcast", err)
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

func scanBroadcast(row rowScanner) (*models.Broadcast, error) {
	var broadcast models.Broadcast

	err := row.Scan(
		&broadcast.ID,
		&broadcast.ArticleID,
		&broadcast.AvatarID,
		&broadcast.BroadcastType,
		&broadcast.Status,
		&broadcast.ScheduledAt,
		&broadcast.GenerationJobID,
		&broadcast.FailureReason,
		&broadcast.AudioURL,
		&broadcast.VideoURL,
		&broadcast.ThumbnailURL,
		&broadcast.Duration,
		&broadcast.ViewCount,
		&broadcast.StartedAt,
		&broadcast.EndedAt,
		&broadcast.CreatedAt,
		&broadcast.UpdatedAt,
		&broadcast.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &broadcast, nil
}
