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

var avatarColumns = []string{
	"id", "name", "voice_provider", "voice_id", "video_avatar_id",
	"language", "is_active", "created_at", "updated_at", "deleted_at",
}

// AvatarRepository handles avatar-related database operations.
type AvatarRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAvatarRepository creates a new avatar repository.
func NewAvatarRepository(db *sql.DB, logger *slog.Logger) *AvatarRepository {
	return &AvatarRepository{db: db, logger: logger}
}

// Save inserts or updates an avatar.
func (r *AvatarRepository) Save(ctx context.Context, avatar *models.Avatar) error {
	now := time.Now().UTC()

	if avatar.CreatedAt.IsZero() {
		avatar.CreatedAt = now
	}

	avatar.UpdatedAt = now

	if avatar.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate avatar ID: %w", err)
		}

		avatar.ID = id.String()
	}

	query := `
		INSERT INTO avatars (id, name, voice_provider, voice_id, video_avatar_id,
			language, is_active, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			voice_provider = EXCLUDED.voice_provider,
			voice_id = EXCLUDED.voice_id,
			video_avatar_id = EXCLUDED.video_avatar_id,
			language = EXCLUDED.language,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err := r.db.ExecContext(ctx, query,
		avatar.ID,
		avatar.Name,
		avatar.VoiceProvider,
		avatar.VoiceID,
		avatar.VideoAvatarID,
		avatar.Language,
		avatar.IsActive,
		avatar.CreatedAt,
		avatar.UpdatedAt,
		avatar.DeletedAt,
	)
	if err != nil {
		return translateError("save avatar", err)
	}

	return nil
}

// GetByID returns an avatar by its ID or persistence.ErrNotFound.
func (r *AvatarRepository) GetByID(ctx context.Context, id string) (*models.Avatar, error) {
	query, args, err := psql.Select(avatarColumns...).
		From("avatars").
		Where(sq.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build avatar query: %w", err)
	}

	avatar, err := scanAvatar(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan avatar: %w", err)
	}

	return avatar, nil
}

// List returns all avatars, optionally only active ones.
func (r *AvatarRepository) List(ctx context.Context, activeOnly bool) ([]*models.Avatar, error) {
	builder := psql.Select(avatarColumns...).
		From("avatars").
		Where("deleted_at IS NULL").
		OrderBy("name ASC")

	if activeOnly {
		builder = builder.Where(sq.Eq{"is_active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build avatar list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query avatars: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	avatars := make([]*models.Avatar, 0)

	for rows.Next() {
		avatar, err := scanAvatar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan avatar: %w", err)
		}

		avatars = append(avatars, avatar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating avatars: %w", err)
	}

	return avatars, nil
}

// Delete soft deletes an avatar by setting deleted_at.
func (r *AvatarRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE avatars SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError("delete avatar", err)
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

func scanAvatar(row rowScanner) (*models.Avatar, error) {
	var avatar models.Avatar

	err := row.Scan(
		&avatar.ID,
		&avatar.Name,
		&avatar.VoiceProvider,
		&avatar.VoiceID,
		&avatar.VideoAvatarID,
		&avatar.Language,
		&avatar.IsActive,
		&avatar.CreatedAt,
		&avatar.UpdatedAt,
		&avatar.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &avatar, nil
}
