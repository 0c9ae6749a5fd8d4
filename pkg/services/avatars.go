package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
)

// Avatars manages narration personas.
type Avatars struct {
	store  persistence.Persistence
	logger *slog.Logger
}

// NewAvatars creates the avatar service.
func NewAvatars(store persistence.Persistence, logger *slog.Logger) *Avatars {
	return &Avatars{store: store, logger: logger}
}

// CreateAvatarRequest registers a narration persona.
type CreateAvatarRequest struct {
	Name          string `json:"name"           validate:"required,min=2"`
	VoiceProvider string `json:"voice_provider" validate:"required"`
	VoiceID       string `json:"voice_id"       validate:"required"`
	VideoAvatarID string `json:"video_avatar_id"`
	Language      string `json:"language"       validate:"required,min=2"`
}

// Create registers an avatar, active by default.
func (s *Avatars) Create(ctx context.Context, req CreateAvatarRequest) (*models.Avatar, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("create avatar", "invalid_avatar", err.Error(), ErrInvalidRequest)
	}

	avatar := &models.Avatar{
		Name:          req.Name,
		VoiceProvider: req.VoiceProvider,
		VoiceID:       req.VoiceID,
		VideoAvatarID: req.VideoAvatarID,
		Language:      req.Language,
		IsActive:      true,
	}

	if err := s.store.Avatars().Save(ctx, avatar); err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	s.logger.InfoContext(ctx, "avatar created", "avatar_id", avatar.ID, "name", avatar.Name)

	return avatar, nil
}

// UpdateAvatarRequest carries editable avatar fields.
type UpdateAvatarRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=2"`
	VoiceID       *string `json:"voice_id,omitempty"`
	VideoAvatarID *string `json:"video_avatar_id,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// Update edits an avatar.
func (s *Avatars) Update(ctx context.Context, id string, req UpdateAvatarRequest) (*models.Avatar, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("update avatar", "invalid_avatar", err.Error(), ErrInvalidRequest)
	}

	avatar, err := s.store.Avatars().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load avatar: %w", err)
	}

	if req.Name != nil {
		avatar.Name = *req.Name
	}

	if req.VoiceID != nil {
		avatar.VoiceID = *req.VoiceID
	}

	if req.VideoAvatarID != nil {
		avatar.VideoAvatarID = *req.VideoAvatarID
	}

	if req.IsActive != nil {
		avatar.IsActive = *req.IsActive
	}

	if err := s.store.Avatars().Save(ctx, avatar); err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	return avatar, nil
}

// Get loads one avatar.
func (s *Avatars) Get(ctx context.Context, id string) (*models.Avatar, error) {
	return s.store.Avatars().GetByID(ctx, id)
}

// List returns avatars, optionally only active ones.
func (s *Avatars) List(ctx context.Context, activeOnly bool) ([]*models.Avatar, error) {
	return s.store.Avatars().List(ctx, activeOnly)
}

// Delete soft deletes an avatar.
func (s *Avatars) Delete(ctx context.Context, id string) error {
	return s.store.Avatars().Delete(ctx, id)
}
