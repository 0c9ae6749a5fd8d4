package models

import "time"

// Avatar is a named voice/video persona used for narration. VoiceID is
// the TTS voice handle; VideoAvatarID the avatar-video provider handle
// (empty for audio-only personas).
type Avatar struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"           validate:"required,min=2"`
	VoiceProvider string     `json:"voice_provider" validate:"required"`
	VoiceID       string     `json:"voice_id"       validate:"required"`
	VideoAvatarID string     `json:"video_avatar_id,omitempty"`
	Language      string     `json:"language"       validate:"required,min=2"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}
