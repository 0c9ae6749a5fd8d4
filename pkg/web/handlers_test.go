package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence/memory"
	"github.com/dukex/newscast/pkg/services"
	"github.com/dukex/newscast/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	articles := services.NewArticles(store, nil, logger)
	broadcasts := services.NewBroadcasts(store, nil, nil, nil, nil, nil, logger)
	avatars := services.NewAvatars(store, logger)
	feeds := services.NewFeeds(store, nil, nil, nil, nil, nil, nil, logger)

	handlers := web.NewAPIHandlers(articles, broadcasts, avatars, feeds, nil)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) *http.Response {
	t.Helper()

	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func TestCreateArticleEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/articles/", services.CreateArticleRequest{
		SourceID: "manual",
		Title:    "Canicule annoncée",
		Content:  "Les températures dépasseront 35 degrés demain.",
		Priority: models.PriorityHigh,
		Language: "fr",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	article := decode[models.Article](t, resp)
	assert.NotEmpty(t, article.ID)
	assert.Equal(t, models.ArticleStatusDraft, article.Status)
	assert.NotEmpty(t, article.FormattedText)
}

func TestCreateArticleEndpointRejectsInvalid(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/articles/", map[string]any{
		"source_id": "manual",
		"title":     "Sans contenu",
		"priority":  "HIGH",
		"language":  "fr",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	problem := decode[map[string]any](t, resp)
	assert.Equal(t, "validation_error", problem["type"])
}

func TestGetArticleEndpointNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/articles/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApproveAndScheduleFlow(t *testing.T) {
	app, store := setupTestApp(t)

	avatar := &models.Avatar{
		Name:          "Claire",
		VoiceProvider: "elevenlabs",
		VoiceID:       "voice-1",
		Language:      "fr",
		IsActive:      true,
	}
	require.NoError(t, store.Avatars().Save(context.Background(), avatar))

	resp := doJSON(t, app, http.MethodPost, "/articles/", services.CreateArticleRequest{
		SourceID: "manual",
		Title:    "Résultats des élections",
		Content:  "Le dépouillement est terminé.",
		Priority: models.PriorityUrgent,
		Language: "fr",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	article := decode[models.Article](t, resp)

	resp = doJSON(t, app, http.MethodPost, "/articles/"+article.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/broadcasts/", services.ScheduleRequest{
		ArticleID:     article.ID,
		AvatarID:      avatar.ID,
		BroadcastType: models.BroadcastTypeLive,
		ScheduledAt:   time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// LIVE broadcasts skip pre-rendering and are ready right away.
	broadcast := decode[models.Broadcast](t, resp)
	assert.Equal(t, models.BroadcastStatusReady, broadcast.Status)

	// The article is no longer APPROVED, so a second schedule is rejected.
	resp = doJSON(t, app, http.MethodPost, "/broadcasts/", services.ScheduleRequest{
		ArticleID:     article.ID,
		AvatarID:      avatar.ID,
		BroadcastType: models.BroadcastTypeLive,
		ScheduledAt:   time.Now().Add(2 * time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScheduleUnapprovedArticleEndpoint(t *testing.T) {
	app, store := setupTestApp(t)

	avatar := &models.Avatar{
		Name:          "Claire",
		VoiceProvider: "elevenlabs",
		VoiceID:       "voice-1",
		Language:      "fr",
		IsActive:      true,
	}
	require.NoError(t, store.Avatars().Save(context.Background(), avatar))

	article := &models.Article{
		SourceID: "manual",
		Title:    "Brouillon",
		Content:  "Pas encore validé.",
		Priority: models.PriorityNormal,
		Language: "fr",
		Status:   models.ArticleStatusDraft,
	}
	require.NoError(t, store.Articles().Save(context.Background(), article))

	resp := doJSON(t, app, http.MethodPost, "/broadcasts/", services.ScheduleRequest{
		ArticleID:     article.ID,
		AvatarID:      avatar.ID,
		BroadcastType: models.BroadcastTypeLive,
		ScheduledAt:   time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetNextBroadcastEndpointEmpty(t *testing.T) {
	app, store := setupTestApp(t)

	avatar := &models.Avatar{
		Name:          "Claire",
		VoiceProvider: "elevenlabs",
		VoiceID:       "voice-1",
		Language:      "fr",
		IsActive:      true,
	}
	require.NoError(t, store.Avatars().Save(context.Background(), avatar))

	resp := doJSON(t, app, http.MethodGet, "/broadcasts/next/"+avatar.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestListArticlesEndpointPagination(t *testing.T) {
	app, store := setupTestApp(t)

	for range 3 {
		article := &models.Article{
			SourceID: "manual",
			Title:    "Dépêche répétée",
			Content:  "Contenu.",
			Priority: models.PriorityNormal,
			Language: "fr",
			Status:   models.ArticleStatusDraft,
		}
		require.NoError(t, store.Articles().Save(context.Background(), article))
	}

	resp := doJSON(t, app, http.MethodGet, "/articles/?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]json.RawMessage](t, resp)

	var pagination struct {
		Total      int  `json:"total"`
		TotalPages int  `json:"totalPages"`
		HasNext    bool `json:"hasNext"`
	}
	require.NoError(t, json.Unmarshal(body["pagination"], &pagination))

	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)
	assert.True(t, pagination.HasNext)
}

func TestFeedEndpoints(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/feeds/", services.CreateFeedRequest{
		Name:            "Le Fil",
		URL:             "https://lefil.example.com/rss",
		Language:        "fr",
		UpdateFrequency: 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	feed := decode[models.Feed](t, resp)
	assert.True(t, feed.IsActive)

	// URL uniqueness surfaces as 409.
	resp = doJSON(t, app, http.MethodPost, "/feeds/", services.CreateFeedRequest{
		Name:            "Doublon",
		URL:             "https://lefil.example.com/rss",
		Language:        "fr",
		UpdateFrequency: 15,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	inactive := false
	resp = doJSON(t, app, http.MethodPatch, "/feeds/"+feed.ID, services.UpdateFeedRequest{
		IsActive: &inactive,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Feed](t, resp)
	assert.False(t, updated.IsActive)

	resp = doJSON(t, app, http.MethodDelete, "/feeds/"+feed.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/feeds/"+feed.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAvatarEndpoints(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/avatars/", services.CreateAvatarRequest{
		Name:          "Claire",
		VoiceProvider: "elevenlabs",
		VoiceID:       "voice-1",
		Language:      "fr",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	avatar := decode[models.Avatar](t, resp)
	assert.True(t, avatar.IsActive)

	resp = doJSON(t, app, http.MethodGet, "/avatars/?active_only=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listing := decode[struct {
		Avatars []models.Avatar `json:"avatars"`
	}](t, resp)
	require.Len(t, listing.Avatars, 1)
	assert.Equal(t, "Claire", listing.Avatars[0].Name)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBroadcastStatusEndpointRejectsIllegalTransition(t *testing.T) {
	app, store := setupTestApp(t)

	avatar := &models.Avatar{
		Name:          "Claire",
		VoiceProvider: "elevenlabs",
		VoiceID:       "voice-1",
		Language:      "fr",
		IsActive:      true,
	}
	require.NoError(t, store.Avatars().Save(context.Background(), avatar))

	article := &models.Article{
		SourceID: "manual",
		Title:    "Programmé",
		Content:  "Contenu.",
		Priority: models.PriorityNormal,
		Language: "fr",
		Status:   models.ArticleStatusScheduled,
	}
	require.NoError(t, store.Articles().Save(context.Background(), article))

	broadcast := &models.Broadcast{
		ArticleID:     article.ID,
		AvatarID:      avatar.ID,
		BroadcastType: models.BroadcastTypeRecorded,
		Status:        models.BroadcastStatusScheduled,
		ScheduledAt:   time.Now(),
	}
	require.NoError(t, store.Broadcasts().Save(context.Background(), broadcast))

	resp := doJSON(t, app, http.MethodPatch, "/broadcasts/"+broadcast.ID+"/status", map[string]string{
		"status": "COMPLETED",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPatch, "/broadcasts/"+broadcast.ID+"/status", map[string]string{
		"status": "READY",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ready := decode[models.Broadcast](t, resp)
	assert.Equal(t, models.BroadcastStatusReady, ready.Status)
}
