package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukex/newscast/pkg/eventbus"
	"github.com/dukex/newscast/pkg/events"
	"github.com/dukex/newscast/pkg/media"
	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence/memory"
	"github.com/dukex/newscast/pkg/rss"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *fakePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *fakePublisher) published(eventType events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0

	for _, event := range p.events {
		if event.GetType() == eventType {
			count++
		}
	}

	return count
}

type fakeGenerator struct {
	mu     sync.Mutex
	result *media.Result
	err    error
	calls  []media.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req media.Request) (*media.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, req)

	if g.err != nil {
		return nil, g.err
	}

	return g.result, nil
}

type fakePoller struct {
	status *media.JobStatus
	err    error
}

func (p *fakePoller) PollJob(_ context.Context, _ string) (*media.JobStatus, error) {
	if p.err != nil {
		return nil, p.err
	}

	return p.status, nil
}

type fakeFetcher struct {
	items []rss.Item
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) ([]rss.Item, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.items, nil
}

type fakeScraper struct {
	content string
	err     error
}

func (s *fakeScraper) Scrape(_ context.Context, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	return s.content, nil
}

func seedAvatar(t *testing.T, store *memory.Persistence, videoAvatarID string) *models.Avatar {
	t.Helper()

	avatar := &models.Avatar{
		Name:          "Claire",
		VoiceProvider: "elevenlabs",
		VoiceID:       "voice-fr-1",
		VideoAvatarID: videoAvatarID,
		Language:      "fr",
		IsActive:      true,
	}
	require.NoError(t, store.Avatars().Save(context.Background(), avatar))

	return avatar
}

func seedApprovedArticle(t *testing.T, store *memory.Persistence) *models.Article {
	t.Helper()

	article := &models.Article{
		SourceID:      "manual",
		Title:         "Grève des transports reconduite",
		Content:       "La grève des transports est reconduite pour 48 heures.",
		FormattedText: "La grève des transports est reconduite pour 48 heures.",
		Duration:      30,
		Priority:      models.PriorityNormal,
		Language:      "fr",
		Status:        models.ArticleStatusApproved,
	}
	require.NoError(t, store.Articles().Save(context.Background(), article))

	return article
}
