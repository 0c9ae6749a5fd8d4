package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/newscast/pkg/clients/factcheck"
	"github.com/dukex/newscast/pkg/clients/summary"
	"github.com/dukex/newscast/pkg/events"
	"github.com/dukex/newscast/pkg/models"
	"github.com/dukex/newscast/pkg/persistence"
	"github.com/dukex/newscast/pkg/persistence/memory"
	"github.com/dukex/newscast/pkg/rss"
)

func newFeedsService(store *memory.Persistence, fetcher rss.Fetcher, scraper rss.Scraper) *Feeds {
	return NewFeeds(store, fetcher, scraper, nil, nil, nil, nil, testLogger())
}

func seedFeed(t *testing.T, store *memory.Persistence, mutate func(*models.Feed)) *models.Feed {
	t.Helper()

	feed := &models.Feed{
		Name:            "Le Fil",
		URL:             "https://lefil.example.com/rss",
		Language:        "fr",
		UpdateFrequency: 30,
		IsActive:        true,
	}

	if mutate != nil {
		mutate(feed)
	}

	require.NoError(t, store.Feeds().Save(context.Background(), feed))

	return feed
}

func TestFeedsCreateRejectsDuplicateURL(t *testing.T) {
	store := memory.NewPersistence()
	svc := newFeedsService(store, &fakeFetcher{}, nil)

	_, err := svc.Create(context.Background(), CreateFeedRequest{
		Name:            "Le Fil",
		URL:             "https://lefil.example.com/rss",
		Language:        "fr",
		UpdateFrequency: 30,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateFeedRequest{
		Name:            "Le Fil bis",
		URL:             "https://lefil.example.com/rss",
		Language:        "fr",
		UpdateFrequency: 60,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateFeedURL)
	assert.True(t, IsConflictError(err))
}

func TestFeedsCreateRejectsInvalidURL(t *testing.T) {
	store := memory.NewPersistence()
	svc := newFeedsService(store, &fakeFetcher{}, nil)

	_, err := svc.Create(context.Background(), CreateFeedRequest{
		Name:            "Pas un flux",
		URL:             "not-a-url",
		Language:        "fr",
		UpdateFrequency: 30,
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestFeedsFetchStoresNewItemsOnly(t *testing.T) {
	store := memory.NewPersistence()
	fetcher := &fakeFetcher{items: []rss.Item{
		{Title: "Première dépêche", Summary: "<p>Résumé un</p>", OriginalURL: "https://lefil.example.com/a", PublishedAt: time.Now()},
		{Title: "Deuxième dépêche", Summary: "Résumé deux", OriginalURL: "https://lefil.example.com/b", PublishedAt: time.Now()},
	}}
	svc := newFeedsService(store, fetcher, nil)
	feed := seedFeed(t, store, nil)

	created, err := svc.FetchFeed(context.Background(), feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Re-fetching the unchanged feed stores nothing.
	created, err = svc.FetchFeed(context.Background(), feed.ID)
	require.NoError(t, err)
	assert.Zero(t, created)

	stored, err := store.Feeds().GetByID(context.Background(), feed.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastFetchedAt)

	page, err := store.FeedArticles().List(context.Background(), persistence.ListFeedArticlesParams{FeedID: feed.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	item, err := store.FeedArticles().GetByFeedAndURL(context.Background(), feed.ID, "https://lefil.example.com/a")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Résumé un", item.Summary)
	assert.Equal(t, models.FactCheckDisabled, item.FactCheckStatus)
}

func TestFeedsFetchMarksPendingWhenFactCheckEnabled(t *testing.T) {
	store := memory.NewPersistence()
	fetcher := &fakeFetcher{items: []rss.Item{
		{Title: "À vérifier", Summary: "Rumeur", OriginalURL: "https://lefil.example.com/r", PublishedAt: time.Now()},
	}}
	svc := newFeedsService(store, fetcher, nil)
	feed := seedFeed(t, store, func(f *models.Feed) { f.FactCheckEnabled = true })

	_, err := svc.FetchFeed(context.Background(), feed.ID)
	require.NoError(t, err)

	item, err := store.FeedArticles().GetByFeedAndURL(context.Background(), feed.ID, "https://lefil.example.com/r")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, models.FactCheckPending, item.FactCheckStatus)
}

func TestFeedsFetchScrapesFullContent(t *testing.T) {
	store := memory.NewPersistence()
	fetcher := &fakeFetcher{items: []rss.Item{
		{Title: "Article long", Summary: "Teaser", OriginalURL: "https://lefil.example.com/long", PublishedAt: time.Now()},
	}}
	scraper := &fakeScraper{content: "Le texte complet de l'article, bien plus long que le teaser."}
	svc := newFeedsService(store, fetcher, scraper)
	feed := seedFeed(t, store, func(f *models.Feed) { f.ScrapeEnabled = true })

	_, err := svc.FetchFeed(context.Background(), feed.ID)
	require.NoError(t, err)

	item, err := store.FeedArticles().GetByFeedAndURL(context.Background(), feed.ID, "https://lefil.example.com/long")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, scraper.content, item.Content)
}

func TestFeedsFetchRejectsInactiveFeed(t *testing.T) {
	store := memory.NewPersistence()
	svc := newFeedsService(store, &fakeFetcher{}, nil)
	feed := seedFeed(t, store, func(f *models.Feed) { f.IsActive = false })

	_, err := svc.FetchFeed(context.Background(), feed.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeedInactive)
}

func TestFeedsFetchPublishesEvent(t *testing.T) {
	store := memory.NewPersistence()
	fetcher := &fakeFetcher{items: []rss.Item{
		{Title: "Une", Summary: "s", OriginalURL: "https://lefil.example.com/1", PublishedAt: time.Now()},
	}}
	publisher := &fakePublisher{}
	svc := NewFeeds(store, fetcher, nil, nil, nil, publisher, nil, testLogger())
	feed := seedFeed(t, store, nil)

	_, err := svc.FetchFeed(context.Background(), feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, publisher.published(events.FeedFetchedEvent))
}

func TestFeedsFactCheckArticle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/check", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"DISPUTED","details":{"confidence":0.4}}`))
	}))
	defer server.Close()

	store := memory.NewPersistence()
	fc := factcheck.NewClient(server.URL, "test-key")
	svc := NewFeeds(store, &fakeFetcher{}, nil, fc, nil, nil, nil, testLogger())
	feed := seedFeed(t, store, func(f *models.Feed) { f.FactCheckEnabled = true })

	item := &models.FeedArticle{
		FeedID:          feed.ID,
		Title:           "Rumeur persistante",
		Summary:         "Une affirmation douteuse.",
		OriginalURL:     "https://lefil.example.com/rumeur",
		PublishedAt:     time.Now(),
		FactCheckStatus: models.FactCheckPending,
		IsActive:        true,
	}
	require.NoError(t, store.FeedArticles().Save(context.Background(), item))

	checked, err := svc.FactCheckArticle(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FactCheckDisputed, checked.FactCheckStatus)
	assert.Equal(t, 0.4, checked.FactCheckResult["confidence"])
	require.NotNil(t, checked.FactCheckedAt)
}

func TestFeedsFactCheckDisabled(t *testing.T) {
	store := memory.NewPersistence()
	svc := newFeedsService(store, &fakeFetcher{}, nil)
	feed := seedFeed(t, store, nil)

	item := &models.FeedArticle{
		FeedID:          feed.ID,
		Title:           "Sans vérification",
		OriginalURL:     "https://lefil.example.com/nocheck",
		PublishedAt:     time.Now(),
		FactCheckStatus: models.FactCheckDisabled,
		IsActive:        true,
	}
	require.NoError(t, store.FeedArticles().Save(context.Background(), item))

	_, err := svc.FactCheckArticle(context.Background(), item.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFactCheckDisabled)
}

func TestFeedsSummarizeArticle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/summarize", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":"Deux phrases qui disent tout."}`))
	}))
	defer server.Close()

	store := memory.NewPersistence()
	sum := summary.NewClient(server.URL, "test-key")
	svc := NewFeeds(store, &fakeFetcher{}, nil, nil, sum, nil, nil, testLogger())
	feed := seedFeed(t, store, func(f *models.Feed) { f.AISummaryEnabled = true })

	item := &models.FeedArticle{
		FeedID:      feed.ID,
		Title:       "Long développement",
		Content:     "Un long texte à condenser.",
		OriginalURL: "https://lefil.example.com/long2",
		PublishedAt: time.Now(),
		IsActive:    true,
	}
	require.NoError(t, store.FeedArticles().Save(context.Background(), item))

	summarized, err := svc.SummarizeArticle(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deux phrases qui disent tout.", summarized.AISummary)
	require.NotNil(t, summarized.AISummaryGeneratedAt)
}

func TestFeedsSummarizeDisabled(t *testing.T) {
	store := memory.NewPersistence()
	svc := newFeedsService(store, &fakeFetcher{}, nil)
	feed := seedFeed(t, store, nil)

	item := &models.FeedArticle{
		FeedID:      feed.ID,
		Title:       "Sans résumé",
		OriginalURL: "https://lefil.example.com/nosum",
		PublishedAt: time.Now(),
		IsActive:    true,
	}
	require.NoError(t, store.FeedArticles().Save(context.Background(), item))

	_, err := svc.SummarizeArticle(context.Background(), item.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSummaryDisabled)
}

func TestFeedsFetchDueSkipsFreshFeeds(t *testing.T) {
	store := memory.NewPersistence()
	fetcher := &fakeFetcher{items: []rss.Item{
		{Title: "Une", Summary: "s", OriginalURL: "https://due.example.com/1", PublishedAt: time.Now()},
	}}
	svc := newFeedsService(store, fetcher, nil)

	seedFeed(t, store, func(f *models.Feed) {
		f.Name = "Jamais récupéré"
		f.URL = "https://due.example.com/rss"
	})

	fresh := time.Now().UTC()
	seedFeed(t, store, func(f *models.Feed) {
		f.Name = "Tout frais"
		f.URL = "https://fresh.example.com/rss"
		f.LastFetchedAt = &fresh
	})

	total, err := svc.FetchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
