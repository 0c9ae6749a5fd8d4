package rss_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/newscast/pkg/rss"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Dépêches</title>
    <item>
      <title>Première dépêche</title>
      <link>https://news.example.com/articles/1</link>
      <description><![CDATA[<p>Un <b>résumé</b> avec du balisage.</p>]]></description>
      <pubDate>Mon, 24 Aug 2026 08:30:00 GMT</pubDate>
    </item>
    <item>
      <title>Sans lien</title>
      <description>Ignorée</description>
    </item>
    <item>
      <title>Deuxième dépêche</title>
      <link>https://news.example.com/articles/2</link>
      <description>Texte simple</description>
    </item>
  </channel>
</rss>`

func TestGofeedFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer server.Close()

	fetcher := rss.NewFetcher()

	items, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, items, 2, "entries without a link are skipped")

	first := items[0]
	assert.Equal(t, "Première dépêche", first.Title)
	assert.Equal(t, "https://news.example.com/articles/1", first.OriginalURL)
	assert.Equal(t, "Un résumé avec du balisage.", first.Summary)
	assert.Equal(t, time.Date(2026, 8, 24, 8, 30, 0, 0, time.UTC), first.PublishedAt)

	// Missing pubDate falls back to the fetch time.
	assert.WithinDuration(t, time.Now().UTC(), items[1].PublishedAt, time.Minute)
}

func TestGofeedFetcherInvalidFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer server.Close()

	fetcher := rss.NewFetcher()

	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "Un résumé avec du balisage.",
		rss.HTMLToText("<p>Un  <b>résumé</b>\navec du balisage.</p>"))
	assert.Equal(t, "", rss.HTMLToText(""))
	assert.Equal(t, "déjà du texte", rss.HTMLToText("déjà du texte"))
}

func TestReadabilityScraperScrape(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Article</title></head>
<body>
  <nav>Menu Accueil Contact</nav>
  <article>
    <h1>Le titre de la page</h1>
    <p>Le premier paragraphe du contenu principal, suffisamment long pour être retenu par l'extracteur de contenu.</p>
    <p>Le second paragraphe continue le même article avec encore davantage de texte utile à extraire.</p>
  </article>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	scraper := rss.NewScraper()

	text, err := scraper.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "premier paragraphe")
	assert.Contains(t, text, "second paragraphe")
}

func TestReadabilityScraperHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	scraper := rss.NewScraper()

	_, err := scraper.Scrape(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}
