// Package rss fetches and parses RSS/Atom feeds and optionally scrapes
// full article text from the origin pages.
package rss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Item is one entry of a parsed feed, already flattened to plain text.
type Item struct {
	Title       string
	Summary     string
	OriginalURL string
	PublishedAt time.Time
}

// Fetcher downloads and parses a feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]Item, error)
}

// GofeedFetcher parses RSS, Atom and JSON feeds.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a feed fetcher.
func NewFetcher() *GofeedFetcher {
	return &GofeedFetcher{parser: gofeed.NewParser()}
}

// Fetch downloads the feed at url and returns its entries. Entries
// without a link are skipped; they cannot be deduplicated.
func (f *GofeedFetcher) Fetch(ctx context.Context, url string) ([]Item, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}

	items := make([]Item, 0, len(feed.Items))

	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}

		publishedAt := time.Now().UTC()
		if entry.PublishedParsed != nil {
			publishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			publishedAt = entry.UpdatedParsed.UTC()
		}

		items = append(items, Item{
			Title:       strings.TrimSpace(entry.Title),
			Summary:     HTMLToText(summary),
			OriginalURL: entry.Link,
			PublishedAt: publishedAt,
		})
	}

	return items, nil
}

// HTMLToText flattens an HTML fragment to plain text. Invalid markup
// degrades to the raw input rather than failing the ingestion.
func HTMLToText(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
