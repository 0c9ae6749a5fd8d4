package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const scrapeTimeout = 20 * time.Second

// Scraper extracts the readable article text from an origin page.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (string, error)
}

// ReadabilityScraper fetches a page and strips it down to its main
// article content.
type ReadabilityScraper struct {
	client *http.Client
}

// NewScraper creates a page scraper.
func NewScraper() *ReadabilityScraper {
	return &ReadabilityScraper{client: &http.Client{Timeout: scrapeTimeout}}
}

// Scrape downloads pageURL and returns the extracted article text.
func (s *ReadabilityScraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build scrape request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page %s: %w", pageURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page %s returned status %d", pageURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("failed to extract article from %s: %w", pageURL, err)
	}

	return article.TextContent, nil
}
