package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"fritter-circles/backend/pkg/logger"
)

// Preview is the link metadata extracted from a page referenced in a freet
// body. Every field is best-effort.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type cachedPreview struct {
	preview  *Preview
	fetched  time.Time
	fetchErr error
}

// Extractor fetches pages and extracts Open Graph / title metadata.
// Results are cached per URL with a TTL; failures are cached too so a dead
// link is not re-fetched on every feed refresh.
type Extractor struct {
	client   *http.Client
	maxBody  int64
	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[string]cachedPreview
	logger   *zap.Logger
}

// NewExtractor creates an extractor. timeout bounds each fetch, maxBody
// caps how much of a page is read.
func NewExtractor(timeout time.Duration, maxBody int64) *Extractor {
	return &Extractor{
		client:   &http.Client{Timeout: timeout},
		maxBody:  maxBody,
		cacheTTL: 15 * time.Minute,
		cache:    make(map[string]cachedPreview),
		logger:   logger.Get(),
	}
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// FirstURL returns the first http(s) URL in a freet body, or ""
func FirstURL(body string) string {
	return urlPattern.FindString(body)
}

// Fetch returns the preview for a URL, consulting the cache first
func (e *Extractor) Fetch(ctx context.Context, rawurl string) (*Preview, error) {
	e.mu.Lock()
	if cached, ok := e.cache[rawurl]; ok && time.Since(cached.fetched) < e.cacheTTL {
		e.mu.Unlock()
		return cached.preview, cached.fetchErr
	}
	e.mu.Unlock()

	preview, err := e.fetch(ctx, rawurl)

	e.mu.Lock()
	e.cache[rawurl] = cachedPreview{preview: preview, fetched: time.Now(), fetchErr: err}
	e.mu.Unlock()

	return preview, err
}

func (e *Extractor) fetch(ctx context.Context, rawurl string) (*Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid preview url: %w", err)
	}
	req.Header.Set("User-Agent", "fritter-circles-preview/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawurl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawurl)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return nil, fmt.Errorf("not an html page: %s", ct)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, e.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rawurl, err)
	}

	preview := Parse(doc)
	preview.URL = rawurl

	e.logger.Debug("Link preview fetched",
		zap.String("url", rawurl),
		zap.String("title", preview.Title),
	)

	return preview, nil
}

// Parse extracts preview fields from a parsed document, preferring Open
// Graph tags and falling back to the title tag and meta description.
func Parse(doc *goquery.Document) *Preview {
	preview := &Preview{
		Title:       metaContent(doc, `meta[property="og:title"]`),
		Description: metaContent(doc, `meta[property="og:description"]`),
		Image:       metaContent(doc, `meta[property="og:image"]`),
	}

	if preview.Title == "" {
		preview.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if preview.Description == "" {
		preview.Description = metaContent(doc, `meta[name="description"]`)
	}

	return preview
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}
