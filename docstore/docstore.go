// Package docstore fetches document text over HTTP for indexing. HTML
// pages are reduced to readable text; plain text passes through.
package docstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/foursight-ai/foursight/log"
)

// Store resolves a URL to readable document text.
type Store interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// DefaultMaxBytes caps how much of a response body is read.
const DefaultMaxBytes = 2 << 20 // 2 MiB

// HTTPStore fetches documents over HTTP. Binary and otherwise
// unreadable content types are rejected rather than mangled.
type HTTPStore struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    log.Logger
}

// StoreOption configures an HTTPStore.
type StoreOption func(*HTTPStore)

// WithStoreHTTPClient sets a custom HTTP client.
func WithStoreHTTPClient(c *http.Client) StoreOption {
	return func(s *HTTPStore) { s.client = c }
}

// WithStoreMaxBytes caps the response body size.
func WithStoreMaxBytes(n int64) StoreOption {
	return func(s *HTTPStore) { s.maxBytes = n }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger log.Logger) StoreOption {
	return func(s *HTTPStore) { s.logger = logger }
}

// NewHTTPStore creates a document fetcher with sane limits.
func NewHTTPStore(opts ...StoreOption) *HTTPStore {
	s := &HTTPStore{
		client:    &http.Client{Timeout: 30 * time.Second},
		maxBytes:  DefaultMaxBytes,
		userAgent: "foursight/1.0",
		logger:    log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchText implements Store.
func (s *HTTPStore) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("docstore: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.1")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("docstore: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("docstore: %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return "", fmt.Errorf("docstore: failed to read body: %w", err)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType != "" {
		if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
			mediaType = parsed
		}
	}

	switch {
	case strings.Contains(mediaType, "html") || looksLikeHTML(body):
		text, err := extractHTMLText(body)
		if err != nil {
			s.logger.Warn("html extraction failed for %s, using raw text: %v", url, err)
			return collapseWhitespace(string(body)), nil
		}
		return text, nil
	case mediaType == "" || strings.HasPrefix(mediaType, "text/"):
		return collapseWhitespace(string(body)), nil
	default:
		return "", fmt.Errorf("docstore: unsupported content type %q for %s", mediaType, url)
	}
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// extractHTMLText keeps the readable body of a page and drops script,
// style, and navigation chrome.
func extractHTMLText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	root := doc.Find("article")
	if root.Length() == 0 {
		root = doc.Find("main")
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var parts []string
	root.Find("h1, h2, h3, h4, p, li, blockquote, pre, td").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return collapseWhitespace(root.Text()), nil
	}
	return collapseWhitespace(strings.Join(parts, "\n")), nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if t := strings.Join(strings.Fields(line), " "); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n")
}
