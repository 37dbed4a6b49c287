// Package search provides the four innovation-research source clients (web,
// academic, community, product) behind one Source interface, plus a Redis
// result cache and shared request throttling.
package search

import (
	"context"
	"html"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"
)

// Kind classifies what a search result points at.
type Kind string

const (
	// KindWeb is a general web page result.
	KindWeb Kind = "web"
	// KindPaper is an academic paper result.
	KindPaper Kind = "paper"
	// KindCommunity is a community discussion result.
	KindCommunity Kind = "community"
	// KindProduct is a product listing result.
	KindProduct Kind = "product"
)

// Result is one record returned by a source. Immutable once produced.
type Result struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Snippet     string   `json:"snippet"`
	Source      string   `json:"source"`
	Kind        Kind     `json:"kind"`
	DocumentURL string   `json:"document_url,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Published   string   `json:"published,omitempty"`
}

// Source is a single external search capability.
type Source interface {
	// Name identifies the source for logging and cache keys.
	Name() string
	// Search returns up to maxResults records in provider order.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

const defaultTimeout = 20 * time.Second

var snippetPolicy = bluemonday.StrictPolicy()

// sanitizeSnippet strips markup and entities from provider text before it
// reaches prompts or reports.
func sanitizeSnippet(s string) string {
	s = snippetPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// wait blocks on the limiter when one is configured.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
