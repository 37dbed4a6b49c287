package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// ArxivSource searches academic papers through the arXiv Atom API.
type ArxivSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// ArxivOption configures an ArxivSource.
type ArxivOption func(*ArxivSource)

// WithArxivBaseURL overrides the API endpoint, mainly for tests.
func WithArxivBaseURL(u string) ArxivOption {
	return func(a *ArxivSource) { a.baseURL = u }
}

// WithArxivHTTPClient sets a custom HTTP client.
func WithArxivHTTPClient(c *http.Client) ArxivOption {
	return func(a *ArxivSource) { a.client = c }
}

// WithArxivLimiter sets a shared rate limiter.
func WithArxivLimiter(l *rate.Limiter) ArxivOption {
	return func(a *ArxivSource) { a.limiter = l }
}

// NewArxivSource creates an academic paper source. The arXiv API needs no key.
func NewArxivSource(opts ...ArxivOption) *ArxivSource {
	a := &ArxivSource{
		baseURL: "https://export.arxiv.org/api/query",
		client:  defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements Source.
func (a *ArxivSource) Name() string { return "academic" }

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href string `xml:"href,attr"`
		Type string `xml:"type,attr"`
	} `xml:"link"`
}

// Search implements Source.
func (a *ArxivSource) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	if err := wait(ctx, a.limiter); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to unmarshal feed: %w", err)
	}

	results := make([]Result, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if len(results) >= maxResults {
			break
		}
		authors := make([]string, 0, len(entry.Authors))
		for _, au := range entry.Authors {
			authors = append(authors, strings.TrimSpace(au.Name))
		}
		// The abstract page is the retrievable full-text locator; PDF
		// extraction is out of scope for the document store.
		abs := strings.TrimSpace(entry.ID)
		results = append(results, Result{
			Title:       sanitizeSnippet(entry.Title),
			URL:         abs,
			Snippet:     truncate(sanitizeSnippet(entry.Summary), 600),
			Source:      "arXiv",
			Kind:        KindPaper,
			DocumentURL: abs,
			Authors:     authors,
			Published:   strings.TrimSpace(entry.Published),
		})
	}
	return results, nil
}
