package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// SerperSource searches the web through the Serper API.
type SerperSource struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// SerperOption configures a SerperSource.
type SerperOption func(*SerperSource)

// WithSerperBaseURL overrides the API endpoint, mainly for tests.
func WithSerperBaseURL(u string) SerperOption {
	return func(s *SerperSource) { s.baseURL = u }
}

// WithSerperHTTPClient sets a custom HTTP client.
func WithSerperHTTPClient(c *http.Client) SerperOption {
	return func(s *SerperSource) { s.client = c }
}

// WithSerperLimiter sets a shared rate limiter.
func WithSerperLimiter(l *rate.Limiter) SerperOption {
	return func(s *SerperSource) { s.limiter = l }
}

// NewSerperSource creates a web search source backed by Serper.
func NewSerperSource(apiKey string, opts ...SerperOption) (*SerperSource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serper: api key not set")
	}
	s := &SerperSource{
		apiKey:  apiKey,
		baseURL: "https://google.serper.dev/search",
		client:  defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Source.
func (s *SerperSource) Name() string { return "web" }

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic"`
}

// Search implements Source.
func (s *SerperSource) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	if err := wait(ctx, s.limiter); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{"q": query, "num": maxResults})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serper: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper: api returned status %d", resp.StatusCode)
	}

	var decoded serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("serper: failed to decode response: %w", err)
	}

	results := make([]Result, 0, len(decoded.Organic))
	for _, item := range decoded.Organic {
		if len(results) >= maxResults {
			break
		}
		results = append(results, Result{
			Title:       sanitizeSnippet(item.Title),
			URL:         item.Link,
			Snippet:     sanitizeSnippet(item.Snippet),
			Source:      "Web",
			Kind:        KindWeb,
			DocumentURL: item.Link,
			Published:   item.Date,
		})
	}
	return results, nil
}
