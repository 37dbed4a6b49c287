package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"
)

// RedditSource searches community discussion through Reddit's public
// search listing.
type RedditSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// RedditOption configures a RedditSource.
type RedditOption func(*RedditSource)

// WithRedditBaseURL overrides the API endpoint, mainly for tests.
func WithRedditBaseURL(u string) RedditOption {
	return func(r *RedditSource) { r.baseURL = u }
}

// WithRedditHTTPClient sets a custom HTTP client.
func WithRedditHTTPClient(c *http.Client) RedditOption {
	return func(r *RedditSource) { r.client = c }
}

// WithRedditLimiter sets a shared rate limiter.
func WithRedditLimiter(l *rate.Limiter) RedditOption {
	return func(r *RedditSource) { r.limiter = l }
}

// NewRedditSource creates a community discussion source. Reddit rejects
// requests without a descriptive User-Agent.
func NewRedditSource(userAgent string, opts ...RedditOption) *RedditSource {
	if userAgent == "" {
		userAgent = "foursight/1.0"
	}
	r := &RedditSource{
		baseURL:   "https://www.reddit.com/search.json",
		userAgent: userAgent,
		client:    defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements Source.
func (r *RedditSource) Name() string { return "community" }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string  `json:"title"`
				Permalink string  `json:"permalink"`
				Selftext  string  `json:"selftext"`
				Subreddit string  `json:"subreddit"`
				Author    string  `json:"author"`
				Score     int     `json:"score"`
				Created   float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search implements Source.
func (r *RedditSource) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	if err := wait(ctx, r.limiter); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(maxResults))
	params.Set("sort", "relevance")
	params.Set("t", "year")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("reddit: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit: api returned status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("reddit: failed to decode listing: %w", err)
	}

	results := make([]Result, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if len(results) >= maxResults {
			break
		}
		post := child.Data
		link := "https://www.reddit.com" + post.Permalink
		snippet := truncate(sanitizeSnippet(post.Selftext), 400)
		if snippet == "" {
			snippet = "r/" + post.Subreddit + " discussion"
		}
		results = append(results, Result{
			Title:       sanitizeSnippet(post.Title),
			URL:         link,
			Snippet:     snippet,
			Source:      "Reddit",
			Kind:        KindCommunity,
			DocumentURL: link,
			Authors:     []string{post.Author},
		})
	}
	return results, nil
}
