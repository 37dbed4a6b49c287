package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// ProductHuntSource searches product launches through the Product Hunt
// GraphQL API.
type ProductHuntSource struct {
	token   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// ProductHuntOption configures a ProductHuntSource.
type ProductHuntOption func(*ProductHuntSource)

// WithProductHuntBaseURL overrides the API endpoint, mainly for tests.
func WithProductHuntBaseURL(u string) ProductHuntOption {
	return func(p *ProductHuntSource) { p.baseURL = u }
}

// WithProductHuntHTTPClient sets a custom HTTP client.
func WithProductHuntHTTPClient(c *http.Client) ProductHuntOption {
	return func(p *ProductHuntSource) { p.client = c }
}

// WithProductHuntLimiter sets a shared rate limiter.
func WithProductHuntLimiter(l *rate.Limiter) ProductHuntOption {
	return func(p *ProductHuntSource) { p.limiter = l }
}

// NewProductHuntSource creates a product listing source. The token is a
// Product Hunt developer access token.
func NewProductHuntSource(token string, opts ...ProductHuntOption) (*ProductHuntSource, error) {
	if token == "" {
		return nil, fmt.Errorf("producthunt: access token not set")
	}
	p := &ProductHuntSource{
		token:   token,
		baseURL: "https://api.producthunt.com/v2/api/graphql",
		client:  defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name implements Source.
func (p *ProductHuntSource) Name() string { return "product" }

const productHuntQuery = `
query($first: Int!) {
  posts(order: VOTES, first: $first) {
    edges {
      node {
        name
        tagline
        description
        url
        votesCount
      }
    }
  }
}`

type productHuntResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node struct {
					Name        string `json:"name"`
					Tagline     string `json:"tagline"`
					Description string `json:"description"`
					URL         string `json:"url"`
					VotesCount  int    `json:"votesCount"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Search implements Source. The GraphQL posts endpoint has no free-text
// search, so results are the current top launches; the query string only
// feeds the cache key upstream.
func (p *ProductHuntSource) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	if err := wait(ctx, p.limiter); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"query":     productHuntQuery,
		"variables": map[string]any{"first": maxResults},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("producthunt: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("producthunt: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("producthunt: api returned status %d", resp.StatusCode)
	}

	var decoded productHuntResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("producthunt: failed to decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("producthunt: graphql error: %s", decoded.Errors[0].Message)
	}

	results := make([]Result, 0, len(decoded.Data.Posts.Edges))
	for _, edge := range decoded.Data.Posts.Edges {
		if len(results) >= maxResults {
			break
		}
		node := edge.Node
		snippet := node.Tagline
		if node.Description != "" {
			snippet = node.Tagline + " - " + node.Description
		}
		results = append(results, Result{
			Title:       sanitizeSnippet(node.Name),
			URL:         node.URL,
			Snippet:     truncate(sanitizeSnippet(snippet), 400),
			Source:      "Product Hunt",
			Kind:        KindProduct,
			DocumentURL: node.URL,
		})
	}
	return results, nil
}
