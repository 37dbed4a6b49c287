package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerperSource(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewSerperSource("")
		assert.Error(t, err)
	})

	t.Run("maps organic results", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
			w.Write([]byte(`{"organic":[
				{"title":"AI &amp; Robotics","link":"https://example.com/a","snippet":"<b>Robots</b> everywhere","date":"2026-01-02"},
				{"title":"Second","link":"https://example.com/b","snippet":"more"}
			]}`))
		}))
		defer server.Close()

		src, err := NewSerperSource("test-key", WithSerperBaseURL(server.URL))
		assert.NoError(t, err)
		assert.Equal(t, "web", src.Name())

		results, err := src.Search(context.Background(), "robotics", 5)
		assert.NoError(t, err)
		assert.Len(t, results, 2)
		assert.Equal(t, "AI & Robotics", results[0].Title)
		assert.Equal(t, "Robots everywhere", results[0].Snippet)
		assert.Equal(t, KindWeb, results[0].Kind)
		assert.Equal(t, "https://example.com/a", results[0].DocumentURL)
	})

	t.Run("caps at maxResults", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"organic":[{"title":"a"},{"title":"b"},{"title":"c"}]}`))
		}))
		defer server.Close()

		src, _ := NewSerperSource("k", WithSerperBaseURL(server.URL))
		results, err := src.Search(context.Background(), "q", 2)
		assert.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		src, _ := NewSerperSource("k", WithSerperBaseURL(server.URL))
		_, err := src.Search(context.Background(), "q", 5)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})
}

func TestArxivSource(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2601.01234v1</id>
    <title>Neural Ideation at Scale</title>
    <summary>We study automated idea generation.</summary>
    <published>2026-01-15T00:00:00Z</published>
    <author><name>A. Author</name></author>
    <author><name>B. Author</name></author>
    <link href="http://arxiv.org/abs/2601.01234v1" type="text/html"/>
    <link href="http://arxiv.org/pdf/2601.01234v1" type="application/pdf"/>
  </entry>
</feed>`

	t.Run("parses atom feed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "all:ideation", r.URL.Query().Get("search_query"))
			assert.Equal(t, "submittedDate", r.URL.Query().Get("sortBy"))
			w.Write([]byte(feed))
		}))
		defer server.Close()

		src := NewArxivSource(WithArxivBaseURL(server.URL))
		assert.Equal(t, "academic", src.Name())

		results, err := src.Search(context.Background(), "ideation", 5)
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "Neural Ideation at Scale", results[0].Title)
		assert.Equal(t, "http://arxiv.org/abs/2601.01234v1", results[0].URL)
		assert.Equal(t, KindPaper, results[0].Kind)
		assert.Equal(t, []string{"A. Author", "B. Author"}, results[0].Authors)
		assert.Equal(t, "2026-01-15T00:00:00Z", results[0].Published)
	})

	t.Run("malformed feed is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not xml at all {`))
		}))
		defer server.Close()

		src := NewArxivSource(WithArxivBaseURL(server.URL))
		_, err := src.Search(context.Background(), "q", 5)
		assert.Error(t, err)
	})
}

func TestRedditSource(t *testing.T) {
	t.Run("parses listing and sends user agent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "foursight/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "relevance", r.URL.Query().Get("sort"))
			w.Write([]byte(`{"data":{"children":[
				{"data":{"title":"What happened to home robots?","permalink":"/r/robotics/comments/abc/post/","selftext":"Long discussion body","subreddit":"robotics","author":"someone"}},
				{"data":{"title":"Link post","permalink":"/r/tech/comments/def/link/","selftext":"","subreddit":"tech","author":"other"}}
			]}}`))
		}))
		defer server.Close()

		src := NewRedditSource("", WithRedditBaseURL(server.URL))
		assert.Equal(t, "community", src.Name())

		results, err := src.Search(context.Background(), "home robots", 5)
		assert.NoError(t, err)
		assert.Len(t, results, 2)
		assert.Equal(t, "https://www.reddit.com/r/robotics/comments/abc/post/", results[0].URL)
		assert.Equal(t, "Long discussion body", results[0].Snippet)
		assert.Equal(t, KindCommunity, results[0].Kind)
		// Link posts have no body; the snippet falls back to the subreddit.
		assert.Equal(t, "r/tech discussion", results[1].Snippet)
	})
}

func TestProductHuntSource(t *testing.T) {
	t.Run("requires token", func(t *testing.T) {
		_, err := NewProductHuntSource("")
		assert.Error(t, err)
	})

	t.Run("maps graphql posts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer ph-token", r.Header.Get("Authorization"))
			w.Write([]byte(`{"data":{"posts":{"edges":[
				{"node":{"name":"IdeaForge","tagline":"Ideas on tap","description":"Generates ideas","url":"https://producthunt.com/posts/ideaforge","votesCount":321}}
			]}}}`))
		}))
		defer server.Close()

		src, err := NewProductHuntSource("ph-token", WithProductHuntBaseURL(server.URL))
		assert.NoError(t, err)
		assert.Equal(t, "product", src.Name())

		results, err := src.Search(context.Background(), "ideas", 5)
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "IdeaForge", results[0].Title)
		assert.Equal(t, "Ideas on tap - Generates ideas", results[0].Snippet)
		assert.Equal(t, KindProduct, results[0].Kind)
	})

	t.Run("graphql errors surface", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errors":[{"message":"rate limited"}]}`))
		}))
		defer server.Close()

		src, _ := NewProductHuntSource("t", WithProductHuntBaseURL(server.URL))
		_, err := src.Search(context.Background(), "q", 5)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})
}

func TestSanitizeSnippet(t *testing.T) {
	assert.Equal(t, "bold & plain", sanitizeSnippet("<b>bold</b>  &amp;\n plain"))
	assert.Equal(t, "", sanitizeSnippet("<script>alert(1)</script>"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
	// Multibyte text backs the cut up to a rune boundary.
	assert.Equal(t, "農農...", truncate(strings.Repeat("農", 10), 8))
}
