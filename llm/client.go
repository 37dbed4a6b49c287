// Package llm wraps the OpenAI-compatible chat completion and embedding
// APIs behind the small interfaces the pipeline and retrieval packages
// consume.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/foursight-ai/foursight/log"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = openai.GPT4oMini

const retryBackoff = 2 * time.Second

// defaultRequestTimeout bounds a single completion or embedding call.
const defaultRequestTimeout = 120 * time.Second

// Client talks to an OpenAI-compatible chat completion endpoint. It
// retries a transient failure once before giving up.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	logger      log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client, *openai.ClientConfig)

// WithBaseURL points the client at a compatible non-OpenAI endpoint.
func WithBaseURL(u string) ClientOption {
	return func(_ *Client, cfg *openai.ClientConfig) {
		if u != "" {
			cfg.BaseURL = u
		}
	}
}

// WithModel sets the chat model.
func WithModel(model string) ClientOption {
	return func(c *Client, _ *openai.ClientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) ClientOption {
	return func(c *Client, _ *openai.ClientConfig) { c.temperature = t }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(_ *Client, cfg *openai.ClientConfig) { cfg.HTTPClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client, _ *openai.ClientConfig) { c.logger = logger }
}

// NewClient creates a completion client for the given API key.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: api key not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	c := &Client{
		model:       DefaultModel,
		temperature: 0.7,
		logger:      log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c, &cfg)
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c, nil
}

// Complete sends one system+user exchange and returns the model text.
func (c *Client) Complete(ctx context.Context, prompt, system string, maxTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		c.logger.Warn("completion failed transiently, retrying once: %v", err)
		select {
		case <-time.After(retryBackoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		resp, err = c.api.CreateChatCompletion(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("llm: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// isTransient reports whether the error is worth one retry: rate limits
// and server-side failures, not bad requests or auth problems.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
