package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/embeddings"
)

// DefaultEmbeddingModel is used when none is configured.
const DefaultEmbeddingModel = openai.SmallEmbedding3

// OpenAIEmbedder produces dense vectors through the OpenAI embeddings
// endpoint. It satisfies retrieval.Embedder.
type OpenAIEmbedder struct {
	api   *openai.Client
	model openai.EmbeddingModel
}

// EmbedderOption configures an OpenAIEmbedder.
type EmbedderOption func(*OpenAIEmbedder, *openai.ClientConfig)

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model openai.EmbeddingModel) EmbedderOption {
	return func(e *OpenAIEmbedder, _ *openai.ClientConfig) {
		if model != "" {
			e.model = model
		}
	}
}

// WithEmbedderBaseURL points the embedder at a compatible endpoint.
func WithEmbedderBaseURL(u string) EmbedderOption {
	return func(_ *OpenAIEmbedder, cfg *openai.ClientConfig) {
		if u != "" {
			cfg.BaseURL = u
		}
	}
}

// WithEmbedderHTTPClient sets a custom HTTP client.
func WithEmbedderHTTPClient(hc *http.Client) EmbedderOption {
	return func(_ *OpenAIEmbedder, cfg *openai.ClientConfig) { cfg.HTTPClient = hc }
}

// NewOpenAIEmbedder creates an embedder for the given API key.
func NewOpenAIEmbedder(apiKey string, opts ...EmbedderOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: api key not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	e := &OpenAIEmbedder{model: DefaultEmbeddingModel}
	for _, opt := range opts {
		opt(e, &cfg)
	}
	e.api = openai.NewClientWithConfig(cfg)
	return e, nil
}

// EmbedDocuments embeds all texts in one batched request.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("llm: embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		out[i] = item.Embedding
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// LangChainEmbedder adapts a langchaingo embedder to retrieval.Embedder,
// so any provider langchaingo supports can back the hybrid index.
type LangChainEmbedder struct {
	embedder embeddings.Embedder
}

// NewLangChainEmbedder wraps an existing langchaingo embedder.
func NewLangChainEmbedder(embedder embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{embedder: embedder}
}

// EmbedDocuments embeds all texts through the wrapped embedder.
func (l *LangChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := l.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("llm: langchain embedding failed: %w", err)
	}
	out := make([][]float32, len(vecs))
	for i, vec := range vecs {
		converted := make([]float32, len(vec))
		for j, val := range vec {
			converted[j] = float32(val)
		}
		out[i] = converted
	}
	return out, nil
}

// EmbedQuery embeds a single query through the wrapped embedder.
func (l *LangChainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := l.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("llm: langchain embedding failed: %w", err)
	}
	converted := make([]float32, len(vec))
	for i, val := range vec {
		converted[i] = float32(val)
	}
	return converted, nil
}
