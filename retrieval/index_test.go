package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeEmbedder maps text onto a fixed vocabulary axis per word, which
// makes cosine similarity deterministic and easy to reason about.
type fakeEmbedder struct {
	vocab []string
	err   error
}

func newFakeEmbedder(vocab ...string) *fakeEmbedder {
	return &fakeEmbedder{vocab: vocab}
}

func (f *fakeEmbedder) embed(text string) []float32 {
	vec := make([]float32, len(f.vocab))
	lower := strings.ToLower(text)
	for i, word := range f.vocab {
		vec[i] = float32(strings.Count(lower, word))
	}
	return vec
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.embed(text)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.embed(text), nil
}

type fakeCompleter struct {
	lastPrompt string
	lastSystem string
	reply      string
	err        error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, system string, maxTokens int) (string, error) {
	f.lastPrompt = prompt
	f.lastSystem = system
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func buildTestIndex(t *testing.T, embedder Embedder, text string) *Index {
	t.Helper()
	chunker, err := NewChunker(60, 0)
	assert.NoError(t, err)
	idx, err := BuildIndex(context.Background(), chunker, embedder, text)
	assert.NoError(t, err)
	return idx
}

func TestBuildIndex(t *testing.T) {
	t.Run("empty text fails", func(t *testing.T) {
		chunker, _ := NewChunker(60, 0)
		_, err := BuildIndex(context.Background(), chunker, newFakeEmbedder("a"), "")
		assert.Error(t, err)
	})

	t.Run("embedder errors propagate", func(t *testing.T) {
		chunker, _ := NewChunker(60, 0)
		emb := newFakeEmbedder("a")
		emb.err = errors.New("embedding service down")
		_, err := BuildIndex(context.Background(), chunker, emb, "some text")
		assert.ErrorContains(t, err, "embedding service down")
	})
}

func TestIndexSearch(t *testing.T) {
	ctx := context.Background()
	// Three sentences, each its own chunk at this size.
	text := "Robots assemble cars in factories.\n" +
		"Gardens grow tomatoes and herbs.\n" +
		"Factory robots need regular maintenance.\n"
	emb := newFakeEmbedder("robot", "garden", "factory")

	t.Run("validates arguments", func(t *testing.T) {
		idx := buildTestIndex(t, emb, text)
		_, err := idx.Search(ctx, "q", 0, 0.5)
		assert.Error(t, err)
		_, err = idx.Search(ctx, "q", 3, 1.5)
		assert.Error(t, err)
		_, err = idx.Search(ctx, "q", 3, -0.1)
		assert.Error(t, err)
	})

	t.Run("pure lexical ranking at alpha zero", func(t *testing.T) {
		idx := buildTestIndex(t, emb, text)
		results, err := idx.Search(ctx, "tomatoes herbs", 3, 0)
		assert.NoError(t, err)
		assert.Equal(t, 1, results[0].ChunkIndex)
		assert.Equal(t, 1.0, results[0].Lexical)
	})

	t.Run("pure semantic ranking at alpha one", func(t *testing.T) {
		idx := buildTestIndex(t, emb, text)
		results, err := idx.Search(ctx, "garden gardening", 3, 1)
		assert.NoError(t, err)
		assert.Equal(t, 1, results[0].ChunkIndex)
		assert.Equal(t, 1.0, results[0].Semantic)
	})

	t.Run("ranks are one-based and consecutive", func(t *testing.T) {
		idx := buildTestIndex(t, emb, text)
		results, err := idx.Search(ctx, "robots", 3, 0.5)
		assert.NoError(t, err)
		for i, r := range results {
			assert.Equal(t, i+1, r.Rank)
		}
	})

	t.Run("k larger than the index clamps", func(t *testing.T) {
		idx := buildTestIndex(t, emb, text)
		results, err := idx.Search(ctx, "robots", 50, 0.5)
		assert.NoError(t, err)
		assert.Equal(t, idx.Len(), len(results))
	})

	t.Run("repeated searches return identical rankings", func(t *testing.T) {
		idx := buildTestIndex(t, emb, text)
		first, err := idx.Search(ctx, "factory robots", 3, 0.5)
		assert.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := idx.Search(ctx, "factory robots", 3, 0.5)
			assert.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("ties break toward the lower chunk index", func(t *testing.T) {
		// One line per chunk at this size, so every chunk is identical
		// and all combined scores tie.
		same := "Identical words here.\nIdentical words here.\nIdentical words here.\n"
		chunker, err := NewChunker(25, 0)
		assert.NoError(t, err)
		idx, err := BuildIndex(ctx, chunker, newFakeEmbedder("identical"), same)
		assert.NoError(t, err)
		results, err := idx.Search(ctx, "identical", 3, 0.5)
		assert.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, []int{results[0].ChunkIndex, results[1].ChunkIndex, results[2].ChunkIndex})
	})

	t.Run("flat signals normalize to a half", func(t *testing.T) {
		idx := buildTestIndex(t, newFakeEmbedder("word"), "A single small chunk.")
		results, err := idx.Search(ctx, "anything", 1, 0.5)
		assert.NoError(t, err)
		assert.Equal(t, 0.5, results[0].Lexical)
		assert.Equal(t, 0.5, results[0].Semantic)
		assert.Equal(t, 0.5, results[0].Combined)
	})

	t.Run("combined mixes both signals", func(t *testing.T) {
		idx := buildTestIndex(t, emb, text)
		results, err := idx.Search(ctx, "factory maintenance", 3, 0.3)
		assert.NoError(t, err)
		for _, r := range results {
			assert.InDelta(t, 0.3*r.Semantic+0.7*r.Lexical, r.Combined, 1e-12)
		}
	})
}

func TestGroundedSummary(t *testing.T) {
	ctx := context.Background()
	text := "Solar panels got cheaper.\nWind turbines scale well.\nBatteries store the surplus.\n"
	idx := buildTestIndex(t, newFakeEmbedder("solar", "wind", "battery"), text)

	t.Run("feeds ranked passages to the completer", func(t *testing.T) {
		completer := &fakeCompleter{reply: "  Solar is getting cheaper.  "}
		summary, err := idx.GroundedSummary(ctx, completer, "solar cost", 2, 0.5)
		assert.NoError(t, err)
		assert.Equal(t, "Solar is getting cheaper.", summary)
		assert.Contains(t, completer.lastPrompt, "[Passage 1")
		assert.Contains(t, completer.lastPrompt, "[Passage 2")
		assert.Contains(t, completer.lastPrompt, "Solar panels got cheaper.")
		assert.Contains(t, completer.lastPrompt, "Question: solar cost")
		assert.Contains(t, completer.lastSystem, "research analyst")
	})

	t.Run("completion failures surface", func(t *testing.T) {
		completer := &fakeCompleter{err: errors.New("model overloaded")}
		_, err := idx.GroundedSummary(ctx, completer, "solar", 2, 0.5)
		assert.ErrorContains(t, err, "model overloaded")
	})
}
