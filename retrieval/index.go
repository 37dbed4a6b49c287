// Package retrieval builds a per-document hybrid index: Okapi BM25 over
// sentence-aware chunks mixed with embedding cosine similarity, so a
// summary prompt only ever sees the passages most relevant to the topic.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Embedder turns texts into dense vectors. Implementations live in the
// llm package; tests use a deterministic fake.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Result is one ranked chunk from a hybrid search. Rank is 1-based.
type Result struct {
	ChunkIndex int
	Text       string
	Lexical    float64
	Semantic   float64
	Combined   float64
	Rank       int
}

// Index is an immutable hybrid index over the chunks of one document.
type Index struct {
	chunks     []Chunk
	embeddings [][]float32
	bm25       *bm25Index
	embedder   Embedder
}

// BuildIndex chunks text and embeds every chunk in one batch.
func BuildIndex(ctx context.Context, chunker *Chunker, embedder Embedder, text string) (*Index, error) {
	chunks := chunker.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("retrieval: nothing to index")
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("retrieval: failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("retrieval: embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}
	return &Index{
		chunks:     chunks,
		embeddings: embeddings,
		bm25:       newBM25Index(texts),
		embedder:   embedder,
	}, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Search scores every chunk lexically and semantically, min-max
// normalizes each signal on its own, and mixes them as
// alpha*semantic + (1-alpha)*lexical. Ties on the combined score break
// toward the lower chunk index, which makes rankings repeatable.
func (idx *Index) Search(ctx context.Context, query string, k int, alpha float64) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("retrieval: k must be positive, got %d", k)
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("retrieval: alpha %v outside [0,1]", alpha)
	}

	queryVec, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: failed to embed query: %w", err)
	}

	lexical := normalize(idx.bm25.scores(query))
	semantic := make([]float64, len(idx.chunks))
	for i, vec := range idx.embeddings {
		semantic[i] = cosine(queryVec, vec)
	}
	semantic = normalize(semantic)

	results := make([]Result, len(idx.chunks))
	for i, ch := range idx.chunks {
		results[i] = Result{
			ChunkIndex: ch.Index,
			Text:       ch.Text,
			Lexical:    lexical[i],
			Semantic:   semantic[i],
			Combined:   alpha*semantic[i] + (1-alpha)*lexical[i],
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Combined != results[b].Combined {
			return results[a].Combined > results[b].Combined
		}
		return results[a].ChunkIndex < results[b].ChunkIndex
	})

	if k > len(results) {
		k = len(results)
	}
	results = results[:k]
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// normalize min-max scales scores into [0,1]. A flat score vector maps
// to 0.5 everywhere so it neither dominates nor vanishes in the mix.
func normalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	if max == min {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
