package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// Okapi BM25 parameters, the conventional defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// tokenize lowercases and splits on anything that is not a letter or a
// digit. Both documents and queries go through the same tokenizer.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// bm25Index holds the corpus statistics needed to score a query against
// every document.
type bm25Index struct {
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
}

func newBM25Index(docs []string) *bm25Index {
	idx := &bm25Index{
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		docFreq:   make(map[string]int),
	}
	total := 0
	for i, doc := range docs {
		tokens := tokenize(doc)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		total += len(tokens)
		for tok := range tf {
			idx.docFreq[tok]++
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(total) / float64(len(docs))
	}
	return idx
}

// scores returns the raw BM25 score of the query against every document,
// in document order.
func (idx *bm25Index) scores(query string) []float64 {
	out := make([]float64, len(idx.termFreqs))
	queryTokens := tokenize(query)
	n := float64(len(idx.termFreqs))
	for _, tok := range queryTokens {
		df, ok := idx.docFreq[tok]
		if !ok {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for i, tf := range idx.termFreqs {
			f := float64(tf[tok])
			if f == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(idx.docLens[i])/idx.avgDocLen
			out[i] += idf * f * (bm25K1 + 1) / (f + bm25K1*norm)
		}
	}
	return out
}
