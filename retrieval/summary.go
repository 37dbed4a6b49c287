package retrieval

import (
	"context"
	"fmt"
	"strings"
)

// Completer is the completion capability the summarizer needs. The llm
// package's client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt, system string, maxTokens int) (string, error)
}

const summarySystemPrompt = "You are a research analyst. Summarize the provided passages " +
	"faithfully: only state what the passages support, and keep the summary under 200 words."

// GroundedSummary retrieves the top-k chunks for the query and asks the
// completion service to summarize them. The prompt carries rank and
// relevance per passage so the model can weight its sources.
func (idx *Index) GroundedSummary(ctx context.Context, completer Completer, query string, k int, alpha float64) (string, error) {
	results, err := idx.Search(ctx, query, k, alpha)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Passages retrieved for the question, most relevant first:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "[Passage %d, relevance %.3f]\n%s\n\n", r.Rank, r.Combined, strings.TrimSpace(r.Text))
	}
	fmt.Fprintf(&b, "Question: %s\n\nSummarize what these passages say about the question.", query)

	summary, err := completer.Complete(ctx, b.String(), summarySystemPrompt, 512)
	if err != nil {
		return "", fmt.Errorf("retrieval: summary completion failed: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
