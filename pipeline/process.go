package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/foursight-ai/foursight/docstore"
	"github.com/foursight-ai/foursight/log"
	"github.com/foursight-ai/foursight/retrieval"
	"github.com/foursight-ai/foursight/search"
)

// ProcessStage fetches the documents behind the research results, runs
// each through a hybrid retrieval index for a grounded summary, and
// writes the research report.
type ProcessStage struct {
	store     docstore.Store
	completer Completer
	embedder  retrieval.Embedder
	logger    log.Logger
}

// NewProcessStage wires the document fetcher, completion service, and
// embedder.
func NewProcessStage(store docstore.Store, completer Completer, embedder retrieval.Embedder, logger log.Logger) *ProcessStage {
	return &ProcessStage{store: store, completer: completer, embedder: embedder, logger: logger}
}

// Name implements Stage.
func (p *ProcessStage) Name() StageName { return StageProcess }

const researchReportSystem = "You are a research analyst compiling findings on an innovation topic. " +
	"Write a structured markdown research report grounded strictly in the provided material."

// Execute implements Stage. Every attempted document keeps a slot in
// the accumulator; a fetch or summary failure leaves the slot's summary
// empty rather than shrinking the slice.
func (p *ProcessStage) Execute(ctx context.Context, s State) State {
	candidates := documentCandidates(s)
	var failures int
	for _, cand := range candidates {
		doc := ProcessedDocument{Title: cand.Title, URL: cand.DocumentURL, Source: cand.Source}
		summary, chunks, err := p.summarizeDocument(ctx, s, cand)
		if err != nil {
			p.logger.Warn("process: document %s failed: %v", cand.DocumentURL, err)
			failures++
		} else {
			doc.Summary = summary
			doc.Chunks = chunks
		}
		s.Documents = append(s.Documents, doc)
	}

	report, err := p.completer.Complete(ctx, researchReportPrompt(s), researchReportSystem, 1500)
	if err != nil {
		s.Err = newRunError(ErrNoUsableData, StageProcess, "research report generation failed: %w", err)
		return s
	}
	s.ResearchReport = strings.TrimSpace(report)
	p.logger.Info("process: %d/%d documents summarized, report written", len(candidates)-failures, len(candidates))

	if failures > 0 {
		s.Err = newRunError(ErrSourceUnavailable, StageProcess, "%d of %d documents could not be processed", failures, len(candidates))
	}
	return s
}

// documentCandidates picks the results worth fetching in full: web
// pages first, then papers, capped at MaxDocuments.
func documentCandidates(s State) []search.Result {
	max := s.Config.MaxDocuments
	if max <= 0 {
		return nil
	}
	var out []search.Result
	for _, r := range append(cloneSlice(s.WebResults), s.AcademicResults...) {
		if r.DocumentURL == "" {
			continue
		}
		out = append(out, r)
		if len(out) == max {
			break
		}
	}
	return out
}

func (p *ProcessStage) summarizeDocument(ctx context.Context, s State, cand search.Result) (string, int, error) {
	text, err := p.store.FetchText(ctx, cand.DocumentURL)
	if err != nil {
		return "", 0, err
	}
	chunker, err := retrieval.NewChunker(s.Config.ChunkSize, s.Config.ChunkOverlap)
	if err != nil {
		return "", 0, err
	}
	idx, err := retrieval.BuildIndex(ctx, chunker, p.embedder, text)
	if err != nil {
		return "", 0, err
	}
	summary, err := idx.GroundedSummary(ctx, p.completer, s.Topic, s.Config.RetrievalTopK, s.Config.RetrievalAlpha)
	if err != nil {
		return "", 0, err
	}
	if summary == "" {
		return "", 0, fmt.Errorf("empty summary")
	}
	return summary, idx.Len(), nil
}

func researchReportPrompt(s State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", s.Topic)
	if s.BusinessContext != "" {
		fmt.Fprintf(&b, "Business context: %s\n", s.BusinessContext)
	}

	b.WriteString("\n## Search findings\n")
	for _, r := range s.AllSearchResults() {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Source, r.Title, r.Snippet)
	}

	if n := summarizedCount(s.Documents); n > 0 {
		b.WriteString("\n## Document summaries\n")
		for _, d := range s.Documents {
			if d.Failed() {
				continue
			}
			fmt.Fprintf(&b, "### %s (%s)\n%s\n", d.Title, d.URL, d.Summary)
		}
	}

	b.WriteString("\nWrite a research report on the topic from this material, covering the " +
		"current landscape, notable developments, and open problems.")
	return b.String()
}

func summarizedCount(docs []ProcessedDocument) int {
	n := 0
	for _, d := range docs {
		if !d.Failed() {
			n++
		}
	}
	return n
}
