package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/foursight-ai/foursight/log"
)

// AnalyzeTrendsStage extracts named trends from the research material.
type AnalyzeTrendsStage struct {
	completer Completer
	logger    log.Logger
}

// NewAnalyzeTrendsStage wires the completion service.
func NewAnalyzeTrendsStage(completer Completer, logger log.Logger) *AnalyzeTrendsStage {
	return &AnalyzeTrendsStage{completer: completer, logger: logger}
}

// Name implements Stage.
func (a *AnalyzeTrendsStage) Name() StageName { return StageAnalyzeTrends }

const trendsSystem = "You are a technology trend analyst. Respond only in the requested markdown format."

const trendsFormat = `For each trend, use exactly this format:

## <trend name>
**Maturity:** <emerging|growing|mature>
**Description:** <one or two sentences>
**Sources:** <comma-separated source titles>
**Impact:** <one sentence>`

// maxPromptChars bounds how much accumulated material one completion
// prompt carries.
const maxPromptChars = 12000

// Execute implements Stage.
func (a *AnalyzeTrendsStage) Execute(ctx context.Context, s State) State {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n## Research report\n%s\n", s.Topic, clip(s.ResearchReport, maxPromptChars/2))
	b.WriteString("\n## Search findings\n")
	for _, r := range s.AllSearchResults() {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Source, r.Title, clip(r.Snippet, 300))
	}
	if n := summarizedCount(s.Documents); n > 0 {
		b.WriteString("\n## Document summaries\n")
		for _, d := range s.Documents {
			if !d.Failed() {
				fmt.Fprintf(&b, "- %s: %s\n", d.Title, clip(d.Summary, 800))
			}
		}
	}
	fmt.Fprintf(&b, "\nIdentify 3 to 5 distinct trends relevant to the topic.\n\n%s", trendsFormat)

	resp, err := a.completer.Complete(ctx, clip(b.String(), maxPromptChars), trendsSystem, 1500)
	if err != nil {
		s.Err = newRunError(ErrNoUsableData, StageAnalyzeTrends, "trend analysis failed: %w", err)
		return s
	}

	trends, perr := parseTrends(resp)
	if perr != nil {
		a.logger.Warn("trends: strict parse failed (%v), trying lenient", perr)
		trends, perr = parseTrendsLenient(resp)
	}
	if perr != nil {
		s.Err = newRunError(ErrMalformedResponse, StageAnalyzeTrends, "unparseable trend response: %w", perr)
		return s
	}
	s.Trends = append(s.Trends, trends...)
	a.logger.Info("trends: %d extracted", len(trends))
	return s
}

// clip truncates s to at most n bytes, cutting at a line boundary when
// one is close and never through the middle of a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	end := n
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	cut := s[:end]
	if i := strings.LastIndexByte(cut, '\n'); i > n/2 {
		cut = cut[:i]
	}
	return cut
}
