package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/foursight-ai/foursight/log"
)

// SynthesizeStage condenses the trends and research into cross-cutting
// insights.
type SynthesizeStage struct {
	completer Completer
	logger    log.Logger
}

// NewSynthesizeStage wires the completion service.
func NewSynthesizeStage(completer Completer, logger log.Logger) *SynthesizeStage {
	return &SynthesizeStage{completer: completer, logger: logger}
}

// Name implements Stage.
func (s *SynthesizeStage) Name() StageName { return StageSynthesize }

const synthesizeSystem = "You are an innovation strategist. Respond only in the requested format."

// Execute implements Stage.
func (s *SynthesizeStage) Execute(ctx context.Context, st State) State {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", st.Topic)
	if st.BusinessContext != "" {
		fmt.Fprintf(&b, "Business context: %s\n", st.BusinessContext)
	}
	b.WriteString("\n## Trends\n")
	for _, t := range st.Trends {
		fmt.Fprintf(&b, "- %s (%s): %s\n", t.Name, t.Maturity, t.Description)
	}
	fmt.Fprintf(&b, "\n## Research report\n%s\n", clip(st.ResearchReport, maxPromptChars/2))
	b.WriteString("\nSynthesize 3 to 5 cross-cutting insights connecting these trends to the topic.\n" +
		"Use exactly one line per insight:\n- Insight 1: <text>\n- Insight 2: <text>")

	resp, err := s.completer.Complete(ctx, clip(b.String(), maxPromptChars), synthesizeSystem, 1000)
	if err != nil {
		st.Err = newRunError(ErrNoUsableData, StageSynthesize, "synthesis failed: %w", err)
		return st
	}

	insights, perr := parseInsights(resp)
	if perr != nil {
		s.logger.Warn("synthesize: strict parse failed (%v), trying lenient", perr)
		insights, perr = parseInsightsLenient(resp)
	}
	if perr != nil {
		st.Err = newRunError(ErrMalformedResponse, StageSynthesize, "unparseable insight response: %w", perr)
		return st
	}
	st.Insights = append(st.Insights, insights...)
	s.logger.Info("synthesize: %d insights", len(insights))
	return st
}
