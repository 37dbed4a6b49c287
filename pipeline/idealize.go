package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/foursight-ai/foursight/log"
)

// IdealizeStage turns the insights into concrete innovation ideas.
type IdealizeStage struct {
	completer Completer
	logger    log.Logger
}

// NewIdealizeStage wires the completion service.
func NewIdealizeStage(completer Completer, logger log.Logger) *IdealizeStage {
	return &IdealizeStage{completer: completer, logger: logger}
}

// Name implements Stage.
func (i *IdealizeStage) Name() StageName { return StageIdealize }

const idealizeSystem = "You are an inventive product thinker. Respond only in the requested format."

// Execute implements Stage.
func (i *IdealizeStage) Execute(ctx context.Context, s State) State {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", s.Topic)
	if s.BusinessContext != "" {
		fmt.Fprintf(&b, "Business context: %s\n", s.BusinessContext)
	}
	b.WriteString("\n## Insights\n")
	for n, insight := range s.Insights {
		fmt.Fprintf(&b, "- Insight %d: %s\n", n+1, insight)
	}
	b.WriteString("\n## Trends\n")
	for _, t := range s.Trends {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString("\nGenerate 3 to 5 concrete innovation ideas grounded in these insights.\n" +
		"Separate ideas with a line containing only ---\n" +
		"Each idea starts with a title heading:\n# <idea title>\n<description paragraph>")

	resp, err := i.completer.Complete(ctx, clip(b.String(), maxPromptChars), idealizeSystem, 1500)
	if err != nil {
		s.Err = newRunError(ErrNoUsableData, StageIdealize, "idea generation failed: %w", err)
		return s
	}

	ideas, perr := parseIdeas(resp)
	if perr != nil {
		i.logger.Warn("idealize: strict parse failed (%v), trying lenient", perr)
		ideas, perr = parseIdeasLenient(resp)
	}
	if perr != nil {
		s.Err = newRunError(ErrMalformedResponse, StageIdealize, "unparseable idea response: %w", perr)
		return s
	}
	s.Ideas = append(s.Ideas, ideas...)
	i.logger.Info("idealize: %d ideas", len(ideas))
	return s
}
