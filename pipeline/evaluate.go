package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/foursight-ai/foursight/log"
)

// EvaluateStage scores every idea on the five fixed criteria and writes
// the final report.
type EvaluateStage struct {
	completer Completer
	logger    log.Logger
}

// NewEvaluateStage wires the completion service.
func NewEvaluateStage(completer Completer, logger log.Logger) *EvaluateStage {
	return &EvaluateStage{completer: completer, logger: logger}
}

// Name implements Stage.
func (e *EvaluateStage) Name() StageName { return StageEvaluate }

const evaluateSystem = "You are a critical innovation evaluator. Respond only in the requested format."

const finalReportSystem = "You are an innovation analyst writing the final report of an idea " +
	"generation run. Write structured markdown grounded strictly in the provided material."

// Execute implements Stage. Every idea keeps a slot in the evaluated
// accumulator; a failed evaluation leaves the slot unscored.
func (e *EvaluateStage) Execute(ctx context.Context, s State) State {
	var failures int
	for _, idea := range s.Ideas {
		evaluated := EvaluatedIdea{Idea: idea}
		scores, err := e.scoreIdea(ctx, s, idea)
		if err != nil {
			e.logger.Warn("evaluate: idea %q failed: %v", idea.Title, err)
			failures++
		} else {
			evaluated.Scores = scores
			evaluated.Average = averageScore(scores)
		}
		s.EvaluatedIdeas = append(s.EvaluatedIdeas, evaluated)
	}

	report, err := e.completer.Complete(ctx, finalReportPrompt(s), finalReportSystem, 2000)
	if err != nil {
		s.Err = newRunError(ErrNoUsableData, StageEvaluate, "final report generation failed: %w", err)
		return s
	}
	s.FinalReport = strings.TrimSpace(report)
	e.logger.Info("evaluate: %d/%d ideas scored, final report written", len(s.Ideas)-failures, len(s.Ideas))

	if failures > 0 {
		s.Err = newRunError(ErrSourceUnavailable, StageEvaluate, "%d of %d ideas could not be scored", failures, len(s.Ideas))
	}
	return s
}

func (e *EvaluateStage) scoreIdea(ctx context.Context, s State, idea Idea) ([]CriterionScore, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Idea: %s\n%s\n", idea.Title, clip(idea.Description, 2000))
	if s.BusinessContext != "" {
		fmt.Fprintf(&b, "\nBusiness context: %s\n", s.BusinessContext)
	}
	b.WriteString("\nScore the idea on each criterion from 0 to 10, one line per criterion:\n")
	for _, c := range evaluationCriteria {
		fmt.Fprintf(&b, "- %s: <score>/10 - <one-line justification>\n", c)
	}

	resp, err := e.completer.Complete(ctx, b.String(), evaluateSystem, 400)
	if err != nil {
		return nil, err
	}
	return parseScores(resp)
}

// finalReportPrompt lists the ideas best first so the report leads with
// the strongest candidates.
func finalReportPrompt(s State) string {
	ranked := cloneSlice(s.EvaluatedIdeas)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Average > ranked[b].Average
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", s.Topic)
	if s.BusinessContext != "" {
		fmt.Fprintf(&b, "Business context: %s\n", s.BusinessContext)
	}
	b.WriteString("\n## Evaluated ideas\n")
	for _, ev := range ranked {
		fmt.Fprintf(&b, "### %s (average %.1f/10)\n%s\n", ev.Idea.Title, ev.Average, clip(ev.Idea.Description, 1200))
		for _, sc := range ev.Scores {
			fmt.Fprintf(&b, "- %s: %.1f/10 - %s\n", sc.Criterion, sc.Score, sc.Justification)
		}
	}
	b.WriteString("\n## Insights\n")
	for n, insight := range s.Insights {
		fmt.Fprintf(&b, "- Insight %d: %s\n", n+1, insight)
	}
	b.WriteString("\n## Trends\n")
	for _, t := range s.Trends {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString("\nWrite the final innovation report: executive summary, the ranked ideas with " +
		"their scores and rationale, and recommended next steps.")
	return clip(b.String(), maxPromptChars)
}
