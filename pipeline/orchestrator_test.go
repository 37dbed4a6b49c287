package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pipelineDeps(completer Completer) Dependencies {
	longText := strings.Repeat("Urban farms grow food inside cities. ", 40)
	return Dependencies{
		Web:       &fakeSource{name: "web", results: webResults("w1", "w2")},
		Academic:  &fakeSource{name: "academic", results: webResults("a1")},
		Community: &fakeSource{name: "community", results: webResults("c1")},
		Product:   &fakeSource{name: "product", results: webResults("p1")},
		Store: &fakeStore{texts: map[string]string{
			"https://example.com/w1": longText,
			"https://example.com/w2": longText,
			"https://example.com/a1": longText,
		}},
		Completer: completer,
		Embedder:  &unitEmbedder{},
		Logger:    testLogger(),
	}
}

func TestOrchestratorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("full run reaches completion", func(t *testing.T) {
		completer := newScriptedCompleter()
		listener := &recordingListener{}
		orch := NewPipeline(pipelineDeps(completer), WithListener(listener))

		out := orch.Run(ctx, "urban farming", "agtech startup", DefaultConfig())

		assert.Nil(t, out.Err)
		assert.True(t, out.Completed())
		assert.Equal(t, StageEvaluate, out.CurrentStage)
		assert.NotEmpty(t, out.RunID)
		assert.Len(t, out.WebResults, 2)
		assert.Len(t, out.Documents, 3)
		assert.Len(t, out.Trends, 2)
		assert.Len(t, out.Insights, 2)
		assert.Len(t, out.Ideas, 2)
		assert.Len(t, out.EvaluatedIdeas, 2)
		assert.NotEmpty(t, out.ResearchReport)
		assert.NotEmpty(t, out.FinalReport)
		assert.Empty(t, out.Notices)

		expected := []StageName{StageResearch, StageProcess, StageAnalyzeTrends, StageSynthesize, StageIdealize, StageEvaluate}
		assert.Equal(t, expected, listener.started)
		assert.Equal(t, expected, listener.finished)
	})

	t.Run("panicking listener does not take down the run", func(t *testing.T) {
		completer := newScriptedCompleter()
		orch := NewPipeline(pipelineDeps(completer), WithListener(panickyListener{}))

		out := orch.Run(ctx, "urban farming", "agtech startup", DefaultConfig())

		assert.Nil(t, out.Err)
		assert.True(t, out.Completed())
		assert.NotEmpty(t, out.FinalReport)
	})

	t.Run("recoverable failures become notices", func(t *testing.T) {
		completer := newScriptedCompleter()
		deps := pipelineDeps(completer)
		deps.Academic = &fakeSource{name: "academic", err: errors.New("api down")}
		orch := NewPipeline(deps)

		out := orch.Run(ctx, "urban farming", "", DefaultConfig())

		assert.Nil(t, out.Err)
		assert.True(t, out.Completed())
		assert.Len(t, out.Notices, 1)
		assert.Contains(t, out.Notices[0], "research")
		assert.Contains(t, out.Notices[0], "academic")
	})

	t.Run("blocking failure halts at the failing stage", func(t *testing.T) {
		completer := newScriptedCompleter()
		completer.replies["product thinker"] = "No ideas today, sorry."
		orch := NewPipeline(pipelineDeps(completer))

		out := orch.Run(ctx, "urban farming", "", DefaultConfig())

		assert.NotNil(t, out.Err)
		assert.Equal(t, StageIdealize, out.CurrentStage)
		assert.Equal(t, ErrMalformedResponse, out.Err.Kind)
		// Earlier accumulators survive the halt; later ones were never touched.
		assert.NotEmpty(t, out.Insights)
		assert.Empty(t, out.Ideas)
		assert.Empty(t, out.EvaluatedIdeas)
		assert.Empty(t, out.FinalReport)
		assert.Equal(t, 0, completer.callCount("innovation evaluator"))
	})

	t.Run("empty research halts immediately", func(t *testing.T) {
		completer := newScriptedCompleter()
		deps := pipelineDeps(completer)
		deps.Web = &fakeSource{name: "web"}
		deps.Academic = &fakeSource{name: "academic"}
		deps.Community = &fakeSource{name: "community"}
		deps.Product = &fakeSource{name: "product"}
		orch := NewPipeline(deps)

		out := orch.Run(ctx, "urban farming", "", DefaultConfig())

		assert.Equal(t, StageResearch, out.CurrentStage)
		assert.Equal(t, ErrNoUsableData, out.Err.Kind)
		assert.Equal(t, 0, completer.callCount("compiling findings"))
	})

	t.Run("cancellation stops between stages", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		orch := NewPipeline(pipelineDeps(newScriptedCompleter()))

		out := orch.Run(cancelled, "urban farming", "", DefaultConfig())

		assert.NotNil(t, out.Err)
		assert.Equal(t, ErrTimeout, out.Err.Kind)
		assert.Equal(t, StageResearch, out.CurrentStage)
	})

	t.Run("caller state stays isolated from stage appends", func(t *testing.T) {
		s := NewState("topic", "", DefaultConfig())
		s.Insights = append(s.Insights, "original")
		clone := s.Clone()
		clone.Insights = append(clone.Insights, "added")
		clone.Insights[0] = "mutated"

		assert.Equal(t, []string{"original"}, s.Insights)
		assert.Equal(t, []string{"mutated", "added"}, clone.Insights)
	})
}
