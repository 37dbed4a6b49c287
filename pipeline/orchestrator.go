package pipeline

import (
	"context"
	"fmt"

	"github.com/foursight-ai/foursight/docstore"
	"github.com/foursight-ai/foursight/log"
	"github.com/foursight-ai/foursight/retrieval"
	"github.com/foursight-ai/foursight/search"
)

// Stage is one pipeline step. Execute is total: it never panics outward
// and never returns an error; failures are recorded on the returned
// state's Err field.
type Stage interface {
	Name() StageName
	Execute(ctx context.Context, s State) State
}

// Completer is the completion capability the stages consume. The llm
// package's client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt, system string, maxTokens int) (string, error)
}

// Listener observes stage boundaries, for progress reporting.
type Listener interface {
	StageStarted(name StageName, index, total int)
	StageFinished(name StageName, s State)
}

type noopListener struct{}

func (noopListener) StageStarted(StageName, int, int) {}
func (noopListener) StageFinished(StageName, State)   {}

// Orchestrator drives the stages in their fixed order and applies the
// failure policy between them.
type Orchestrator struct {
	stages   []Stage
	logger   log.Logger
	listener Listener
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger log.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithListener sets a stage boundary listener.
func WithListener(l Listener) OrchestratorOption {
	return func(o *Orchestrator) { o.listener = l }
}

// NewOrchestrator builds an orchestrator over an explicit stage list.
func NewOrchestrator(stages []Stage, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		stages:   stages,
		logger:   log.GetDefaultLogger(),
		listener: noopListener{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Dependencies collects the collaborators the standard pipeline needs.
type Dependencies struct {
	Web       search.Source
	Academic  search.Source
	Community search.Source
	Product   search.Source
	Store     docstore.Store
	Completer Completer
	Embedder  retrieval.Embedder
	Logger    log.Logger
}

// NewPipeline wires the six standard stages in run order.
func NewPipeline(deps Dependencies, opts ...OrchestratorOption) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	stages := []Stage{
		NewResearchStage(deps.Web, deps.Academic, deps.Community, deps.Product, logger),
		NewProcessStage(deps.Store, deps.Completer, deps.Embedder, logger),
		NewAnalyzeTrendsStage(deps.Completer, logger),
		NewSynthesizeStage(deps.Completer, logger),
		NewIdealizeStage(deps.Completer, logger),
		NewEvaluateStage(deps.Completer, logger),
	}
	opts = append([]OrchestratorOption{WithOrchestratorLogger(logger)}, opts...)
	return NewOrchestrator(stages, opts...)
}

// notifyStarted shields the run from a panicking listener.
func (o *Orchestrator) notifyStarted(name StageName, index, total int) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("stage listener panicked in StageStarted(%s): %v", name, r)
		}
	}()
	o.listener.StageStarted(name, index, total)
}

func (o *Orchestrator) notifyFinished(name StageName, s State) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("stage listener panicked in StageFinished(%s): %v", name, r)
		}
	}()
	o.listener.StageFinished(name, s)
}

// Run executes the pipeline for a topic. The returned state either
// completed every stage (Completed() reports true) or halted at the
// failing stage with Err set. Recoverable stage failures end up in
// Notices instead.
func (o *Orchestrator) Run(ctx context.Context, topic, businessContext string, cfg Config) State {
	s := NewState(topic, businessContext, cfg)
	o.logger.Info("run %s started: topic=%q stages=%d", s.RunID, topic, len(o.stages))

	for i, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			s.CurrentStage = stage.Name()
			s.Err = newRunError(ErrTimeout, stage.Name(), "run cancelled: %v", err)
			o.logger.Warn("run %s cancelled before %s", s.RunID, stage.Name())
			return s
		}

		s.CurrentStage = stage.Name()
		o.notifyStarted(stage.Name(), i, len(o.stages))
		o.logger.Debug("run %s: stage %s starting", s.RunID, stage.Name())

		s = stage.Execute(ctx, s.Clone())

		if s.Err != nil {
			if s.Err.Blocking() {
				o.logger.Error("run %s halted at %s: %v", s.RunID, stage.Name(), s.Err)
				o.notifyFinished(stage.Name(), s)
				return s
			}
			notice := fmt.Sprintf("%s: %v", stage.Name(), s.Err.Err)
			s.Notices = append(s.Notices, notice)
			o.logger.Warn("run %s: recovered at %s: %v", s.RunID, stage.Name(), s.Err)
			s.Err = nil
		}
		o.notifyFinished(stage.Name(), s)
	}

	o.logger.Info("run %s complete: %d trends, %d insights, %d ideas", s.RunID, len(s.Trends), len(s.Insights), len(s.Ideas))
	return s
}
