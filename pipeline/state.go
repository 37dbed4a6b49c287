// Package pipeline runs the six-stage innovation engine: research the
// topic across four sources, process the gathered documents through a
// hybrid retrieval index, then analyze trends, synthesize insights,
// generate ideas, and score them.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/foursight-ai/foursight/retrieval"
	"github.com/foursight-ai/foursight/search"
)

// StageName identifies a pipeline stage in run order.
type StageName string

const (
	StageResearch      StageName = "research"
	StageProcess       StageName = "process"
	StageAnalyzeTrends StageName = "analyze_trends"
	StageSynthesize    StageName = "synthesize"
	StageIdealize      StageName = "idealize"
	StageEvaluate      StageName = "evaluate"
)

// Config carries the per-run knobs. Zero values are filled in by
// DefaultConfig.
type Config struct {
	MaxWebResults       int
	MaxAcademicResults  int
	MaxCommunityResults int
	MaxProductResults   int
	MaxDocuments        int
	RetrievalTopK       int
	RetrievalAlpha      float64
	ChunkSize           int
	ChunkOverlap        int
	SourceTimeout       time.Duration
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{
		MaxWebResults:       5,
		MaxAcademicResults:  5,
		MaxCommunityResults: 5,
		MaxProductResults:   5,
		MaxDocuments:        3,
		RetrievalTopK:       5,
		RetrievalAlpha:      0.5,
		ChunkSize:           retrieval.DefaultMaxChunkSize,
		ChunkOverlap:        retrieval.DefaultOverlap,
		SourceTimeout:       30 * time.Second,
	}
}

// ProcessedDocument is the indexed-and-summarized form of one fetched
// document. A document that could not be fetched or summarized keeps
// its slot with an empty Summary, so the slice length always equals the
// number of attempts.
type ProcessedDocument struct {
	Title   string
	URL     string
	Source  string
	Summary string
	Chunks  int
}

// Failed reports whether this slot is a failure marker.
func (d ProcessedDocument) Failed() bool { return d.Summary == "" }

// Trend is one technology or market trend extracted from the research
// material.
type Trend struct {
	Name        string
	Maturity    string
	Description string
	Impact      string
	Sources     []string
}

// Idea is one generated innovation idea.
type Idea struct {
	Title       string
	Description string
}

// CriterionScore is one scored evaluation criterion in [0, 10] with the
// evaluator's one-line justification.
type CriterionScore struct {
	Criterion     string
	Score         float64
	Justification string
}

// EvaluatedIdea pairs an idea with its criterion scores. An idea whose
// evaluation failed keeps its slot with no scores.
type EvaluatedIdea struct {
	Idea    Idea
	Scores  []CriterionScore
	Average float64
}

// State is the value threaded through the stages. Accumulators are
// append-only; a stage receives a clone and never mutates its caller's
// slices.
type State struct {
	RunID           string
	Topic           string
	BusinessContext string
	Config          Config

	WebResults       []search.Result
	AcademicResults  []search.Result
	CommunityResults []search.Result
	ProductResults   []search.Result

	Documents      []ProcessedDocument
	Trends         []Trend
	Insights       []string
	Ideas          []Idea
	EvaluatedIdeas []EvaluatedIdea

	ResearchReport string
	FinalReport    string

	CurrentStage StageName
	Err          *RunError
	Notices      []string
}

// Completed reports whether the run finished every stage.
func (s State) Completed() bool {
	return s.Err == nil && s.CurrentStage == StageEvaluate && s.FinalReport != ""
}

// NewState seeds a run state for the given topic.
func NewState(topic, businessContext string, cfg Config) State {
	return State{
		RunID:           uuid.NewString(),
		Topic:           topic,
		BusinessContext: businessContext,
		Config:          cfg,
		CurrentStage:    StageResearch,
	}
}

// Clone deep-copies every accumulator slice so the caller's state stays
// untouched by whatever the next stage appends.
func (s State) Clone() State {
	out := s
	out.WebResults = cloneSlice(s.WebResults)
	out.AcademicResults = cloneSlice(s.AcademicResults)
	out.CommunityResults = cloneSlice(s.CommunityResults)
	out.ProductResults = cloneSlice(s.ProductResults)
	out.Documents = cloneSlice(s.Documents)
	out.Trends = cloneSlice(s.Trends)
	out.Insights = cloneSlice(s.Insights)
	out.Ideas = cloneSlice(s.Ideas)
	out.EvaluatedIdeas = cloneSlice(s.EvaluatedIdeas)
	out.Notices = cloneSlice(s.Notices)
	return out
}

// AllSearchResults returns every accumulated result across the four
// sources, web first, in within-source order.
func (s State) AllSearchResults() []search.Result {
	out := make([]search.Result, 0,
		len(s.WebResults)+len(s.AcademicResults)+len(s.CommunityResults)+len(s.ProductResults))
	out = append(out, s.WebResults...)
	out = append(out, s.AcademicResults...)
	out = append(out, s.CommunityResults...)
	out = append(out, s.ProductResults...)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
