package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/foursight-ai/foursight/log"
	"github.com/foursight-ai/foursight/search"
)

// ResearchStage queries the four sources concurrently and accumulates
// whatever they return. A dead source is a notice, not a failure; four
// empty sources halt the run.
type ResearchStage struct {
	sources [4]search.Source
	logger  log.Logger
}

// NewResearchStage wires the four sources in their fixed slots: web,
// academic, community, product. A nil source is treated as unavailable.
func NewResearchStage(web, academic, community, product search.Source, logger log.Logger) *ResearchStage {
	return &ResearchStage{
		sources: [4]search.Source{web, academic, community, product},
		logger:  logger,
	}
}

// Name implements Stage.
func (r *ResearchStage) Name() StageName { return StageResearch }

// Execute implements Stage. Each source runs in its own goroutine with
// its own timeout; results land in indexed slots so within-source order
// survives the join.
func (r *ResearchStage) Execute(ctx context.Context, s State) State {
	limits := [4]int{
		s.Config.MaxWebResults,
		s.Config.MaxAcademicResults,
		s.Config.MaxCommunityResults,
		s.Config.MaxProductResults,
	}

	var (
		wg      sync.WaitGroup
		results [4][]search.Result
		errs    [4]error
	)
	for i, src := range r.sources {
		if src == nil {
			errs[i] = fmt.Errorf("source not configured")
			continue
		}
		wg.Add(1)
		go func(i int, src search.Source) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					errs[i] = fmt.Errorf("source %s panicked: %v", src.Name(), p)
				}
			}()
			branchCtx := ctx
			if s.Config.SourceTimeout > 0 {
				var cancel context.CancelFunc
				branchCtx, cancel = context.WithTimeout(ctx, s.Config.SourceTimeout)
				defer cancel()
			}
			results[i], errs[i] = src.Search(branchCtx, s.Topic, limits[i])
		}(i, src)
	}
	wg.Wait()

	var failed []string
	for i, src := range r.sources {
		if errs[i] != nil {
			name := "unknown"
			if src != nil {
				name = src.Name()
			}
			r.logger.Warn("research: %s source failed: %v", name, errs[i])
			failed = append(failed, fmt.Sprintf("%s (%v)", name, errs[i]))
		}
	}

	s.WebResults = append(s.WebResults, results[0]...)
	s.AcademicResults = append(s.AcademicResults, results[1]...)
	s.CommunityResults = append(s.CommunityResults, results[2]...)
	s.ProductResults = append(s.ProductResults, results[3]...)

	total := len(results[0]) + len(results[1]) + len(results[2]) + len(results[3])
	if total == 0 {
		s.Err = newRunError(ErrNoUsableData, StageResearch, "all sources returned nothing for %q", s.Topic)
		return s
	}
	r.logger.Info("research: %d results (%d web, %d academic, %d community, %d product)",
		total, len(results[0]), len(results[1]), len(results[2]), len(results[3]))
	if len(failed) > 0 {
		s.Err = newRunError(ErrSourceUnavailable, StageResearch, "sources unavailable: %s", strings.Join(failed, "; "))
	}
	return s
}
