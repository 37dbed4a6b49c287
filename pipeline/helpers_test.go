package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/foursight-ai/foursight/log"
	"github.com/foursight-ai/foursight/search"
)

// fakeSource returns canned results or a canned error; it can also
// panic to exercise branch recovery.
type fakeSource struct {
	name    string
	results []search.Result
	err     error
	panics  bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if f.panics {
		panic("source exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > maxResults {
		return f.results[:maxResults], nil
	}
	return f.results, nil
}

func webResults(titles ...string) []search.Result {
	out := make([]search.Result, len(titles))
	for i, title := range titles {
		out[i] = search.Result{
			Title:       title,
			URL:         "https://example.com/" + title,
			Snippet:     "about " + title,
			Source:      "Web",
			Kind:        search.KindWeb,
			DocumentURL: "https://example.com/" + title,
		}
	}
	return out
}

// fakeStore serves fixed text per URL.
type fakeStore struct {
	texts map[string]string
	err   error
}

func (f *fakeStore) FetchText(ctx context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	text, ok := f.texts[url]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

// unitEmbedder gives every text the same vector, which is all the
// pipeline needs from an embedder.
type unitEmbedder struct{ err error }

func (u *unitEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if u.err != nil {
		return nil, u.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (u *unitEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if u.err != nil {
		return nil, u.err
	}
	return []float32{1, 0}, nil
}

// scriptedCompleter answers by matching the system prompt against the
// stage that sent it, and records every call.
type scriptedCompleter struct {
	mu      sync.Mutex
	calls   []string
	prompts []string
	fail    map[string]error // system substring -> error
	replies map[string]string
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		fail: make(map[string]error),
		replies: map[string]string{
			"Summarize": "The document covers the topic in depth.",
			"compiling findings": "# Research Report\nThe field is moving fast.",
			"trend analyst": "## Edge AI\n**Maturity:** growing\n**Description:** Compute moves to devices.\n**Sources:** A, B\n**Impact:** Faster products.\n\n## Agents\n**Maturity:** emerging\n**Description:** Software acts autonomously.\n**Impact:** New workflows.",
			"innovation strategist": "- Insight 1: Latency matters most.\n- Insight 2: Autonomy needs trust.",
			"product thinker": "# Edge Companion\nOn-device assistant for field work.\n\n---\n\n# Trust Dashboard\nShows users what agents did and why.",
			"innovation evaluator": "- Originality: 8/10 - novel pairing\n- Feasibility: 6/10 - hardware heavy\n- Impact: 9/10 - large market\n- Scalability: 7/10 - per-region rollout\n- Context Fit: 5/10 - adjacent to core business",
			"final report": "# Final Report\nEdge Companion leads the ranking.",
		},
	}
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt, system string, maxTokens int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, err := range s.fail {
		if strings.Contains(system, key) {
			return "", err
		}
	}
	for key, reply := range s.replies {
		if strings.Contains(system, key) {
			s.calls = append(s.calls, key)
			s.prompts = append(s.prompts, prompt)
			return reply, nil
		}
	}
	return "", errors.New("unexpected system prompt: " + system)
}

func (s *scriptedCompleter) callCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == key {
			n++
		}
	}
	return n
}

// recordingListener captures stage boundary notifications in order.
type recordingListener struct {
	started  []StageName
	finished []StageName
}

func (r *recordingListener) StageStarted(name StageName, index, total int) {
	r.started = append(r.started, name)
}

func (r *recordingListener) StageFinished(name StageName, s State) {
	r.finished = append(r.finished, name)
}

// panickyListener panics on every notification.
type panickyListener struct{}

func (panickyListener) StageStarted(StageName, int, int) { panic("listener blew up") }
func (panickyListener) StageFinished(StageName, State)   { panic("listener blew up") }

func testLogger() log.Logger { return &log.NoOpLogger{} }
