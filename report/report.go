// Package report turns a finished run into report files: the markdown
// document itself and a sanitized HTML rendering.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/foursight-ai/foursight/log"
	"github.com/foursight-ai/foursight/pipeline"
)

var htmlPolicy = bluemonday.UGCPolicy()

// Writer renders run reports into a directory.
type Writer struct {
	dir    string
	logger log.Logger
	now    func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger.
func WithWriterLogger(logger log.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// NewWriter creates a report writer targeting dir.
func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := &Writer{
		dir:    dir,
		logger: log.GetDefaultLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the run into <dir>/<topic-slug>-<timestamp>.md and .html
// and returns both paths.
func (w *Writer) Write(s pipeline.State) (string, string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("report: failed to create %s: %w", w.dir, err)
	}

	doc := Compose(s, w.now())
	base := fmt.Sprintf("%s-%s", slug(s.Topic), w.now().Format("20060102-150405"))
	mdPath := filepath.Join(w.dir, base+".md")
	htmlPath := filepath.Join(w.dir, base+".html")

	if err := os.WriteFile(mdPath, []byte(doc), 0o644); err != nil {
		return "", "", fmt.Errorf("report: failed to write %s: %w", mdPath, err)
	}
	if err := os.WriteFile(htmlPath, RenderHTML(doc), 0o644); err != nil {
		return "", "", fmt.Errorf("report: failed to write %s: %w", htmlPath, err)
	}
	w.logger.Info("report: wrote %s and %s", mdPath, htmlPath)
	return mdPath, htmlPath, nil
}

// Compose assembles the full report document for a run: header, the
// final report, the score table, and the research appendix.
func Compose(s pipeline.State, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Innovation Report: %s\n\n", s.Topic)
	fmt.Fprintf(&b, "Run `%s` on %s.\n\n", s.RunID, at.Format("2006-01-02"))
	if s.BusinessContext != "" {
		fmt.Fprintf(&b, "Business context: %s\n\n", s.BusinessContext)
	}

	if s.FinalReport != "" {
		b.WriteString(s.FinalReport)
		b.WriteString("\n")
	}

	if len(s.EvaluatedIdeas) > 0 {
		b.WriteString("\n## Scores\n\n")
		b.WriteString("| Idea | " + strings.Join(criteriaHeader(s), " | ") + " | Average |\n")
		b.WriteString("|" + strings.Repeat("---|", len(criteriaHeader(s))+2) + "\n")
		for _, ev := range s.EvaluatedIdeas {
			row := []string{ev.Idea.Title}
			for _, name := range criteriaHeader(s) {
				row = append(row, scoreCell(ev, name))
			}
			row = append(row, fmt.Sprintf("%.1f", ev.Average))
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
	}

	if s.ResearchReport != "" {
		b.WriteString("\n## Appendix: research report\n\n")
		b.WriteString(s.ResearchReport)
		b.WriteString("\n")
	}

	if len(s.Notices) > 0 {
		b.WriteString("\n## Run notices\n\n")
		for _, n := range s.Notices {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

// RenderHTML renders markdown to sanitized HTML.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.ToHTML([]byte(md), p, renderer)
	return htmlPolicy.SanitizeBytes(rendered)
}

func criteriaHeader(s pipeline.State) []string {
	for _, ev := range s.EvaluatedIdeas {
		if len(ev.Scores) > 0 {
			names := make([]string, len(ev.Scores))
			for i, sc := range ev.Scores {
				names[i] = sc.Criterion
			}
			return names
		}
	}
	return nil
}

func scoreCell(ev pipeline.EvaluatedIdea, criterion string) string {
	for _, sc := range ev.Scores {
		if sc.Criterion == criterion {
			return fmt.Sprintf("%.1f", sc.Score)
		}
	}
	return "-"
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "report"
	}
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}
