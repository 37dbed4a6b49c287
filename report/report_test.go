package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foursight-ai/foursight/pipeline"
)

func finishedState() pipeline.State {
	s := pipeline.NewState("urban farming", "agtech startup", pipeline.DefaultConfig())
	s.FinalReport = "## Executive summary\nVertical farming wins."
	s.ResearchReport = "## Landscape\nCities want local food."
	s.Notices = []string{"research: academic source unavailable"}
	s.EvaluatedIdeas = []pipeline.EvaluatedIdea{
		{
			Idea: pipeline.Idea{Title: "Robo Gardener", Description: "Tends gardens."},
			Scores: []pipeline.CriterionScore{
				{Criterion: "Originality", Score: 8},
				{Criterion: "Impact", Score: 6},
			},
			Average: 7,
		},
		{Idea: pipeline.Idea{Title: "Unscored", Description: "Evaluation failed."}},
	}
	return s
}

func TestCompose(t *testing.T) {
	doc := Compose(finishedState(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	assert.Contains(t, doc, "# Innovation Report: urban farming")
	assert.Contains(t, doc, "2026-08-30")
	assert.Contains(t, doc, "Vertical farming wins.")
	assert.Contains(t, doc, "| Robo Gardener | 8.0 | 6.0 | 7.0 |")
	assert.Contains(t, doc, "| Unscored | - | - | 0.0 |")
	assert.Contains(t, doc, "## Appendix: research report")
	assert.Contains(t, doc, "## Run notices")
	assert.Contains(t, doc, "academic source unavailable")
}

func TestRenderHTML(t *testing.T) {
	t.Run("renders headings and tables", func(t *testing.T) {
		html := string(RenderHTML("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
		assert.Contains(t, html, "<h1")
		assert.Contains(t, html, "<table>")
	})

	t.Run("strips scripts", func(t *testing.T) {
		html := string(RenderHTML("hello <script>alert(1)</script> world"))
		assert.NotContains(t, html, "<script>")
	})
}

func TestWriterWrite(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	w := NewWriter(dir, WithClock(func() time.Time { return at }))

	mdPath, htmlPath, err := w.Write(finishedState())
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(mdPath, "urban-farming-20260830-120000.md"))
	assert.True(t, strings.HasSuffix(htmlPath, ".html"))

	md, err := os.ReadFile(mdPath)
	assert.NoError(t, err)
	assert.Contains(t, string(md), "Innovation Report")

	html, err := os.ReadFile(htmlPath)
	assert.NoError(t, err)
	assert.Contains(t, string(html), "<h1")
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "urban-farming", slug("Urban Farming"))
	assert.Equal(t, "ai-agents", slug("  AI / Agents!  "))
	assert.Equal(t, "report", slug("???"))
}
