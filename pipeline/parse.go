package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The later stages ask the model for line-structured markdown and parse
// it here. Each format has a strict parser matching the requested shape
// and a lenient one that salvages a response the model formatted
// loosely. Only both failing makes a response malformed.

var (
	trendFieldRe  = regexp.MustCompile(`^[-*]?\s*\*\*(Maturity|Description|Sources|Impact)\s*:?\*\*:?\s*(.+)$`)
	insightRe     = regexp.MustCompile(`(?i)^[-*]\s*Insight\s*\d+\s*:\s*(.+)$`)
	bulletRe      = regexp.MustCompile(`^(?:[-*]|\d+[.)])\s+(.+)$`)
	scoreLineRe   = regexp.MustCompile(`(?i)^[-*]?\s*\*{0,2}(Originality|Feasibility|Impact|Scalability|Context[ -]?Fit)\*{0,2}\s*:\s*\*{0,2}(\d+(?:\.\d+)?)\s*/\s*10\*{0,2}\s*(?:[-:\x{2013}\x{2014}]\s*)?(.*)$`)
	headingRe     = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	ideaDivider   = regexp.MustCompile(`^-{3,}\s*$`)
	trailingColon = regexp.MustCompile(`\s*:\s*$`)
)

// evaluationCriteria are the five fixed scoring axes, in report order.
var evaluationCriteria = []string{"Originality", "Feasibility", "Impact", "Scalability", "Context Fit"}

// parseTrends expects "## <name>" sections carrying bolded Maturity,
// Description, Sources, and Impact fields.
func parseTrends(text string) ([]Trend, error) {
	var trends []Trend
	var cur *Trend
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := headingRe.FindStringSubmatch(line); m != nil && len(m[1]) == 2 {
			trends = append(trends, Trend{Name: trailingColon.ReplaceAllString(m[2], "")})
			cur = &trends[len(trends)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if m := trendFieldRe.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch m[1] {
			case "Maturity":
				cur.Maturity = value
			case "Description":
				cur.Description = value
			case "Sources":
				cur.Sources = splitList(value)
			case "Impact":
				cur.Impact = value
			}
		}
	}
	if len(trends) == 0 {
		return nil, fmt.Errorf("no trend sections found")
	}
	for _, t := range trends {
		if t.Description == "" {
			return nil, fmt.Errorf("trend %q has no description", t.Name)
		}
	}
	return trends, nil
}

// parseTrendsLenient takes any heading as a trend name and the prose
// below it as the description.
func parseTrendsLenient(text string) ([]Trend, error) {
	var trends []Trend
	var cur *Trend
	var desc []string
	flush := func() {
		if cur != nil {
			cur.Description = strings.TrimSpace(strings.Join(desc, " "))
			desc = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			trends = append(trends, Trend{Name: trailingColon.ReplaceAllString(m[2], "")})
			cur = &trends[len(trends)-1]
			continue
		}
		if cur != nil && line != "" {
			desc = append(desc, strings.Trim(line, "-* "))
		}
	}
	flush()
	out := trends[:0]
	for _, t := range trends {
		if t.Description != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable trends found")
	}
	return out, nil
}

// parseInsights expects "- Insight N: <text>" lines.
func parseInsights(text string) ([]string, error) {
	var insights []string
	for _, line := range strings.Split(text, "\n") {
		if m := insightRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			insights = append(insights, strings.TrimSpace(m[1]))
		}
	}
	if len(insights) == 0 {
		return nil, fmt.Errorf("no insight lines found")
	}
	return insights, nil
}

// parseInsightsLenient takes any bulleted or numbered line.
func parseInsightsLenient(text string) ([]string, error) {
	var insights []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			insights = append(insights, strings.TrimSpace(m[1]))
		}
	}
	if len(insights) == 0 {
		return nil, fmt.Errorf("no bullet lines found")
	}
	return insights, nil
}

// parseIdeas expects "---"-separated blocks, each opening with a
// "# <title>" heading followed by the description.
func parseIdeas(text string) ([]Idea, error) {
	var ideas []Idea
	for _, block := range splitOnDividers(text) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 {
			continue
		}
		m := headingRe.FindStringSubmatch(strings.TrimSpace(lines[0]))
		if m == nil || len(m[1]) != 1 {
			return nil, fmt.Errorf("idea block does not open with a title heading")
		}
		desc := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		if desc == "" {
			return nil, fmt.Errorf("idea %q has no description", m[2])
		}
		ideas = append(ideas, Idea{Title: strings.TrimSpace(m[2]), Description: desc})
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("no idea blocks found")
	}
	return ideas, nil
}

// parseIdeasLenient treats every heading as an idea title and the text
// below it as the description.
func parseIdeasLenient(text string) ([]Idea, error) {
	var ideas []Idea
	var desc []string
	flush := func() {
		if len(ideas) > 0 {
			ideas[len(ideas)-1].Description = strings.TrimSpace(strings.Join(desc, "\n"))
		}
		desc = nil
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			ideas = append(ideas, Idea{Title: strings.TrimSpace(m[2])})
			continue
		}
		if trimmed != "" && !ideaDivider.MatchString(trimmed) {
			desc = append(desc, trimmed)
		}
	}
	flush()
	out := ideas[:0]
	for _, idea := range ideas {
		if idea.Description != "" {
			out = append(out, idea)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable ideas found")
	}
	return out, nil
}

// parseScores extracts "<criterion>: <n>/10 - <justification>" lines
// for the five fixed criteria. Scores are clamped into [0, 10]; unknown
// criteria are ignored; a criterion the model skipped simply stays
// absent.
func parseScores(text string) ([]CriterionScore, error) {
	seen := make(map[string]bool)
	var scores []CriterionScore
	for _, line := range strings.Split(text, "\n") {
		m := scoreLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		criterion := canonicalCriterion(m[1])
		if criterion == "" || seen[criterion] {
			continue
		}
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if value < 0 {
			value = 0
		}
		if value > 10 {
			value = 10
		}
		seen[criterion] = true
		scores = append(scores, CriterionScore{
			Criterion:     criterion,
			Score:         value,
			Justification: strings.TrimSpace(m[3]),
		})
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("no criterion scores found")
	}
	return scores, nil
}

// averageScore is the arithmetic mean over the criteria actually
// parsed. No scores means zero, never a division by zero.
func averageScore(scores []CriterionScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

func canonicalCriterion(raw string) string {
	normalized := strings.ToLower(strings.NewReplacer(" ", "", "-", "").Replace(raw))
	for _, c := range evaluationCriteria {
		if normalized == strings.ToLower(strings.ReplaceAll(c, " ", "")) {
			return c
		}
	}
	return ""
}

func splitOnDividers(text string) []string {
	var blocks []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		if ideaDivider.MatchString(strings.TrimSpace(line)) {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
			continue
		}
		cur = append(cur, line)
	}
	blocks = append(blocks, strings.Join(cur, "\n"))
	out := blocks[:0]
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
