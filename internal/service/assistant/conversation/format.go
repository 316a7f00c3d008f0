package conversation

import (
	"fmt"
	"math"
	"strings"

	models "flowbot/internal/domain/models/assistant"
)

const hypothesisPrefix = "Testing hypothesis: "

// FrameHypothesis renders the user message posted for a hypothesis test.
func FrameHypothesis(text string) string {
	return hypothesisPrefix + `"` + text + `"`
}

var conclusionLabels = map[models.Conclusion]string{
	models.ConclusionLikely:       "Likely",
	models.ConclusionUnlikely:     "Unlikely",
	models.ConclusionInconclusive: "Inconclusive",
}

// FormatVerdict renders a hypothesis result as assistant text.
func FormatVerdict(r *models.HypothesisResult) string {
	label, ok := conclusionLabels[r.Conclusion]
	if !ok {
		label = conclusionLabels[models.ConclusionInconclusive]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Verdict: %s** (confidence %d%%)\n\n", label, percent(r.Confidence))
	if analysis := strings.TrimSpace(r.Analysis); analysis != "" {
		b.WriteString(analysis)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Evidence considered: %d total, %d supporting, %d contradictory.",
		r.EvidenceCount.Total, r.EvidenceCount.Supporting, r.EvidenceCount.Contradictory)
	return b.String()
}

func percent(confidence float64) int {
	return int(math.Round(math.Max(0, math.Min(1, confidence)) * 100))
}

// titleFrom derives a report or session title from a user message.
func titleFrom(content string, limit int) string {
	content = strings.TrimSpace(strings.TrimPrefix(content, hypothesisPrefix))
	content = strings.Trim(content, `"`)
	if content == "" {
		return "FlowBot finding"
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit-3]) + "..."
}
