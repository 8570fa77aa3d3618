package llm

import (
	"regexp"
	"strings"

	"github.com/nregsmp/nregsreport/internal/model"
)

var (
	thinkingPattern = regexp.MustCompile(`(?s)<(thinking|think)>.*?</(thinking|think)>`)
	fencePattern    = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
)

// tagContent returns the trimmed content of the first <tag>...</tag> in
// text and whether the tag was found.
func tagContent(text, tag string) (string, bool) {
	open, closing := "<"+tag+">", "</"+tag+">"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, closing)
	if end < 0 {
		// A completion cut off by the token limit keeps what it has.
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// ExtractAnalysis parses a completion into an analysis.
//
// Answers in the requested <analysis> structure are split into their
// district, block and recommendation parts. Any other answer is kept as
// plain text. Reasoning blocks and Markdown code fences are removed. The
// returned analysis has empty Text when nothing usable remains.
func ExtractAnalysis(completion string) model.Analysis {
	text := thinkingPattern.ReplaceAllString(completion, "")
	text = fencePattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	body, ok := tagContent(text, "analysis")
	if !ok {
		return model.Analysis{Text: text}
	}

	var a model.Analysis
	a.DistrictPerformance, _ = tagContent(body, "district_performance")
	a.BlockPerformance, _ = tagContent(body, "block_performance")
	a.Recommendations, _ = tagContent(body, "recommendations")

	if !a.Structured() {
		a.Text = body
		return a
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{a.DistrictPerformance, a.BlockPerformance, a.Recommendations} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	a.Text = strings.Join(parts, "\n\n")
	return a
}
