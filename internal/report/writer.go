package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nregsmp/nregsreport/internal/model"
)

// Format is a report output format.
type Format string

const (
	// FormatMarkdown renders GitHub-flavored Markdown.
	FormatMarkdown Format = "markdown"

	// FormatJSON renders the document as indented JSON.
	FormatJSON Format = "json"

	// FormatText renders plain text for terminals and printing.
	FormatText Format = "text"
)

// ParseFormat returns the format with the given name.
// The file extensions "md" and "txt" are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q", name)
	}
}

// Extension returns the file extension of the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatText:
		return "txt"
	default:
		return "md"
	}
}

// Writer defines the interface for report output.
type Writer interface {
	// Write renders the document to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(doc *model.ReportDocument) (int, error)
}

// NewWriter returns the writer for format that outputs to w.
func NewWriter(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FormatMarkdown, "":
		return NewMarkdownWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w, WithPrettyPrint()), nil
	case FormatText:
		return NewTextWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", string(format))
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// reportTitle is the heading of every rendered report.
const reportTitle = "NREGA District Report"

// generatedLayout formats the generation timestamp.
const generatedLayout = "2006-01-02 15:04:05 MST"

// formatMarks renders marks with at most two decimals.
func formatMarks(f float64) string {
	return strconv.FormatFloat(model.Round2(f), 'f', -1, 64)
}

// formatOutOf renders "marks / max", or just the marks when max is unknown.
func formatOutOf(marks, maxMarks float64) string {
	if maxMarks <= 0 {
		return formatMarks(marks)
	}
	return formatMarks(marks) + " / " + formatMarks(maxMarks)
}

// formatDiff renders a signed difference.
func formatDiff(f float64) string {
	if f > 0 {
		return "+" + formatMarks(f)
	}
	return formatMarks(f)
}

// providerLabel renders "provider (model)".
func providerLabel(doc *model.ReportDocument) string {
	switch {
	case doc.Provider == "":
		return "-"
	case doc.Model == "":
		return doc.Provider
	default:
		return doc.Provider + " (" + doc.Model + ")"
	}
}

// analysisParts returns the headed parts of a structured analysis,
// skipping empty ones.
func analysisParts(a model.Analysis) [][2]string {
	parts := [][2]string{
		{"District Performance", a.DistrictPerformance},
		{"Block Performance", a.BlockPerformance},
		{"Recommendations", a.Recommendations},
	}
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p[1]) != "" {
			out = append(out, p)
		}
	}
	return out
}
