package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nregsmp/nregsreport/internal/model"
)

// ruleWidth is the width of the horizontal rules in text output.
const ruleWidth = 70

// TextWriter outputs plain-text reports for terminals and printing.
type TextWriter struct {
	baseWriter

	// showUsage adds token usage per section.
	showUsage bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithUsage adds the token usage of each section to the output.
func WithUsage(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showUsage = show
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the document as plain text.
func (w *TextWriter) Write(doc *model.ReportDocument) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, doc)
	w.writeScorecard(&sb, doc.Scorecard)
	w.writeSections(&sb, doc)
	w.writeFooter(&sb, doc)

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeHeader(sb *strings.Builder, doc *model.ReportDocument) {
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	sb.WriteString(strings.ToUpper(reportTitle) + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	fmt.Fprintf(sb, "District:   %s\n", doc.District.Name)
	fmt.Fprintf(sb, "Division:   %s\n", doc.District.Division)
	fmt.Fprintf(sb, "Data Date:  %s\n", doc.DateString())
	fmt.Fprintf(sb, "Generated:  %s\n", doc.GeneratedAt.Format(generatedLayout))
	fmt.Fprintf(sb, "Model:      %s\n", providerLabel(doc))
	sb.WriteString("\n")
}

func (w *TextWriter) writeScorecard(sb *strings.Builder, sc *model.Scorecard) {
	if sc == nil {
		return
	}

	writeHeading(sb, "SCORECARD")
	fmt.Fprintf(sb, "  Overall marks:      %s\n", formatOutOf(sc.Marks, sc.MaxMarks))
	fmt.Fprintf(sb, "  Grade:              %s\n", sc.Grade)
	fmt.Fprintf(sb, "  State rank:         %d of %d\n", sc.Rank, sc.TotalDistricts)
	fmt.Fprintf(sb, "  State average:      %s (%s)\n", formatMarks(sc.StateAverage), formatDiff(sc.DiffFromStateAverage))
	fmt.Fprintf(sb, "  Top district:       %s\n", sc.TopDistrict)
	fmt.Fprintf(sb, "  Bottom district:    %s\n", sc.BottomDistrict)
	sb.WriteString("\n")

	for _, c := range sc.Components {
		marks := "n/a"
		if c.Available {
			marks = formatOutOf(c.Marks, c.MaxMarks)
		}
		fmt.Fprintf(sb, "  %-28s %s\n", c.Section.Title(), marks)
	}
	if sc.ExtraMarks != 0 {
		fmt.Fprintf(sb, "  %-28s %s\n", "Payments and Recovery", formatMarks(sc.ExtraMarks))
	}
	sb.WriteString("\n")

	if len(sc.TopDistricts) > 0 {
		writeStandings(sb, "Top districts", sc.TopDistricts)
		writeStandings(sb, "Bottom districts", sc.BottomDistricts)
	}

	if len(sc.Blocks) == 0 {
		return
	}
	sb.WriteString("  Blocks:\n")
	for i, b := range sc.Blocks {
		fmt.Fprintf(sb, "    %2d. %-24s %-8s %s  %s\n", i+1, b.Name, formatMarks(b.Marks), b.Grade, formatDiff(b.DiffFromStateAverage))
	}
	if len(sc.ExcludedBlocks) > 0 {
		fmt.Fprintf(sb, "  Left out as outliers: %s\n", strings.Join(sc.ExcludedBlocks, ", "))
	}
	sb.WriteString("\n")

	for _, b := range sc.Blocks {
		if len(b.TopPanchayats) == 0 {
			continue
		}
		writeStandings(sb, "Top panchayats of "+b.Name, b.TopPanchayats)
		writeStandings(sb, "Bottom panchayats of "+b.Name, b.BottomPanchayats)
	}
}

func writeStandings(sb *strings.Builder, title string, standings []model.Standing) {
	fmt.Fprintf(sb, "  %s:\n", title)
	for _, s := range standings {
		fmt.Fprintf(sb, "    %-28s %-8s %s\n", s.Name, formatMarks(s.Marks), s.Grade)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeSections(sb *strings.Builder, doc *model.ReportDocument) {
	for _, r := range doc.Sections {
		writeHeading(sb, strings.ToUpper(r.Section.Title()))

		if r.Status.IsPlaceholder() {
			fmt.Fprintf(sb, "[%s] %s\n\n", r.Status, r.Placeholder())
			continue
		}

		parts := analysisParts(r.Analysis)
		if len(parts) == 0 {
			sb.WriteString(r.Analysis.Text + "\n\n")
		}
		for _, p := range parts {
			sb.WriteString(p[0] + ":\n")
			sb.WriteString(p[1] + "\n\n")
		}

		if w.showUsage {
			fmt.Fprintf(sb, "  (tokens: %d in, %d out)\n\n", r.Usage.InputTokens, r.Usage.OutputTokens)
		}
	}
}

func (w *TextWriter) writeFooter(sb *strings.Builder, doc *model.ReportDocument) {
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	if doc.PreparedBy != "" {
		fmt.Fprintf(sb, "Prepared by %s\n", doc.PreparedBy)
	}
	fmt.Fprintf(sb, "Data as of %s. Generated on %s.\n", doc.DateString(), doc.GeneratedAt.Format(model.DateLayout))
}

// writeHeading writes an underlined section heading.
func writeHeading(sb *strings.Builder, title string) {
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth) + "\n")
}
