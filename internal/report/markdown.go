package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nregsmp/nregsreport/internal/district"
	"github.com/nregsmp/nregsreport/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter

	// chart enables the mermaid pie chart of component marks.
	chart bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithChart enables or disables the marks chart under the scorecard.
func WithChart(enabled bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.chart = enabled
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		chart:      true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the document in Markdown format.
func (w *MarkdownWriter) Write(doc *model.ReportDocument) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, doc)
	w.writeScorecard(md, doc.Scorecard)
	w.writeSections(md, doc)
	w.writeFooter(md, doc)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, doc *model.ReportDocument) {
	md.H1(reportTitle + ": " + district.DisplayName(doc.District))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"District", doc.District.Name},
			{"Division", doc.District.Division},
			{"Data Date", doc.DateString()},
			{"Generated", doc.GeneratedAt.Format(generatedLayout)},
			{"Model", providerLabel(doc)},
		},
	})
	md.PlainText("")

	if missing := doc.CountByStatus(model.StatusNoData) + doc.CountByStatus(model.StatusGenerationFailed); missing > 0 {
		md.Importantf("%d of %d sections could not be completed and are shown as placeholders.",
			missing, len(doc.Sections))
		md.PlainText("")
	}
}

// writeScorecard writes the overall standing of the district.
func (w *MarkdownWriter) writeScorecard(md *markdown.Markdown, sc *model.Scorecard) {
	if sc == nil {
		return
	}

	md.H2("Scorecard")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Measure", "Value"},
		Rows: [][]string{
			{"Overall Marks", "**" + formatOutOf(sc.Marks, sc.MaxMarks) + "**"},
			{"Grade", sc.Grade},
			{"State Rank", strconv.Itoa(sc.Rank) + " of " + strconv.Itoa(sc.TotalDistricts)},
			{"State Average", formatMarks(sc.StateAverage)},
			{"Difference from Average", formatDiff(sc.DiffFromStateAverage)},
			{"Top District", sc.TopDistrict},
			{"Bottom District", sc.BottomDistrict},
		},
	})
	md.PlainText("")

	if sc.AboveStateAverage() {
		md.Tipf("%s scores %s marks above the state average.", sc.District, formatMarks(sc.DiffFromStateAverage))
	} else {
		md.Warningf("%s scores %s marks below the state average.", sc.District, formatMarks(-sc.DiffFromStateAverage))
	}
	md.PlainText("")

	rows := make([][]string, 0, len(sc.Components)+1)
	for _, c := range sc.Components {
		marks := "n/a"
		if c.Available {
			marks = formatOutOf(c.Marks, c.MaxMarks)
		}
		rows = append(rows, []string{c.Section.Title(), marks})
	}
	if sc.ExtraMarks != 0 {
		rows = append(rows, []string{"Payments and Recovery", formatMarks(sc.ExtraMarks)})
	}
	md.H3("Marks by Component")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Component", "Marks"},
		Rows:   rows,
	})
	md.PlainText("")

	if w.chart {
		w.writePieChart(md, sc)
	}

	w.writeLeaderboard(md, sc)
	w.writeBlocks(md, sc)
}

// writeLeaderboard writes the best and worst districts of the state.
func (w *MarkdownWriter) writeLeaderboard(md *markdown.Markdown, sc *model.Scorecard) {
	if len(sc.TopDistricts) == 0 {
		return
	}

	md.H3("District Leaderboard")
	md.PlainText("")
	md.Table(standingsTable("Top Districts", sc.TopDistricts, 1))
	md.PlainText("")
	md.Table(standingsTable("Bottom Districts", sc.BottomDistricts, sc.TotalDistricts-len(sc.BottomDistricts)+1))
	md.PlainText("")
}

// writeBlocks writes the block scorecard and, when present, the
// panchayat leaderboards of every block.
func (w *MarkdownWriter) writeBlocks(md *markdown.Markdown, sc *model.Scorecard) {
	if len(sc.Blocks) == 0 {
		return
	}

	md.H3("Block Scorecard")
	md.PlainText("")

	rows := make([][]string, 0, len(sc.Blocks))
	for i, b := range sc.Blocks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			b.Name,
			formatOutOf(b.Marks, sc.MaxMarks),
			b.Grade,
			formatDiff(b.DiffFromStateAverage),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Block", "Marks", "Grade", "vs State Average"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(sc.ExcludedBlocks) > 0 {
		md.Notef("Left out as outliers: %s.", strings.Join(sc.ExcludedBlocks, ", "))
		md.PlainText("")
	}

	header := []string{"Component"}
	for _, b := range sc.Blocks {
		header = append(header, b.Name)
	}
	components := make([][]string, 0, len(sc.Components)+1)
	for i, c := range sc.Components {
		row := []string{c.Section.Title()}
		for _, b := range sc.Blocks {
			row = append(row, blockComponentMarks(b, i))
		}
		components = append(components, row)
	}
	extra := []string{"Payments and Recovery"}
	for _, b := range sc.Blocks {
		extra = append(extra, formatMarks(b.ExtraMarks))
	}
	components = append(components, extra)

	md.H3("Block Marks by Component")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: header, Rows: components})
	md.PlainText("")

	for _, b := range sc.Blocks {
		if len(b.TopPanchayats) == 0 {
			continue
		}
		md.H4("Panchayats of " + b.Name)
		md.PlainText("")
		md.Table(standingsTable("Top Panchayats", b.TopPanchayats, 0))
		md.PlainText("")
		md.Table(standingsTable("Bottom Panchayats", b.BottomPanchayats, 0))
		md.PlainText("")
	}
}

// standingsTable renders standings numbered from first, or unnumbered
// when first is not positive.
func standingsTable(title string, standings []model.Standing, first int) markdown.TableSet {
	rows := make([][]string, 0, len(standings))
	for i, s := range standings {
		pos := "-"
		if first > 0 {
			pos = strconv.Itoa(first + i)
		}
		rows = append(rows, []string{pos, s.Name, formatMarks(s.Marks), s.Grade})
	}
	return markdown.TableSet{
		Header: []string{"#", title, "Marks", "Grade"},
		Rows:   rows,
	}
}

// blockComponentMarks renders the marks of component i of b.
func blockComponentMarks(b model.BlockStanding, i int) string {
	if i >= len(b.Components) || !b.Components[i].Available {
		return "n/a"
	}
	return formatMarks(b.Components[i].Marks)
}

// writePieChart writes a mermaid pie chart of the marks of each component.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, sc *model.Scorecard) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Share of Overall Marks"),
		piechart.WithShowData(true),
	)

	points := 0
	for _, c := range sc.Components {
		if c.Available && c.Marks > 0 {
			chart.LabelAndFloatValue(c.Section.Title(), model.Round2(c.Marks))
			points++
		}
	}
	if sc.ExtraMarks > 0 {
		chart.LabelAndFloatValue("Payments and Recovery", model.Round2(sc.ExtraMarks))
		points++
	}
	if points == 0 {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSections writes every section in report order.
func (w *MarkdownWriter) writeSections(md *markdown.Markdown, doc *model.ReportDocument) {
	for _, r := range doc.Sections {
		md.H2(r.Section.Title())
		md.PlainText("")

		switch r.Status {
		case model.StatusNoData:
			md.Note(r.Placeholder())
			md.PlainText("")
			continue
		case model.StatusGenerationFailed:
			md.Warning(r.Placeholder())
			md.PlainText("")
			continue
		}

		parts := analysisParts(r.Analysis)
		if len(parts) == 0 {
			md.PlainText(r.Analysis.Text)
			md.PlainText("")
			continue
		}
		for _, p := range parts {
			md.H3(p[0])
			md.PlainText("")
			md.PlainText(p[1])
			md.PlainText("")
		}
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, doc *model.ReportDocument) {
	md.HorizontalRule()
	md.PlainText("")
	if doc.PreparedBy != "" {
		md.PlainTextf("*Prepared by %s*", doc.PreparedBy)
		md.PlainText("")
	}
	md.PlainTextf("*Data as of %s. Generated on %s.*", doc.DateString(), doc.GeneratedAt.Format(model.DateLayout))
}
