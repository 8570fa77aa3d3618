package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nregsmp/nregsreport/internal/config"
	"github.com/nregsmp/nregsreport/internal/database"
	"github.com/nregsmp/nregsreport/internal/district"
	"github.com/nregsmp/nregsreport/internal/model"
)

// Constants for score direction.
const (
	directionImproved  = "improved"
	directionWorsened  = "worsened"
	directionUnchanged = "unchanged"
)

// marksEpsilon is the smallest change in marks reported as a change.
const marksEpsilon = 0.005

// NewHistoryCmd creates the history command.
// This command compares a district's latest report with an earlier one
// stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [DISTRICT]",
		Short: "Compare a district's reports over time",
		Long: `History shows how a district's scorecard changed between reports.

Every generated report is recorded in the history database unless
'generate --no-history' is used. This command compares the latest report
of a district with the previous one and shows:
- The change in overall marks and state rank
- The change in marks of each scorecard component

Examples:
  # Compare the latest two reports of a district
  nregsreport history SIDHI

  # List all recorded reports of a district
  nregsreport history --list SIDHI

  # Compare with a specific report by ID
  nregsreport history --with-id 5 SIDHI

  # Output comparison in JSON format
  nregsreport history --json SIDHI

  # Show the stored section figures of the latest report
  nregsreport history --sections SIDHI

  # List all districts with recorded reports
  nregsreport history --list-districts`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List recorded reports of the district")
	cmd.Flags().BoolP("list-districts", "L", false,
		"List all districts with recorded reports")
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific report by ID (use --list to see available IDs)")
	cmd.Flags().BoolP("sections", "s", false,
		"Show the stored section figures of the latest report, or of --with-id")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listDistricts, err := cmd.Flags().GetBool("list-districts")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var districtName string
	if !listDistricts {
		if len(args) == 0 {
			return &model.ValidationError{
				Field: "arguments",
				Value: "",
				Err:   errors.New("district is required (use --list-districts to see recorded districts)"),
			}
		}
		d, err := district.Lookup(args[0])
		if err != nil {
			return err
		}
		districtName = d.Name
	}

	dbDir, err := cmd.Flags().GetString("history-dir")
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listDistricts {
		return listRecordedDistricts(ctx, out, db)
	}

	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if list {
		return listReportHistory(ctx, out, db, districtName)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}

	sections, err := cmd.Flags().GetBool("sections")
	if err != nil {
		return err
	}
	if sections {
		view, err := loadSectionView(ctx, db, districtName, withID)
		if err != nil {
			return err
		}
		switch {
		case jsonOutput:
			return outputSectionsJSON(out, view)
		case markdownOutput:
			return outputSectionsMarkdown(out, view)
		default:
			outputSectionsText(out, view)
			return nil
		}
	}

	comparison, err := compareHistory(ctx, db, districtName, withID)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		outputComparisonText(out, comparison)
		return nil
	}
}

// listRecordedDistricts lists all districts that have reports in the database.
func listRecordedDistricts(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	districts, err := db.ListDistricts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list districts: %w", err)
	}

	if len(districts) == 0 {
		fmt.Fprintln(out, "No reports found in the history database.")
		fmt.Fprintln(out, "\nUse 'nregsreport generate <date> <district>' to generate a report.")
		return nil
	}

	fmt.Fprintf(out, "Districts with reports (%d):\n\n", len(districts))
	for _, d := range districts {
		fmt.Fprintf(out, "  • %s\n", d)
	}
	fmt.Fprintln(out, "\nUse 'nregsreport history --list <district>' to see the reports of a district.")

	return nil
}

// listReportHistory lists all recorded reports of a district.
func listReportHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, districtName string) error {
	reports, err := db.GetHistoryWithMetadata(ctx, districtName)
	if err != nil {
		return fmt.Errorf("failed to get report history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Fprintf(out, "No reports found for %s\n", districtName)
		return nil
	}

	fmt.Fprintf(out, "Report history for %s (%d reports):\n\n", districtName, len(reports))
	fmt.Fprintf(out, "  %-6s  %-10s  %-16s  %-8s  %-6s  %s\n", "ID", "Date", "Generated", "Marks", "Rank", "Sections")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))

	for _, meta := range reports {
		marks, rank := "-", "-"
		if meta.Rank > 0 {
			marks = fmt.Sprintf("%.2f", meta.Marks)
			rank = fmt.Sprintf("%d", meta.Rank)
		}
		fmt.Fprintf(out, "  %-6d  %-10s  %-16s  %-8s  %-6s  %s\n",
			meta.ID,
			meta.ReportDate,
			meta.GeneratedAt.Local().Format("2006-01-02 15:04"),
			marks,
			rank,
			formatStatusSummary(meta.StatusSummary),
		)
	}

	fmt.Fprintln(out, "\nUse 'nregsreport history <district>' to compare the latest two reports.")
	fmt.Fprintln(out, "Use 'nregsreport history --with-id <id> <district>' to compare with a specific report.")

	return nil
}

// formatStatusSummary formats the section status counts, e.g. "OK:10 NO_DATA:1".
func formatStatusSummary(summary map[string]int) string {
	if len(summary) == 0 {
		return "N/A"
	}

	var parts []string
	for _, status := range []model.SectionStatus{model.StatusOK, model.StatusNoData, model.StatusGenerationFailed} {
		if v := summary[status.String()]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", status, v))
		}
	}
	return strings.Join(parts, " ")
}

// compareHistory loads the latest report of a district and the report to
// compare it with: withID when set, otherwise the one before the latest.
func compareHistory(ctx context.Context, db *database.HistoryDB, districtName string, withID int64) (*ComparisonResult, error) {
	reports, err := db.GetHistoryWithMetadata(ctx, districtName)
	if err != nil {
		return nil, fmt.Errorf("failed to get report history: %w", err)
	}

	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports found for %s", districtName)
	}
	if len(reports) < 2 && withID == 0 {
		return nil, fmt.Errorf("at least 2 reports are required for comparison (found %d)", len(reports))
	}

	previousID := withID
	if previousID == 0 {
		previousID = reports[1].ID
	}
	if previousID == reports[0].ID {
		return nil, fmt.Errorf("report %d is the latest report; choose an earlier one", previousID)
	}

	current, err := db.GetReportByID(ctx, reports[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", reports[0].ID, err)
	}
	previous, err := db.GetReportByID(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", previousID, err)
	}
	if previous.District.Name != districtName {
		return nil, fmt.Errorf("report %d belongs to %s, not %s", previousID, previous.District.Name, districtName)
	}

	return compareReports(previous, current), nil
}

// ComparisonResult holds the result of comparing two reports of a district.
type ComparisonResult struct {
	// District is the district name.
	District string `json:"district"`

	// Previous describes the earlier report.
	Previous ReportSummary `json:"previous"`

	// Current describes the latest report.
	Current ReportSummary `json:"current"`

	// Components lists the change of each scorecard component in report order.
	// It is empty when either report has no scorecard.
	Components []ComponentChange `json:"components,omitempty"`

	// Change describes the overall change.
	Change ScoreChange `json:"change"`
}

// ReportSummary contains the headline figures of one report.
type ReportSummary struct {
	ReportDate  string    `json:"report_date"`
	GeneratedAt time.Time `json:"generated_at"`

	// HasScorecard is false when the report was generated without one.
	HasScorecard   bool    `json:"has_scorecard"`
	Marks          float64 `json:"marks"`
	Grade          string  `json:"grade,omitempty"`
	Rank           int     `json:"rank,omitempty"`
	TotalDistricts int     `json:"total_districts,omitempty"`

	// Sections is the number of sections with a generated analysis.
	Sections int `json:"sections"`
}

// ComponentChange is the change in marks of one scorecard component.
type ComponentChange struct {
	Section   string  `json:"section"`
	Title     string  `json:"title"`
	Previous  float64 `json:"previous"`
	Current   float64 `json:"current"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"`
}

// ScoreChange describes the change in standing between two reports.
type ScoreChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// MarksDelta is the change in overall marks.
	MarksDelta float64 `json:"marks_delta"`

	// RankDelta is the change in state rank; negative means a better rank.
	RankDelta int `json:"rank_delta"`
}

// compareReports compares two reports and generates a comparison result.
func compareReports(previous, current *model.ReportDocument) *ComparisonResult {
	result := &ComparisonResult{
		District: current.District.Name,
		Previous: summarize(previous),
		Current:  summarize(current),
	}

	if previous.Scorecard == nil || current.Scorecard == nil {
		result.Change = ScoreChange{Direction: directionUnchanged}
		return result
	}

	prevMarks := make(map[model.Section]model.ComponentMarks, len(previous.Scorecard.Components))
	for _, c := range previous.Scorecard.Components {
		prevMarks[c.Section] = c
	}
	for _, c := range current.Scorecard.Components {
		p, ok := prevMarks[c.Section]
		if !ok || !p.Available || !c.Available {
			continue
		}
		delta := model.Round2(c.Marks - p.Marks)
		result.Components = append(result.Components, ComponentChange{
			Section:   c.Section.String(),
			Title:     c.Section.Title(),
			Previous:  p.Marks,
			Current:   c.Marks,
			Delta:     delta,
			Direction: direction(delta),
		})
	}

	result.Change = ScoreChange{
		MarksDelta: model.Round2(current.Scorecard.Marks - previous.Scorecard.Marks),
		RankDelta:  current.Scorecard.Rank - previous.Scorecard.Rank,
	}
	result.Change.Direction = direction(result.Change.MarksDelta)

	return result
}

// summarize extracts the headline figures of a report.
func summarize(doc *model.ReportDocument) ReportSummary {
	s := ReportSummary{
		ReportDate:  doc.DateString(),
		GeneratedAt: doc.GeneratedAt,
		Sections:    doc.CountByStatus(model.StatusOK),
	}
	if sc := doc.Scorecard; sc != nil {
		s.HasScorecard = true
		s.Marks = sc.Marks
		s.Grade = sc.Grade
		s.Rank = sc.Rank
		s.TotalDistricts = sc.TotalDistricts
	}
	return s
}

// direction classifies a change in marks.
func direction(delta float64) string {
	switch {
	case math.Abs(delta) < marksEpsilon:
		return directionUnchanged
	case delta > 0:
		return directionImproved
	default:
		return directionWorsened
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out).
		H1("Report Comparison: "+result.District).
		H2("Summary").
		PlainTextf("**Status:** %s", formatDirection(result.Change.Direction)).
		PlainText("").
		Table(markdown.TableSet{
			Header: []string{"Metric", "Previous", "Current", "Change"},
			Rows: [][]string{
				{"Data Date", result.Previous.ReportDate, result.Current.ReportDate, "-"},
				{"Overall Marks", formatSummaryMarks(result.Previous), formatSummaryMarks(result.Current), formatMarksDelta(result.Change.MarksDelta)},
				{"State Rank", formatSummaryRank(result.Previous), formatSummaryRank(result.Current), formatRankDelta(result.Change.RankDelta)},
				{"Sections Generated", fmt.Sprint(result.Previous.Sections), fmt.Sprint(result.Current.Sections), formatDelta(result.Current.Sections - result.Previous.Sections)},
			},
		})

	if len(result.Components) > 0 {
		rows := make([][]string, 0, len(result.Components))
		for _, c := range result.Components {
			rows = append(rows, []string{
				c.Title,
				fmt.Sprintf("%.2f", c.Previous),
				fmt.Sprintf("%.2f", c.Current),
				formatMarksDelta(c.Delta),
			})
		}
		md = md.H2("Components").
			Table(markdown.TableSet{
				Header: []string{"Component", "Previous", "Current", "Change"},
				Rows:   rows,
			})
	} else {
		md = md.Note("Component marks are only compared when both reports have a scorecard.")
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in plain text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) {
	fmt.Fprintf(out, "Report Comparison: %s\n", result.District)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nStatus: %s\n\n", formatDirection(result.Change.Direction))

	fmt.Fprintf(out, "Previous: %s (generated %s)\n", result.Previous.ReportDate, result.Previous.GeneratedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "Current:  %s (generated %s)\n\n", result.Current.ReportDate, result.Current.GeneratedAt.Local().Format("2006-01-02 15:04"))

	fmt.Fprintf(out, "  %-28s  %10s  %10s  %8s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-28s  %10s  %10s  %8s\n", "Overall Marks",
		formatSummaryMarks(result.Previous), formatSummaryMarks(result.Current), formatMarksDelta(result.Change.MarksDelta))
	fmt.Fprintf(out, "  %-28s  %10s  %10s  %8s\n", "State Rank",
		formatSummaryRank(result.Previous), formatSummaryRank(result.Current), formatRankDelta(result.Change.RankDelta))

	for _, c := range result.Components {
		fmt.Fprintf(out, "  %-28s  %10.2f  %10.2f  %8s\n", c.Title, c.Previous, c.Current, formatMarksDelta(c.Delta))
	}
}

// formatDirection formats the direction with a visual indicator.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "✅ Improved"
	case directionWorsened:
		return "⚠️ Worsened"
	default:
		return "➖ Unchanged"
	}
}

func formatSummaryMarks(s ReportSummary) string {
	if !s.HasScorecard {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", s.Marks)
}

func formatSummaryRank(s ReportSummary) string {
	if !s.HasScorecard {
		return "n/a"
	}
	return fmt.Sprintf("%d/%d", s.Rank, s.TotalDistricts)
}

// formatDelta formats an integer delta with a sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return fmt.Sprintf("%d", delta)
}

func formatMarksDelta(delta float64) string {
	if math.Abs(delta) < marksEpsilon {
		return "0.00"
	}
	return fmt.Sprintf("%+.2f", delta)
}

// formatRankDelta formats a rank change; moving up the ranking is shown as positive.
func formatRankDelta(delta int) string {
	return formatDelta(-delta)
}

// SectionView is the stored section figures of one report.
type SectionView struct {
	ReportID   int64          `json:"report_id"`
	District   string         `json:"district"`
	ReportDate string         `json:"report_date"`
	Sections   []SectionEntry `json:"sections"`
}

// SectionEntry is the stored state of one section.
type SectionEntry struct {
	Section        string    `json:"section"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	Rank           int       `json:"state_rank,omitempty"`
	TotalDistricts int       `json:"total_districts,omitempty"`
	Marks          float64   `json:"marks"`
	Values         model.Row `json:"values,omitempty"`
}

// loadSectionView loads the section snapshots of the report withID, or
// of the latest report of the district when withID is zero.
func loadSectionView(ctx context.Context, db *database.HistoryDB, districtName string, withID int64) (*SectionView, error) {
	reports, err := db.GetHistoryWithMetadata(ctx, districtName)
	if err != nil {
		return nil, fmt.Errorf("failed to get report history: %w", err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports found for %s", districtName)
	}

	meta := reports[0]
	if withID != 0 {
		found := false
		for _, r := range reports {
			if r.ID == withID {
				meta, found = r, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("report %d not found for %s", withID, districtName)
		}
	}

	snapshots, err := db.GetSectionSnapshots(ctx, meta.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get section figures: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("report %d has no stored section figures", meta.ID)
	}

	view := &SectionView{ReportID: meta.ID, District: meta.District, ReportDate: meta.ReportDate}
	for _, snap := range snapshots {
		view.Sections = append(view.Sections, SectionEntry{
			Section:        snap.Section.String(),
			Title:          snap.Section.Title(),
			Status:         snap.Status.String(),
			Rank:           snap.Rank,
			TotalDistricts: snap.TotalDistricts,
			Marks:          snap.Values.FloatOr(model.SectionMarksField, 0),
			Values:         snap.Values,
		})
	}
	return view, nil
}

func outputSectionsJSON(out io.Writer, view *SectionView) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}

func outputSectionsMarkdown(out io.Writer, view *SectionView) error {
	rows := make([][]string, 0, len(view.Sections))
	for _, e := range view.Sections {
		rows = append(rows, []string{e.Title, e.Status, formatSectionRank(e), fmt.Sprintf("%.2f", e.Marks)})
	}
	return markdown.NewMarkdown(out).
		H1(fmt.Sprintf("Section Figures: %s, %s", view.District, view.ReportDate)).
		PlainTextf("Report %d", view.ReportID).
		PlainText("").
		Table(markdown.TableSet{
			Header: []string{"Section", "Status", "State Rank", "Marks"},
			Rows:   rows,
		}).
		Build()
}

func outputSectionsText(out io.Writer, view *SectionView) {
	fmt.Fprintf(out, "Section figures for %s on %s (report %d):\n\n", view.District, view.ReportDate, view.ReportID)
	fmt.Fprintf(out, "  %-30s  %-17s  %-10s  %s\n", "Section", "Status", "Rank", "Marks")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, e := range view.Sections {
		fmt.Fprintf(out, "  %-30s  %-17s  %-10s  %s\n", e.Title, e.Status, formatSectionRank(e), fmt.Sprintf("%.2f", e.Marks))
	}
}

// formatSectionRank renders "rank/total", or "-" for a section without data.
func formatSectionRank(e SectionEntry) string {
	if e.Rank == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", e.Rank, e.TotalDistricts)
}
