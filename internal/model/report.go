package model

import (
	"fmt"
	"time"
)

// StateSummary is the state-wide view of one section: every district
// ranked on the section's ranking metric.
type StateSummary struct {
	// TopDistrict and BottomDistrict are the best and worst ranked rows.
	TopDistrict    Row `json:"top_district"`
	BottomDistrict Row `json:"bottom_district"`

	// Averages maps each metric field to its state mean, rounded to 2 decimals.
	Averages map[string]float64 `json:"state_averages"`

	// TotalDistricts is the number of districts in the response.
	TotalDistricts int `json:"total_districts"`

	// Rows holds every district row in rank order. It feeds the scorecard
	// and is not embedded in prompts.
	Rows []Row `json:"-"`
}

// BlockSummary is the view of one section across the blocks of the target district.
type BlockSummary struct {
	// Blocks holds every block row in rank order.
	Blocks []Row `json:"blocks"`

	TotalBlocks int `json:"total_blocks"`

	// Averages maps each metric field to its district mean over blocks.
	Averages map[string]float64 `json:"averages"`

	HighestBlock string `json:"highest_performing_block"`
	LowestBlock  string `json:"lowest_performing_block"`
}

// SectionData is the statistics retrieved for one section of a report.
// When Err is set the section is unavailable and every other field except
// Section, Date and District may be empty.
type SectionData struct {
	Section  Section `json:"section"`
	Date     string  `json:"date"`
	District string  `json:"district"`

	State *StateSummary `json:"state_data,omitempty"`

	// Rank is the district's 1-based position in the state ranking.
	Rank           int `json:"state_rank,omitempty"`
	TotalDistricts int `json:"total_districts,omitempty"`

	// RawValues is the district's own state-level row.
	RawValues Row `json:"district_info,omitempty"`

	// Blocks is nil when block-level data was not available.
	Blocks *BlockSummary `json:"details,omitempty"`

	Err error `json:"-"`
}

// Available reports whether the section has data to analyse.
func (d SectionData) Available() bool {
	return d.Err == nil && d.RawValues != nil
}

// SectionPrompt is the composed prompt for one section.
type SectionPrompt struct {
	Section Section
	Text    string
}

// Analysis is the generated prose of one section.
// The three parts are filled when the model answered in the requested
// tagged structure; Text always holds the full cleaned answer.
type Analysis struct {
	DistrictPerformance string `json:"district_performance,omitempty"`
	BlockPerformance    string `json:"block_performance,omitempty"`
	Recommendations     string `json:"recommendations,omitempty"`
	Text                string `json:"text"`
}

// Structured reports whether the analysis was split into its three parts.
func (a Analysis) Structured() bool {
	return a.DistrictPerformance != "" || a.BlockPerformance != "" || a.Recommendations != ""
}

// TokenUsage counts the tokens consumed by one LLM call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns the sum of input and output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// SectionResult is one section of a generated report.
type SectionResult struct {
	Section  Section       `json:"section"`
	Status   SectionStatus `json:"status"`
	Analysis Analysis      `json:"analysis,omitzero"`

	// Error describes why the section is a placeholder.
	Error string `json:"error,omitempty"`

	Usage TokenUsage `json:"usage,omitzero"`
}

// Placeholder returns the text rendered in place of a missing analysis.
func (r SectionResult) Placeholder() string {
	switch r.Status {
	case StatusNoData:
		return fmt.Sprintf("No data was available for %s on the report date.", r.Section.Title())
	case StatusGenerationFailed:
		return fmt.Sprintf("The analysis for %s could not be generated.", r.Section.Title())
	default:
		return ""
	}
}

// ComponentMarks is one section's contribution to the scorecard.
type ComponentMarks struct {
	Section   Section `json:"section"`
	Marks     float64 `json:"marks"`
	MaxMarks  float64 `json:"max_marks,omitempty"`
	Available bool    `json:"available"`
}

// Scorecard is the district's overall standing across all components,
// as shown on the dashboard's district ranking.
type Scorecard struct {
	District string  `json:"district"`
	Marks    float64 `json:"marks"`
	MaxMarks float64 `json:"max_marks"`
	Grade    string  `json:"grade"`

	Rank           int `json:"rank"`
	TotalDistricts int `json:"total_districts"`

	StateAverage         float64 `json:"state_average"`
	DiffFromStateAverage float64 `json:"diff_from_state_average"`

	TopDistrict    string `json:"top_district"`
	BottomDistrict string `json:"bottom_district"`

	// TopDistricts and BottomDistricts are the state leaderboard, best first.
	TopDistricts    []Standing `json:"top_districts,omitempty"`
	BottomDistricts []Standing `json:"bottom_districts,omitempty"`

	// Components lists the report sections in order; ExtraMarks holds
	// marks from components without a section of their own.
	Components []ComponentMarks `json:"components"`
	ExtraMarks float64          `json:"extra_marks"`

	// Blocks holds the district's blocks, best first.
	Blocks []BlockStanding `json:"blocks,omitempty"`

	// ExcludedBlocks are blocks left out of Blocks because their marks
	// were far below those of the other blocks.
	ExcludedBlocks []string `json:"excluded_blocks,omitempty"`
}

// LeaderboardSize is the number of entries at each end of a leaderboard.
const LeaderboardSize = 5

// Standing is one entry of a leaderboard.
type Standing struct {
	Name  string  `json:"name"`
	Marks float64 `json:"marks"`
	Grade string  `json:"grade"`
}

// BlockStanding is a block's overall marks and their components.
type BlockStanding struct {
	Name  string  `json:"name"`
	Marks float64 `json:"marks"`
	Grade string  `json:"grade"`

	DiffFromStateAverage float64 `json:"diff_from_state_average"`

	Components []ComponentMarks `json:"components"`
	ExtraMarks float64          `json:"extra_marks"`

	// TopPanchayats and BottomPanchayats are only filled when panchayat
	// detail was requested.
	TopPanchayats    []Standing `json:"top_panchayats,omitempty"`
	BottomPanchayats []Standing `json:"bottom_panchayats,omitempty"`
}

// AboveStateAverage reports whether the block scored above the state average.
func (b BlockStanding) AboveStateAverage() bool {
	return b.DiffFromStateAverage > 0
}

// ScorecardRows are the rows of the scorecard-only endpoints at state
// level and for the blocks of the report's district.
type ScorecardRows struct {
	State  [][]Row
	Blocks [][]Row
}

// AboveStateAverage reports whether the district scored above the state average.
func (s *Scorecard) AboveStateAverage() bool {
	return s.Marks > s.StateAverage
}

// Grade returns the dashboard grade for overall marks.
func Grade(marks float64) string {
	switch {
	case marks >= 70:
		return "A"
	case marks >= 60:
		return "B"
	case marks >= 45:
		return "C"
	default:
		return "D"
	}
}

// ReportDocument is a generated district report.
// Sections always holds one result per section in report order.
type ReportDocument struct {
	District    District  `json:"district"`
	Date        time.Time `json:"date"`
	GeneratedAt time.Time `json:"generated_at"`

	Provider   string `json:"provider"`
	Model      string `json:"model"`
	PreparedBy string `json:"prepared_by,omitempty"`

	Scorecard *Scorecard      `json:"scorecard,omitempty"`
	Sections  []SectionResult `json:"sections"`
}

// NewReportDocument creates a document for req with every section pending.
func NewReportDocument(req ReportRequest) *ReportDocument {
	doc := &ReportDocument{
		District: req.District,
		Date:     req.Date,
		Sections: make([]SectionResult, SectionCount),
	}
	for i, s := range Sections() {
		doc.Sections[i] = SectionResult{Section: s, Status: StatusPending}
	}
	return doc
}

// DateString returns the report date in YYYY-MM-DD form.
func (d *ReportDocument) DateString() string {
	return d.Date.Format(DateLayout)
}

// Result returns the result slot for s, or nil for an invalid section.
func (d *ReportDocument) Result(s Section) *SectionResult {
	if !s.Valid() || int(s) >= len(d.Sections) {
		return nil
	}
	return &d.Sections[s]
}

// SetResult stores r in the slot of its section.
func (d *ReportDocument) SetResult(r SectionResult) {
	if slot := d.Result(r.Section); slot != nil {
		*slot = r
	}
}

// MarkNoData records that a section had no data.
func (d *ReportDocument) MarkNoData(s Section, err error) {
	r := SectionResult{Section: s, Status: StatusNoData}
	if err != nil {
		r.Error = err.Error()
	}
	d.SetResult(r)
}

// MarkFailed records that a section's generation failed.
func (d *ReportDocument) MarkFailed(s Section, err error) {
	r := SectionResult{Section: s, Status: StatusGenerationFailed}
	if err != nil {
		r.Error = err.Error()
	}
	d.SetResult(r)
}

// Complete reports whether no section is pending.
func (d *ReportDocument) Complete() bool {
	for _, r := range d.Sections {
		if r.Status == StatusPending {
			return false
		}
	}
	return len(d.Sections) == SectionCount
}

// CountByStatus returns the number of sections with the given status.
func (d *ReportDocument) CountByStatus(status SectionStatus) int {
	n := 0
	for _, r := range d.Sections {
		if r.Status == status {
			n++
		}
	}
	return n
}

// TotalUsage sums the token usage of every section.
func (d *ReportDocument) TotalUsage() TokenUsage {
	var total TokenUsage
	for _, r := range d.Sections {
		total.InputTokens += r.Usage.InputTokens
		total.OutputTokens += r.Usage.OutputTokens
	}
	return total
}
