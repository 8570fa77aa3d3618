package stats

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nregsmp/nregsreport/internal/model"
)

func sidhiRequest() model.ReportRequest {
	return model.NewReportRequest(
		time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC),
		model.District{Name: "SIDHI", Division: "Rewa", Slug: "sidhi"},
	)
}

func personDaysState() []model.Row {
	return []model.Row{
		{"group_name": "REWA", "avg_persondays": 41.456, "pd_marks": 3.81},
		{"group_name": "SIDHI", "avg_persondays": 52.004, "pd_marks": 7.33},
		{"group_name": "DINDORI", "avg_persondays": 63.2, "pd_marks": 10.0},
		{"group_name": "SATNA", "avg_persondays": 28.9, "pd_marks": 0.5},
	}
}

// TestMergeRows tests merging endpoint responses by group name.
func TestMergeRows(t *testing.T) {
	t.Parallel()

	category := []model.Row{
		{"group_name": "SIDHI", "total_marks": 12.0, "persondays_generated": 100.0, "disabled_ratio": 0.0, "disabled_marks": 0.0},
		{"group_name": "REWA", "total_marks": 9.0},
		{"total_marks": 1.0}, // no group name
	}
	disabled := []model.Row{
		{
			"group_name":                          "SIDHI",
			"disabled_marks":                      3.0,
			"disabled_ratio":                      1.4,
			"employment_availed_total_persondays": 500.0,
			"persondays_generated":                7.0,
			"total_marks":                         99.0,
		},
		{"group_name": "UNKNOWN", "disabled_marks": 3.0},
	}

	merged := MergeRows([]string{"category-employment", "disabled"}, [][]model.Row{category, disabled})

	want := []model.Row{
		{
			"group_name":                          "SIDHI",
			"total_marks":                         12.0,
			"persondays_generated":                100.0,
			"persondays_generated_disabled":       7.0,
			"disabled_marks":                      3.0,
			"disabled_ratio":                      1.4,
			"employment_availed_total_persondays": 500.0,
		},
		{"group_name": "REWA", "total_marks": 9.0},
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merged rows mismatch (-want +got):\n%s", diff)
	}

	if got := category[0]["disabled_marks"]; got != 0.0 {
		t.Errorf("MergeRows modified its input: disabled_marks = %v", got)
	}
}

// TestPrepare tests rounding and derived fields.
func TestPrepare(t *testing.T) {
	t.Parallel()

	t.Run("rounds values and adds section marks", func(t *testing.T) {
		t.Parallel()
		rows := Prepare(model.SectionPersonDays, [][]model.Row{personDaysState()})
		sidhi := Find(rows, "SIDHI")
		if got := sidhi.FloatOr("avg_persondays", -1); got != 52.0 {
			t.Errorf("expected rounded 52.0, got %v", got)
		}
		if got := sidhi.FloatOr(model.SectionMarksField, -1); got != 7.33 {
			t.Errorf("expected section marks 7.33, got %v", got)
		}
	})

	t.Run("category percentages", func(t *testing.T) {
		t.Parallel()
		category := []model.Row{{
			"group_name":                        "SIDHI",
			"families_completed_100_days_total": 250.0,
			"hh_issued_jobcards_total":          10000.0,
			"no_of_hh_provided_employment_sts":  300.0,
			"hh_issued_jobcards_sts":            1200.0,
			"no_of_hh_provided_employment_scs":  50.0,
			"hh_issued_jobcards_scs":            0.0,
			"total_marks":                       11.5,
		}}
		disabled := []model.Row{{"group_name": "SIDHI", "disabled_marks": 3.0, "disabled_ratio": 2.4}}

		rows := Prepare(model.SectionCategoryEmployment, [][]model.Row{category, disabled})
		row := rows[0]

		checks := map[string]float64{
			"hundred_days_percentage":  2.5,
			"st_employment_percentage": 25,
			"sc_employment_percentage": 0,
			"women_pd_percentage":      0,
			"disabled_ratio":           2.4,
			model.SectionMarksField:    14.5,
		}
		for field, want := range checks {
			if got := row.FloatOr(field, -1); got != want {
				t.Errorf("%s = %v, expected %v", field, got, want)
			}
		}
	})

	t.Run("work management sums both years", func(t *testing.T) {
		t.Parallel()
		rows := Prepare(model.SectionWorkManagement, [][]model.Row{{
			{"group_name": "SIDHI", "marks_prev": 4.25, "marks_curr": "3.5"},
		}})
		if got := rows[0].FloatOr(model.SectionMarksField, -1); got != 7.75 {
			t.Errorf("expected 7.75, got %v", got)
		}
	})
}

// TestSummarizeState tests ranking of districts.
func TestSummarizeState(t *testing.T) {
	t.Parallel()

	rows := Prepare(model.SectionPersonDays, [][]model.Row{personDaysState()})
	state, err := SummarizeState(model.SectionPersonDays, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.TopDistrict.Name() != "DINDORI" {
		t.Errorf("expected DINDORI on top, got %q", state.TopDistrict.Name())
	}
	if state.BottomDistrict.Name() != "SATNA" {
		t.Errorf("expected SATNA at bottom, got %q", state.BottomDistrict.Name())
	}
	if state.TotalDistricts != 4 {
		t.Errorf("expected 4 districts, got %d", state.TotalDistricts)
	}

	wantAverages := map[string]float64{
		"avg_persondays": 46.39, // (41.46 + 52 + 63.2 + 28.9) / 4
		"pd_marks":       5.41,  // (3.81 + 7.33 + 10 + 0.5) / 4
	}
	if diff := cmp.Diff(wantAverages, state.Averages); diff != "" {
		t.Errorf("averages mismatch (-want +got):\n%s", diff)
	}

	if got := Position(state.Rows, "SIDHI"); got != 2 {
		t.Errorf("expected SIDHI at rank 2, got %d", got)
	}
	if got := Position(state.Rows, "sidhi "); got != 2 {
		t.Errorf("expected case-insensitive match, got %d", got)
	}
	if got := Position(state.Rows, "BHOPAL"); got != 0 {
		t.Errorf("expected 0 for missing district, got %d", got)
	}

	if _, err := SummarizeState(model.SectionPersonDays, nil); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

// TestRankTies tests that ties are ordered by name.
func TestRankTies(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"group_name": "B", "zero_muster_marks": 1.0},
		{"group_name": "A", "zero_muster_marks": 1.0},
		{"group_name": "C"},
	}
	ranked := Rank(model.SectionZeroMuster, rows)

	var got []string
	for _, r := range ranked {
		got = append(got, r.Name())
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, got); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}
	if rows[0].Name() != "B" {
		t.Error("Rank modified its input")
	}
}

// TestSummarizeBlocks tests block summaries and district row filtering.
func TestSummarizeBlocks(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"group_name": "Sidhi", "ratio": 0.0, "total_registered_workers": 0.0},
		{"group_name": "KUSMI", "ratio": 12.5, "marks": 8.0, "total_registered_workers": 1200.0},
		{"group_name": "MAJHAULI", "ratio": 20.0, "marks": 12.0, "total_registered_workers": 900.0},
		{"group_name": "RAMPUR NAIKIN", "ratio": 7.5, "marks": 4.0, "total_registered_workers": 1500.0},
	}

	blocks, err := SummarizeBlocks(model.SectionLabourEngagement, rows, "SIDHI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if blocks.TotalBlocks != 3 {
		t.Errorf("expected 3 blocks after filtering, got %d", blocks.TotalBlocks)
	}
	if blocks.HighestBlock != "MAJHAULI" || blocks.LowestBlock != "RAMPUR NAIKIN" {
		t.Errorf("unexpected highest/lowest: %q %q", blocks.HighestBlock, blocks.LowestBlock)
	}
	if got := blocks.Averages["ratio"]; got != 13.33 {
		t.Errorf("expected ratio average 13.33, got %v", got)
	}
}

// TestFilterBlocks tests that only empty district-named rows are dropped.
func TestFilterBlocks(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"group_name": "AGAR MALWA", "registered_worker": nil},
		{"group_name": "AGARMALWA", "registered_worker": 0.0},
		{"group_name": "Agar Malwa", "total_registered_workers": 50.0},
		{"group_name": "SUSNER"},
	}
	filtered := FilterBlocks(rows, "AGAR MALWA")

	var names []string
	for _, r := range filtered {
		names = append(names, r.Name())
	}
	if diff := cmp.Diff([]string{"Agar Malwa", "SUSNER"}, names); diff != "" {
		t.Errorf("filtered rows mismatch (-want +got):\n%s", diff)
	}
}

// TestBuildSectionData tests assembling section data for the target district.
func TestBuildSectionData(t *testing.T) {
	t.Parallel()

	req := sidhiRequest()
	state := Prepare(model.SectionPersonDays, [][]model.Row{personDaysState()})
	blocks := Prepare(model.SectionPersonDays, [][]model.Row{{
		{"group_name": "KUSMI", "avg_persondays": 48.0, "pd_marks": 6.0},
		{"group_name": "SIHAWAL", "avg_persondays": 55.0, "pd_marks": 8.3},
	}})

	t.Run("district present", func(t *testing.T) {
		t.Parallel()
		data, err := BuildSectionData(model.SectionPersonDays, req, state, blocks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !data.Available() {
			t.Error("expected data to be available")
		}
		if data.Rank != 2 || data.TotalDistricts != 4 {
			t.Errorf("unexpected rank %d/%d", data.Rank, data.TotalDistricts)
		}
		if data.Date != "2025-03-19" || data.District != "SIDHI" {
			t.Errorf("unexpected date/district %q %q", data.Date, data.District)
		}
		if data.Blocks == nil || data.Blocks.HighestBlock != "SIHAWAL" {
			t.Errorf("unexpected blocks %+v", data.Blocks)
		}
	})

	t.Run("missing blocks are optional", func(t *testing.T) {
		t.Parallel()
		data, err := BuildSectionData(model.SectionPersonDays, req, state, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data.Blocks != nil {
			t.Error("expected nil blocks")
		}
	})

	t.Run("district missing from state data", func(t *testing.T) {
		t.Parallel()
		other := model.NewReportRequest(req.Date, model.District{Name: "BHOPAL"})
		_, err := BuildSectionData(model.SectionPersonDays, other, state, blocks)
		if !errors.Is(err, model.ErrDistrictNotInData) {
			t.Errorf("expected ErrDistrictNotInData, got %v", err)
		}
	})

	t.Run("empty state data", func(t *testing.T) {
		t.Parallel()
		_, err := BuildSectionData(model.SectionPersonDays, req, nil, blocks)
		if !errors.Is(err, ErrNoRows) {
			t.Errorf("expected ErrNoRows, got %v", err)
		}
	})
}

// TestBuildScorecard tests the overall district scorecard.
func TestBuildScorecard(t *testing.T) {
	t.Parallel()

	req := sidhiRequest()
	pdRows := Prepare(model.SectionPersonDays, [][]model.Row{personDaysState()})
	pd, err := BuildSectionData(model.SectionPersonDays, req, pdRows, nil)
	if err != nil {
		t.Fatal(err)
	}

	leRows := Prepare(model.SectionLabourEngagement, [][]model.Row{{
		{"group_name": "SIDHI", "ratio": 10.0, "marks": 12.0},
		{"group_name": "REWA", "ratio": 15.0, "marks": 15.0},
		{"group_name": "DINDORI", "ratio": 2.0, "marks": 1.0},
		{"group_name": "SATNA", "ratio": 1.0, "marks": 0.5},
	}})
	le, err := BuildSectionData(model.SectionLabourEngagement, req, leRows, nil)
	if err != nil {
		t.Fatal(err)
	}

	missing := model.SectionData{Section: model.SectionNMMSUsage, Err: model.ErrNoData}
	extra := model.ScorecardRows{State: [][]model.Row{{
		{"group_name": "SIDHI", "timely_payment_marks": 2.0, "recovery_marks": 1.0},
		{"group_name": "SATNA", "timely_payment_marks": 1.5},
	}}}

	card := BuildScorecard("SIDHI", []model.SectionData{pd, le, missing}, extra)
	if card == nil {
		t.Fatal("expected a scorecard")
	}

	// SIDHI 7.33+12+3 = 22.33, REWA 3.81+15 = 18.81, DINDORI 10+1 = 11, SATNA 0.5+0.5+1.5 = 2.5
	if card.Marks != 22.33 {
		t.Errorf("expected 22.33 marks, got %v", card.Marks)
	}
	if card.Rank != 1 || card.TotalDistricts != 4 {
		t.Errorf("unexpected rank %d/%d", card.Rank, card.TotalDistricts)
	}
	if card.StateAverage != 13.66 {
		t.Errorf("expected state average 13.66, got %v", card.StateAverage)
	}
	if card.DiffFromStateAverage != 8.67 || !card.AboveStateAverage() {
		t.Errorf("unexpected diff %v", card.DiffFromStateAverage)
	}
	if card.Grade != "D" {
		t.Errorf("expected grade D, got %q", card.Grade)
	}
	if card.TopDistrict != "SIDHI" || card.BottomDistrict != "SATNA" {
		t.Errorf("unexpected top/bottom %q %q", card.TopDistrict, card.BottomDistrict)
	}
	if card.ExtraMarks != 3 {
		t.Errorf("expected 3 extra marks, got %v", card.ExtraMarks)
	}

	wantComponents := []model.ComponentMarks{
		{Section: model.SectionPersonDays, Marks: 7.33, MaxMarks: 10, Available: true},
		{Section: model.SectionLabourEngagement, Marks: 12, MaxMarks: 15, Available: true},
		{Section: model.SectionNMMSUsage},
	}
	if diff := cmp.Diff(wantComponents, card.Components); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}

	wantLeaders := []model.Standing{
		{Name: "SIDHI", Marks: 22.33, Grade: model.Grade(22.33)},
		{Name: "REWA", Marks: 18.81, Grade: model.Grade(18.81)},
		{Name: "DINDORI", Marks: 11, Grade: model.Grade(11)},
		{Name: "SATNA", Marks: 2.5, Grade: model.Grade(2.5)},
	}
	if diff := cmp.Diff(wantLeaders, card.TopDistricts); diff != "" {
		t.Errorf("top districts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantLeaders, card.BottomDistricts); diff != "" {
		t.Errorf("bottom districts mismatch (-want +got):\n%s", diff)
	}
	if card.Blocks != nil || card.ExcludedBlocks != nil {
		t.Errorf("expected no blocks without block data, got %v %v", card.Blocks, card.ExcludedBlocks)
	}

	t.Run("nil without district data", func(t *testing.T) {
		t.Parallel()
		if BuildScorecard("BHOPAL", []model.SectionData{pd, le}, model.ScorecardRows{}) != nil {
			t.Error("expected nil scorecard for a district without data")
		}
		if BuildScorecard("SIDHI", []model.SectionData{missing}, extra) != nil {
			t.Error("expected nil scorecard without state data")
		}
	})
}

// blockSections returns person days and labour engagement block data for
// the given blocks, each entry holding {pd_marks, marks}.
func blockSections(marks map[string][2]float64, order []string) []model.SectionData {
	pd := model.SectionData{Section: model.SectionPersonDays, Blocks: &model.BlockSummary{}}
	le := model.SectionData{Section: model.SectionLabourEngagement, Blocks: &model.BlockSummary{}}
	for _, name := range order {
		m := marks[name]
		pd.Blocks.Blocks = append(pd.Blocks.Blocks, model.Row{"group_name": name, "pd_marks": m[0]})
		le.Blocks.Blocks = append(le.Blocks.Blocks, model.Row{"group_name": name, "marks": m[1]})
	}
	return []model.SectionData{pd, le}
}

// TestBlockStandings tests the per-block scorecard and outlier exclusion.
func TestBlockStandings(t *testing.T) {
	t.Parallel()

	marks := map[string][2]float64{
		"MAJHAULI":      {8, 12},
		"SIHAWAL":       {7, 10},
		"KUSMI":         {6, 12},
		"RAMPUR NAIKIN": {9, 9},
		"SIDHI":         {5, 11},
		"DEOSAR":        {1, 1},
	}
	order := []string{"MAJHAULI", "SIHAWAL", "KUSMI", "RAMPUR NAIKIN", "SIDHI", "DEOSAR"}
	extra := [][]model.Row{{
		{"group_name": "MAJHAULI", "timely_payment_marks": 2.0},
		{"group_name": "UNLISTED", "timely_payment_marks": 2.0},
		{"group_name": "SIDHI", "registered_worker": 0.0, "timely_payment_marks": 9.0},
	}}

	t.Run("outliers excluded", func(t *testing.T) {
		t.Parallel()

		blocks, excluded := BlockStandings("SIDHI", blockSections(marks, order), extra, 15)

		var names []string
		for _, b := range blocks {
			names = append(names, b.Name)
		}
		// KUSMI and RAMPUR NAIKIN tie at 18 and are ordered by name.
		wantNames := []string{"MAJHAULI", "KUSMI", "RAMPUR NAIKIN", "SIHAWAL", "SIDHI"}
		if diff := cmp.Diff(wantNames, names); diff != "" {
			t.Errorf("block order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"DEOSAR"}, excluded); diff != "" {
			t.Errorf("excluded blocks mismatch (-want +got):\n%s", diff)
		}

		best := blocks[0]
		if best.Marks != 22 || best.ExtraMarks != 2 || best.DiffFromStateAverage != 7 || !best.AboveStateAverage() {
			t.Errorf("unexpected best block %+v", best)
		}
		wantComponents := []model.ComponentMarks{
			{Section: model.SectionPersonDays, Marks: 8, MaxMarks: 10, Available: true},
			{Section: model.SectionLabourEngagement, Marks: 12, MaxMarks: 15, Available: true},
		}
		if diff := cmp.Diff(wantComponents, best.Components); diff != "" {
			t.Errorf("components mismatch (-want +got):\n%s", diff)
		}

		// The block summary row is named after the district; a block that
		// shares the name keeps its own marks.
		if sidhi := blocks[4]; sidhi.Marks != 16 || sidhi.ExtraMarks != 0 {
			t.Errorf("unexpected SIDHI block %+v", sidhi)
		}
	})

	t.Run("few blocks keep outliers", func(t *testing.T) {
		t.Parallel()

		blocks, excluded := BlockStandings("SIDHI", blockSections(marks, []string{"MAJHAULI", "SIHAWAL", "DEOSAR"}), nil, 15)
		if len(blocks) != 3 || excluded != nil {
			t.Errorf("expected all 3 blocks kept, got %d blocks, excluded %v", len(blocks), excluded)
		}
		if last := blocks[len(blocks)-1]; last.Name != "DEOSAR" || last.AboveStateAverage() {
			t.Errorf("unexpected last block %+v", last)
		}
	})

	t.Run("no block data", func(t *testing.T) {
		t.Parallel()

		blocks, excluded := BlockStandings("SIDHI", []model.SectionData{{Section: model.SectionPersonDays}}, extra, 15)
		if blocks != nil || excluded != nil {
			t.Errorf("expected nothing, got %v %v", blocks, excluded)
		}
	})
}

// TestPanchayatLeaderboard tests the best and worst panchayats of a block.
func TestPanchayatLeaderboard(t *testing.T) {
	t.Parallel()

	var pd, payments []model.Row
	for i := range 8 {
		name := fmt.Sprintf("GP %d", i+1)
		pd = append(pd, model.Row{"group_name": name, "registered_worker": 500.0, "pd_marks": float64(10 - i)})
	}
	pd = append(pd, model.Row{"group_name": "SIHAWAL", "registered_worker": 0.0, "pd_marks": 50.0})
	payments = append(payments,
		model.Row{"group_name": "GP 8", "timely_payment_marks": 0.5},
		model.Row{"group_name": "GP 4", "timely_payment_marks": 4.0},
	)

	best, worst := PanchayatLeaderboard("SIDHI", "SIHAWAL", [][]model.Row{pd, payments})

	names := func(standings []model.Standing) []string {
		var out []string
		for _, s := range standings {
			out = append(out, s.Name)
		}
		return out
	}
	// GP 4 rises to 11 marks; GP 8 is last at 3.5 and stays out of the bottom list.
	if diff := cmp.Diff([]string{"GP 4", "GP 1", "GP 2", "GP 3", "GP 5"}, names(best)); diff != "" {
		t.Errorf("best mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"GP 2", "GP 3", "GP 5", "GP 6", "GP 7"}, names(worst)); diff != "" {
		t.Errorf("worst mismatch (-want +got):\n%s", diff)
	}
	if best[0].Marks != 11 || best[0].Grade != model.Grade(11) {
		t.Errorf("unexpected leader %+v", best[0])
	}

	t.Run("outliers dropped from large blocks", func(t *testing.T) {
		t.Parallel()

		var rows []model.Row
		for i := range 10 {
			rows = append(rows, model.Row{"group_name": fmt.Sprintf("GP %d", i+1), "pd_marks": 10.0})
		}
		rows = append(rows, model.Row{"group_name": "GP 11", "pd_marks": 1.0})

		_, worst := PanchayatLeaderboard("SIDHI", "SIHAWAL", [][]model.Row{rows})
		for _, s := range worst {
			if s.Name == "GP 11" {
				t.Errorf("expected outlier GP 11 to be dropped, got %v", worst)
			}
		}
	})

	t.Run("no panchayats", func(t *testing.T) {
		t.Parallel()

		best, worst := PanchayatLeaderboard("SIDHI", "SIHAWAL", [][]model.Row{{{"group_name": "SIHAWAL"}}})
		if best != nil || worst != nil {
			t.Errorf("expected nothing, got %v %v", best, worst)
		}
	})
}

func TestIsOutlier(t *testing.T) {
	t.Parallel()

	marks := []float64{20, 18, 16, 10.7, 10.6}
	tests := []struct {
		i    int
		want bool
	}{
		{0, false},
		{3, false},
		{4, false},
	}
	for _, tt := range tests {
		if got := IsOutlier(marks, tt.i); got != tt.want {
			t.Errorf("IsOutlier(%v, %d) = %v, want %v", marks, tt.i, got, tt.want)
		}
	}

	if !IsOutlier([]float64{20, 20, 20, 11.9}, 3) {
		t.Error("expected 11.9 to be an outlier against an average of 20")
	}
	if IsOutlier([]float64{20, 20, 20, 12.5}, 3) {
		t.Error("expected 12.5 not to be an outlier against an average of 20")
	}
	if IsOutlier([]float64{1}, 0) {
		t.Error("a single entry is never an outlier")
	}
}
