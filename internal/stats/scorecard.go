package stats

import (
	"sort"

	"github.com/nregsmp/nregsreport/internal/model"
)

const (
	// outlierThreshold is how far below the average of the other entries
	// an entry's marks must fall to be treated as an outlier.
	outlierThreshold = 0.40

	minBlocksForOutliers     = 5
	minPanchayatsForOutliers = 10
)

// BuildScorecard computes the district's overall marks from the state-level
// rows of every section plus the rows of the scorecard-only endpoints.
// Each district's marks are the sum of the marks fields of every component
// it has data for. It returns nil when no section has state-level data or
// the district appears in none of them.
//
// Blocks are scored the same way from the block rows of every section.
// With at least 5 blocks, blocks scoring more than 40% below the average
// of the others are moved to ExcludedBlocks.
func BuildScorecard(district string, sections []model.SectionData, extra model.ScorecardRows) *model.Scorecard {
	totals := make(map[string]float64)
	names := make(map[string]string)
	add := func(name string, marks float64) {
		key := cleanName(name)
		if key == "" {
			return
		}
		if _, ok := names[key]; !ok {
			names[key] = name
		}
		totals[key] += marks
	}

	components := make([]model.ComponentMarks, 0, len(sections))
	found := false
	for _, data := range sections {
		comp := model.ComponentMarks{Section: data.Section, MaxMarks: data.Section.Info().MaxMarks}
		if data.State != nil {
			for _, row := range data.State.Rows {
				marks := SectionMarks(data.Section, row)
				add(row.Name(), marks)
				if SameName(row.Name(), district) {
					comp.Marks = marks
					comp.Available = true
					found = true
				}
			}
		}
		components = append(components, comp)
	}
	if !found {
		return nil
	}

	extraMarks := 0.0
	for _, rows := range extra.State {
		for _, row := range rows {
			marks := ExtraMarks(row)
			add(row.Name(), marks)
			if SameName(row.Name(), district) {
				extraMarks += marks
			}
		}
	}

	standings := make([]model.Standing, 0, len(totals))
	sum := 0.0
	for key, marks := range totals {
		marks = model.Round2(marks)
		standings = append(standings, model.Standing{Name: names[key], Marks: marks, Grade: model.Grade(marks)})
		sum += marks
	}
	sortStandings(standings)

	card := &model.Scorecard{
		District:        district,
		MaxMarks:        model.ScorecardMaxMarks,
		TotalDistricts:  len(standings),
		StateAverage:    model.Round2(sum / float64(len(standings))),
		TopDistrict:     standings[0].Name,
		BottomDistrict:  standings[len(standings)-1].Name,
		TopDistricts:    top(standings, model.LeaderboardSize),
		BottomDistricts: bottom(standings, model.LeaderboardSize),
		Components:      components,
		ExtraMarks:      model.Round2(extraMarks),
	}
	for i, s := range standings {
		if SameName(s.Name, district) {
			card.Marks = s.Marks
			card.Rank = i + 1
			break
		}
	}
	card.Grade = model.Grade(card.Marks)
	card.DiffFromStateAverage = model.Round2(card.Marks - card.StateAverage)
	card.Blocks, card.ExcludedBlocks = BlockStandings(district, sections, extra.Blocks, card.StateAverage)

	return card
}

// BlockStandings scores the blocks of district from the block rows of
// every section and the block rows of the scorecard-only endpoints.
// It returns the blocks best first and the names of the outliers left out.
func BlockStandings(district string, sections []model.SectionData, extra [][]model.Row, stateAverage float64) ([]model.BlockStanding, []string) {
	index := make(map[string]*model.BlockStanding)
	var order []string
	get := func(name string) *model.BlockStanding {
		key := cleanName(name)
		b, ok := index[key]
		if !ok {
			b = &model.BlockStanding{Name: name, Components: make([]model.ComponentMarks, 0, len(sections))}
			for _, data := range sections {
				b.Components = append(b.Components, model.ComponentMarks{
					Section:  data.Section,
					MaxMarks: data.Section.Info().MaxMarks,
				})
			}
			index[key] = b
			order = append(order, key)
		}
		return b
	}

	for i, data := range sections {
		if data.Blocks == nil {
			continue
		}
		for _, row := range data.Blocks.Blocks {
			if cleanName(row.Name()) == "" {
				continue
			}
			b := get(row.Name())
			marks := SectionMarks(data.Section, row)
			b.Components[i].Marks = marks
			b.Components[i].Available = true
			b.Marks += marks
		}
	}
	if len(index) == 0 {
		return nil, nil
	}

	for _, rows := range extra {
		for _, row := range FilterBlocks(rows, district) {
			// Blocks only present in the extra endpoints have no section data.
			b, ok := index[cleanName(row.Name())]
			if !ok {
				continue
			}
			marks := ExtraMarks(row)
			b.ExtraMarks += marks
			b.Marks += marks
		}
	}

	blocks := make([]model.BlockStanding, 0, len(order))
	for _, key := range order {
		b := index[key]
		b.Marks = model.Round2(b.Marks)
		b.ExtraMarks = model.Round2(b.ExtraMarks)
		b.Grade = model.Grade(b.Marks)
		b.DiffFromStateAverage = model.Round2(b.Marks - stateAverage)
		blocks = append(blocks, *b)
	}

	var excluded []string
	if len(blocks) >= minBlocksForOutliers {
		marks := make([]float64, len(blocks))
		for i, b := range blocks {
			marks[i] = b.Marks
		}
		kept := blocks[:0]
		for i, b := range blocks {
			if IsOutlier(marks, i) {
				excluded = append(excluded, b.Name)
				continue
			}
			kept = append(kept, b)
		}
		blocks = kept
		sort.Strings(excluded)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Marks != blocks[j].Marks {
			return blocks[i].Marks > blocks[j].Marks
		}
		return blocks[i].Name < blocks[j].Name
	})
	return blocks, excluded
}

// PanchayatLeaderboard scores the panchayats of block from the responses
// of every dashboard endpoint and returns the best and worst performers.
// Rows named after the district or the block without registered workers
// are summary rows and are dropped. With at least 10 panchayats, outliers
// are dropped as well. The very last panchayat is left out of the bottom
// list when there are enough others to fill it.
func PanchayatLeaderboard(district, block string, sets [][]model.Row) (best, worst []model.Standing) {
	merged := make(map[string]model.Row)
	var order []string
	for _, rows := range sets {
		for _, row := range rows {
			name := row.Name()
			if name == "" {
				continue
			}
			target, ok := merged[name]
			if !ok {
				target = model.Row{}
				merged[name] = target
				order = append(order, name)
			}
			for k, v := range row {
				target[k] = v
			}
		}
	}

	fields := model.OverallMarksFields()
	standings := make([]model.Standing, 0, len(order))
	for _, name := range order {
		row := merged[name]
		if (SameName(name, district) || SameName(name, block)) && workerCount(row) == 0 {
			continue
		}
		marks := 0.0
		for _, f := range fields {
			marks += row.FloatOr(f, 0)
		}
		marks = model.Round2(marks)
		standings = append(standings, model.Standing{Name: name, Marks: marks, Grade: model.Grade(marks)})
	}
	if len(standings) == 0 {
		return nil, nil
	}

	if len(standings) >= minPanchayatsForOutliers {
		marks := make([]float64, len(standings))
		for i, s := range standings {
			marks[i] = s.Marks
		}
		kept := make([]model.Standing, 0, len(standings))
		for i, s := range standings {
			if !IsOutlier(marks, i) {
				kept = append(kept, s)
			}
		}
		standings = kept
	}

	sortStandings(standings)

	n := model.LeaderboardSize
	best = top(standings, n)
	if len(standings) > n+1 {
		worst = append([]model.Standing(nil), standings[len(standings)-n-1:len(standings)-1]...)
	} else {
		worst = bottom(standings, n)
	}
	return best, worst
}

// IsOutlier reports whether marks[i] is more than 40% below the average
// of the other marks.
func IsOutlier(marks []float64, i int) bool {
	if len(marks) <= 1 {
		return false
	}
	sum := 0.0
	for j, m := range marks {
		if j != i {
			sum += m
		}
	}
	avg := sum / float64(len(marks)-1)
	return marks[i] < avg*(1-outlierThreshold)
}

// ExtraMarks sums the scorecard-only marks fields present in row.
func ExtraMarks(row model.Row) float64 {
	marks := 0.0
	for _, field := range model.ScorecardExtraMarksFields {
		marks += row.FloatOr(field, 0)
	}
	return marks
}

// sortStandings orders standings by marks, highest first, then by name.
func sortStandings(standings []model.Standing) {
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Marks != standings[j].Marks {
			return standings[i].Marks > standings[j].Marks
		}
		return cleanName(standings[i].Name) < cleanName(standings[j].Name)
	})
}

func top(standings []model.Standing, n int) []model.Standing {
	n = min(n, len(standings))
	return append([]model.Standing(nil), standings[:n]...)
}

func bottom(standings []model.Standing, n int) []model.Standing {
	n = min(n, len(standings))
	return append([]model.Standing(nil), standings[len(standings)-n:]...)
}
