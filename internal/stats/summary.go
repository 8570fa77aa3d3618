package stats

import (
	"errors"
	"sort"

	"github.com/nregsmp/nregsreport/internal/model"
)

// ErrNoRows is returned when a summary is requested for an empty response.
var ErrNoRows = errors.New("no rows to summarize")

// Rank returns rows sorted on the section's rank field, highest first.
// Ties are broken by group name so that the order is deterministic.
// The input slice is not modified.
func Rank(section model.Section, rows []model.Row) []model.Row {
	field := section.Info().RankField
	ranked := make([]model.Row, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := ranked[i].FloatOr(field, 0), ranked[j].FloatOr(field, 0)
		if vi != vj {
			return vi > vj
		}
		return ranked[i].Name() < ranked[j].Name()
	})
	return ranked
}

// Position returns the 1-based position of name in ranked rows, or 0 if absent.
func Position(ranked []model.Row, name string) int {
	for i, row := range ranked {
		if SameName(row.Name(), name) {
			return i + 1
		}
	}
	return 0
}

// Find returns the row named name, or nil.
func Find(rows []model.Row, name string) model.Row {
	for _, row := range rows {
		if SameName(row.Name(), name) {
			return row
		}
	}
	return nil
}

// Averages returns the mean of each field over the rows that carry it,
// rounded to 2 decimals. Fields no row carries are omitted.
func Averages(rows []model.Row, fields []string) map[string]float64 {
	averages := make(map[string]float64, len(fields))
	for _, field := range fields {
		sum, n := 0.0, 0
		for _, row := range rows {
			if v, ok := row.Float(field); ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			averages[field] = model.Round2(sum / float64(n))
		}
	}
	return averages
}

// SummarizeState ranks the districts of a state-level response.
func SummarizeState(section model.Section, rows []model.Row) (*model.StateSummary, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	ranked := Rank(section, rows)
	return &model.StateSummary{
		TopDistrict:    ranked[0],
		BottomDistrict: ranked[len(ranked)-1],
		Averages:       Averages(ranked, metricFields(section)),
		TotalDistricts: len(ranked),
		Rows:           ranked,
	}, nil
}

// SummarizeBlocks ranks the blocks of a district-level response after
// dropping the district's own summary row.
func SummarizeBlocks(section model.Section, rows []model.Row, district string) (*model.BlockSummary, error) {
	blocks := FilterBlocks(rows, district)
	if len(blocks) == 0 {
		return nil, ErrNoRows
	}

	ranked := Rank(section, blocks)
	return &model.BlockSummary{
		Blocks:       ranked,
		TotalBlocks:  len(ranked),
		Averages:     Averages(ranked, metricFields(section)),
		HighestBlock: ranked[0].Name(),
		LowestBlock:  ranked[len(ranked)-1].Name(),
	}, nil
}

// metricFields returns the section's metric fields plus its rank field.
func metricFields(section model.Section) []string {
	info := section.Info()
	fields := make([]string, 0, len(info.MetricFields)+1)
	fields = append(fields, info.MetricFields...)
	for _, f := range fields {
		if f == info.RankField {
			return fields
		}
	}
	return append(fields, info.RankField)
}

// BuildSectionData assembles the data of one section from prepared
// state-level and district-level rows. It returns an error wrapping
// model.ErrDistrictNotInData when the district has no state-level row.
// Block rows are optional: an empty district-level response leaves Blocks nil.
func BuildSectionData(section model.Section, req model.ReportRequest, stateRows, blockRows []model.Row) (model.SectionData, error) {
	data := model.SectionData{
		Section:  section,
		Date:     req.DateString(),
		District: req.District.Name,
	}

	state, err := SummarizeState(section, stateRows)
	if err != nil {
		return data, err
	}

	row := Find(state.Rows, req.District.Name)
	if row == nil {
		return data, model.ErrDistrictNotInData
	}

	data.State = state
	data.RawValues = row
	data.Rank = Position(state.Rows, req.District.Name)
	data.TotalDistricts = state.TotalDistricts

	if blocks, err := SummarizeBlocks(section, blockRows, req.District.Name); err == nil {
		data.Blocks = blocks
	}

	return data, nil
}
