package stats

import (
	"strings"

	"github.com/nregsmp/nregsreport/internal/model"
)

// fieldAliases renames fields of secondary endpoints that would otherwise
// collide with fields of the primary endpoint.
var fieldAliases = map[string]map[string]string{
	"disabled": {"persondays_generated": "persondays_generated_disabled"},
}

// fieldOverrides lists, per secondary endpoint, the fields that replace a
// value already present in the primary row.
var fieldOverrides = map[string]map[string]bool{
	"disabled": {
		"employment_availed_total_persondays": true,
		"disabled_ratio":                      true,
		"disabled_marks":                      true,
	},
}

// workerFields are the fields that may carry a row's registered worker count.
var workerFields = []string{"registered_worker", "total_registered_workers", "Total Registered Workers"}

// MergeRows merges the responses of a section's endpoints by group name.
// The first set is the primary one and decides which rows exist; fields
// from later sets are added to the row with the same group name without
// overwriting fields already present, except for the fields an endpoint
// owns (see fieldOverrides). Rows without a group name are dropped.
func MergeRows(endpoints []string, sets [][]model.Row) []model.Row {
	if len(sets) == 0 {
		return nil
	}

	merged := make([]model.Row, 0, len(sets[0]))
	index := make(map[string]model.Row, len(sets[0]))
	for _, row := range sets[0] {
		name := row.Name()
		if name == "" {
			continue
		}
		c := row.Clone()
		merged = append(merged, c)
		index[name] = c
	}

	for i := 1; i < len(sets); i++ {
		var (
			aliases   map[string]string
			overrides map[string]bool
		)
		if i < len(endpoints) {
			aliases = fieldAliases[endpoints[i]]
			overrides = fieldOverrides[endpoints[i]]
		}
		for _, row := range sets[i] {
			target, ok := index[row.Name()]
			if !ok {
				continue
			}
			for k, v := range row {
				if alias, ok := aliases[k]; ok {
					k = alias
				}
				if _, exists := target[k]; !exists || overrides[k] {
					target[k] = v
				}
			}
		}
	}

	return merged
}

// Prepare merges the endpoint responses of a section and adds the derived
// fields the summaries and prompts rely on. Float values are rounded to
// 2 decimals and every row gets model.SectionMarksField.
func Prepare(section model.Section, sets [][]model.Row) []model.Row {
	info := section.Info()
	rows := MergeRows(info.Endpoints, sets)

	for _, row := range rows {
		for k, v := range row {
			if f, ok := v.(float64); ok {
				row[k] = model.Round2(f)
			}
		}
		if section == model.SectionCategoryEmployment {
			deriveCategoryPercentages(row)
		}
		row[model.SectionMarksField] = SectionMarks(section, row)
	}

	return rows
}

// SectionMarks sums the section's marks fields present in row.
func SectionMarks(section model.Section, row model.Row) float64 {
	total := 0.0
	for _, field := range section.Info().MarksFields {
		total += row.FloatOr(field, 0)
	}
	return model.Round2(total)
}

func deriveCategoryPercentages(row model.Row) {
	row["hundred_days_percentage"] = percentage(row, "families_completed_100_days_total", "hh_issued_jobcards_total")
	row["st_employment_percentage"] = percentage(row, "no_of_hh_provided_employment_sts", "hh_issued_jobcards_sts")
	row["sc_employment_percentage"] = percentage(row, "no_of_hh_provided_employment_scs", "hh_issued_jobcards_scs")
	row["women_pd_percentage"] = percentage(row, "no_of_persondays_generated_women", "active_workers_women")
	if _, ok := row.Float("disabled_ratio"); !ok {
		row["disabled_ratio"] = 0.0
	}
}

// percentage returns numerator/denominator*100 rounded to 2 decimals,
// or 0 when the denominator is missing or not positive.
func percentage(row model.Row, numerator, denominator string) float64 {
	d, ok := row.Float(denominator)
	if !ok || d <= 0 {
		return 0
	}
	return model.Round2(row.FloatOr(numerator, 0) / d * 100)
}

// SameName compares group names ignoring case and whitespace, the way the
// dashboard's district and block names are matched against each other.
func SameName(a, b string) bool {
	return cleanName(a) == cleanName(b)
}

func cleanName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// FilterBlocks drops the summary row some district-level responses include:
// a row named after the district itself with no registered workers.
func FilterBlocks(rows []model.Row, district string) []model.Row {
	filtered := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		if SameName(row.Name(), district) && workerCount(row) == 0 {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// workerCount returns the first worker count field present in row, or 0.
func workerCount(row model.Row) float64 {
	for _, field := range workerFields {
		if v, ok := row.Float(field); ok {
			return v
		}
	}
	return 0
}
