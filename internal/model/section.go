package model

import (
	"fmt"
	"strings"
)

// Section identifies one of the fixed topics of a district report.
// The numeric order of the constants is the order in which sections
// appear in every report.
type Section int

const (
	// SectionInspections covers field inspections by the DPC and ADPC.
	SectionInspections Section = iota

	// SectionPersonDays covers average person-days per job card holder.
	SectionPersonDays

	// SectionCategoryEmployment covers 100-day households, SC/ST households,
	// women person-days and disabled workers.
	SectionCategoryEmployment

	// SectionFRABeneficiaries covers employment of Forest Rights Act beneficiaries.
	SectionFRABeneficiaries

	// SectionGeotagPending covers works whose geotagging is still pending.
	SectionGeotagPending

	// SectionLabourEngagement covers daily labour engagement against registered workers.
	SectionLabourEngagement

	// SectionLabourMaterialRatio covers the split of expenditure between labour and material.
	SectionLabourMaterialRatio

	// SectionNMMSUsage covers attendance captured through the National Mobile Monitoring System.
	SectionNMMSUsage

	// SectionWomenMateEngagement covers the share of women among worksite mates.
	SectionWomenMateEngagement

	// SectionWorkManagement covers completion of older and current works.
	SectionWorkManagement

	// SectionZeroMuster covers worksites with no recorded attendance.
	SectionZeroMuster

	sectionCount
)

// SectionCount is the number of sections in every report.
const SectionCount = int(sectionCount)

// SectionMarksField is the derived per-row field holding the sum of a
// section's marks fields. Sections without a dedicated ranking metric
// are ranked on it.
const SectionMarksField = "section_marks"

// SectionInfo describes how a section is fetched, ranked and scored.
type SectionInfo struct {
	// Slug is the stable identifier used in file names, config keys and the history database.
	Slug string

	// Title is the heading printed in the report.
	Title string

	// Endpoints are the dashboard API endpoints queried for the section.
	// Rows from every endpoint are merged by group name; the first endpoint
	// is the primary one and decides which rows exist.
	Endpoints []string

	// RankField is the metric districts and blocks are sorted on, highest first.
	RankField string

	// FocusMetric names the metric in plain words for the prompt.
	FocusMetric string

	// MetricFields are the fields averaged across districts and blocks.
	MetricFields []string

	// MarksFields are summed to give the section's marks for a district.
	MarksFields []string

	// MaxMarks is the maximum marks of the section, or zero when the
	// dashboard does not publish one.
	MaxMarks float64

	// Criteria is the scoring rule as published for the scorecard.
	Criteria []string
}

var sectionCatalog = [SectionCount]SectionInfo{
	SectionInspections: {
		Slug:         "inspections",
		Title:        "Inspections",
		Endpoints:    []string{"inspection"},
		RankField:    "total_visit_marks",
		FocusMetric:  "inspections carried out by the District Programme Coordinator (DPC) and Additional DPC (ADPC)",
		MetricFields: []string{"total_visit_marks"},
		MarksFields:  []string{"total_visit_marks"},
		Criteria: []string{
			"A minimum of 10 inspections is expected from both the DPC and the ADPC",
			"Marks are awarded only when both officers meet the target",
		},
	},
	SectionPersonDays: {
		Slug:         "person-days",
		Title:        "Person Days",
		Endpoints:    []string{"avg-persondays"},
		RankField:    "avg_persondays",
		FocusMetric:  `average person days provided to job card holders ("avg_persondays")`,
		MetricFields: []string{"avg_persondays", "pd_marks"},
		MarksFields:  []string{"pd_marks"},
		MaxMarks:     10,
		Criteria: []string{
			"Full marks (10) if average person days per active household is >= 60 days",
			"Zero marks if average is less than 30 person days per active household",
			"Otherwise, proportionate marks are given",
		},
	},
	SectionCategoryEmployment: {
		Slug:        "category-employment",
		Title:       "Category-wise Employment",
		Endpoints:   []string{"category-employment", "disabled"},
		RankField:   SectionMarksField,
		FocusMetric: "employment of 100-day households, SC and ST households, women and disabled workers",
		MetricFields: []string{
			"hundred_days_percentage", "st_employment_percentage", "sc_employment_percentage",
			"women_pd_percentage", "disabled_ratio", SectionMarksField,
		},
		MarksFields: []string{"total_marks", "disabled_marks"},
		MaxMarks:    22,
		Criteria: []string{
			"Households completing 100 days: below 1% gets 0 marks, 1-3% gets 3 marks, above 3% gets 6 marks",
			"ST households provided employment: proportionate marks, maximum 3",
			"SC households provided employment: proportionate marks, maximum 3",
			"Women person days: 7 marks if women account for 50% or more of person days",
			"Disabled workers: 3 marks if disabled workers account for more than 2% of person days",
		},
	},
	SectionFRABeneficiaries: {
		Slug:        "fra-beneficiaries",
		Title:       "FRA Beneficiaries",
		Endpoints:   []string{"fra-beneficiaries"},
		RankField:   "total_fra_marks",
		FocusMetric: "employment provided to Forest Rights Act beneficiaries",
		MetricFields: []string{
			"total_fra_beneficiaries_registered", "percentage_100_days_emp",
			"percentage_101_149_days_emp", "percentage_150_days_emp", "total_fra_marks",
		},
		MarksFields: []string{"total_fra_marks"},
		MaxMarks:    3,
		Criteria: []string{
			"1 mark for the share of FRA beneficiaries completing 100 days of employment",
			"1 mark for the share completing 101 to 149 days",
			"1 mark for the share completing 150 days",
		},
	},
	SectionGeotagPending: {
		Slug:        "geotag-pending",
		Title:       "Geotag Pending Works",
		Endpoints:   []string{"geotag-pending-works"},
		RankField:   "geotag_marks",
		FocusMetric: "works with pending geotagging across the asset, before, during and after phases",
		MetricFields: []string{
			"pending_percentage_phase_0_assets", "pending_percentage_phase_1_before",
			"pending_percentage_phase_2_during", "pending_percentage_phase_3_after",
			"pending_percentage_geotag", "geotag_marks",
		},
		MarksFields: []string{
			"phase_0_assets_geotag_marks", "phase_1_before_geotag_marks",
			"phase_2_during_geotag_marks", "phase_3_after_geotag_marks",
		},
		Criteria: []string{
			"Each geotagging phase is scored on its pending percentage",
			"A lower pending percentage is better",
		},
	},
	SectionLabourEngagement: {
		Slug:         "labour-engagement",
		Title:        "Labour Engagement",
		Endpoints:    []string{"labour-engagement"},
		RankField:    "ratio",
		FocusMetric:  `labour engagement ratio ("ratio") of 30-day average labour against registered workers`,
		MetricFields: []string{"total_registered_workers", "30_day_avg_labour_expected", "ratio", "marks"},
		MarksFields:  []string{"marks"},
		MaxMarks:     15,
		Criteria: []string{
			"Marks are proportionate to the ratio of average daily labour engaged over the last 30 days to registered workers",
			"Maximum 15 marks",
		},
	},
	SectionLabourMaterialRatio: {
		Slug:         "labour-material-ratio",
		Title:        "Labour-Material Ratio",
		Endpoints:    []string{"labour-material-ratio"},
		RankField:    "ratio_marks",
		FocusMetric:  "share of material expenditure against labour expenditure",
		MetricFields: []string{"labour_percentage", "material_percentage", "ratio_marks"},
		MarksFields:  []string{"ratio_marks"},
		MaxMarks:     5,
		Criteria: []string{
			"Material share below 20%: 0 marks",
			"Material share between 25% and 35%: proportionate marks",
			"Material share between 35% and 40%: full marks (5)",
			"Material share above 40%: 0 marks",
		},
	},
	SectionNMMSUsage: {
		Slug:         "nmms-usage",
		Title:        "NMMS Usage",
		Endpoints:    []string{"nmms-usage"},
		RankField:    "total_nmms_marks",
		FocusMetric:  "attendance captured through the National Mobile Monitoring System (NMMS)",
		MetricFields: []string{"total_nmms_marks"},
		MarksFields:  []string{"total_nmms_marks"},
		Criteria: []string{
			"100% of attendance captured through NMMS is the ideal",
		},
	},
	SectionWomenMateEngagement: {
		Slug:        "women-mate-engagement",
		Title:       "Women Mate Engagement",
		Endpoints:   []string{"women-mate-engagement"},
		RankField:   "women_mate_marks",
		FocusMetric: "engagement of women as worksite mates",
		MetricFields: []string{
			"total_registered_mates", "women_mates", "women_mate_reg_percentage",
			"women_mate_work_percentage", "women_mate_marks",
		},
		MarksFields: []string{"women_mate_marks"},
		MaxMarks:    3,
		Criteria: []string{
			"3 marks if women account for more than 25% of engaged mates",
		},
	},
	SectionWorkManagement: {
		Slug:         "work-management",
		Title:        "Work Management",
		Endpoints:    []string{"work-management"},
		RankField:    SectionMarksField,
		FocusMetric:  "completion of works sanctioned in previous and current years",
		MetricFields: []string{"marks_prev", "marks_curr", SectionMarksField},
		MarksFields:  []string{"marks_prev", "marks_curr"},
		Criteria: []string{
			"Completion of older works should be above 90%",
			"Completion of remaining works should be above the state average",
		},
	},
	SectionZeroMuster: {
		Slug:         "zero-muster",
		Title:        "Zero Muster Roll",
		Endpoints:    []string{"zero-muster"},
		RankField:    "zero_muster_marks",
		FocusMetric:  "worksites with muster rolls that recorded no attendance",
		MetricFields: []string{"zero_muster_marks"},
		MarksFields:  []string{"zero_muster_marks"},
		Criteria: []string{
			"A lower number of zero muster rolls is better",
		},
	},
}

// ScorecardEndpoints are dashboard endpoints that carry marks for the
// overall scorecard without having a report section of their own.
var ScorecardEndpoints = []string{"transaction", "recovery", "timely-payment"}

// ScorecardExtraMarksFields are the marks fields served by ScorecardEndpoints.
var ScorecardExtraMarksFields = []string{
	"total_transaction_marks", "pending_marks", "recovery_marks", "timely_payment_marks",
}

// OverallMarksFields returns every marks field that counts towards the
// overall marks: those of each section followed by ScorecardExtraMarksFields.
func OverallMarksFields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, info := range sectionCatalog {
		for _, f := range info.MarksFields {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	for _, f := range ScorecardExtraMarksFields {
		if !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

// AllEndpoints returns every dashboard endpoint: the endpoints of each
// section in report order followed by ScorecardEndpoints.
func AllEndpoints() []string {
	var endpoints []string
	for _, info := range sectionCatalog {
		endpoints = append(endpoints, info.Endpoints...)
	}
	return append(endpoints, ScorecardEndpoints...)
}

// ScorecardMaxMarks is the maximum overall marks on the dashboard scorecard.
const ScorecardMaxMarks = 103

// Sections returns every section in report order.
func Sections() []Section {
	sections := make([]Section, SectionCount)
	for i := range sections {
		sections[i] = Section(i)
	}
	return sections
}

// Valid reports whether s is one of the defined sections.
func (s Section) Valid() bool {
	return s >= 0 && s < sectionCount
}

// Info returns the catalog entry for the section.
// It returns a zero SectionInfo for an invalid section.
func (s Section) Info() SectionInfo {
	if !s.Valid() {
		return SectionInfo{}
	}
	return sectionCatalog[s]
}

// String returns the section slug.
func (s Section) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return sectionCatalog[s].Slug
}

// Title returns the report heading of the section.
func (s Section) Title() string {
	return s.Info().Title
}

// MarshalText encodes the section as its slug.
func (s Section) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid section %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a section slug.
func (s *Section) UnmarshalText(text []byte) error {
	parsed, err := ParseSection(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSection returns the section with the given slug.
// Matching ignores case and surrounding whitespace.
func ParseSection(slug string) (Section, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for i, info := range sectionCatalog {
		if info.Slug == slug {
			return Section(i), nil
		}
	}
	return 0, fmt.Errorf("unknown section %q", slug)
}
