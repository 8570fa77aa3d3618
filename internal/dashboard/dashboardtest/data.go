package dashboardtest

import (
	"github.com/nregsmp/nregsreport/internal/model"
)

// Districts are the districts present in the fake state-level data,
// from best to worst on every metric.
var Districts = []string{"DINDORI", "SIDHI", "REWA", "SATNA"}

// Blocks are the blocks of SIDHI in the fake district-level data.
var Blocks = []string{"MAJHAULI", "SIHAWAL", "KUSMI", "RAMPUR NAIKIN"}

// Panchayats are the panchayats of every block in the fake panchayat-level data.
var Panchayats = []string{"AMILIYA", "BADKADOL", "CHURHAT", "DEVGAWAN", "GOPALPUR", "HATWA", "JAMODI", "KHADDI"}

// endpointFields lists the numeric fields served by each endpoint with
// the value of the best row. Every later row scales them down.
var endpointFields = map[string]map[string]float64{
	"inspection": {
		"dpc_visits": 12, "adpc_visits": 11, "total_visit_marks": 2,
	},
	"avg-persondays": {
		"avg_persondays": 62.5, "pd_marks": 10,
	},
	"category-employment": {
		"families_completed_100_days_total": 420, "hh_issued_jobcards_total": 12000,
		"no_of_hh_provided_employment_sts": 3100, "hh_issued_jobcards_sts": 5200,
		"no_of_hh_provided_employment_scs": 900, "hh_issued_jobcards_scs": 1800,
		"no_of_persondays_generated_women": 41000, "active_workers_women": 700,
		"persondays_generated": 80000, "total_marks": 16,
	},
	"disabled": {
		"persondays_generated": 1900, "disabled_ratio": 2.38, "disabled_marks": 3,
	},
	"fra-beneficiaries": {
		"total_fra_beneficiaries_registered": 2400, "percentage_100_days_emp": 14.2,
		"percentage_101_149_days_emp": 6.1, "percentage_150_days_emp": 2.4, "total_fra_marks": 3,
	},
	"geotag-pending-works": {
		"pending_percentage_phase_0_assets": 1.2, "pending_percentage_phase_1_before": 2.5,
		"pending_percentage_phase_2_during": 3.1, "pending_percentage_phase_3_after": 4.4,
		"pending_percentage_geotag": 2.8, "geotag_marks": 4,
		"phase_0_assets_geotag_marks": 1, "phase_1_before_geotag_marks": 1,
		"phase_2_during_geotag_marks": 1, "phase_3_after_geotag_marks": 1,
	},
	"labour-engagement": {
		"total_registered_workers": 180000, "30_day_avg_labour_expected": 21000,
		"ratio": 11.67, "marks": 14,
	},
	"labour-material-ratio": {
		"labour_percentage": 62, "material_percentage": 38, "ratio_marks": 5,
	},
	"nmms-usage": {
		"total_nmms_marks": 5,
	},
	"women-mate-engagement": {
		"total_registered_mates": 3400, "women_mates": 1100, "women_mate_reg_percentage": 32.35,
		"women_mate_work_percentage": 29.8, "women_mate_marks": 3,
	},
	"work-management": {
		"marks_prev": 6, "marks_curr": 4,
	},
	"zero-muster": {
		"zero_muster_marks": 5,
	},
	"transaction": {
		"total_transaction_marks": 4, "pending_marks": 2,
	},
	"recovery": {
		"recovery_marks": 3,
	},
	"timely-payment": {
		"timely_payment_marks": 5,
	},
}

// rows builds one row per name with the endpoint's fields scaled down by
// position: the first name gets the full values, each later one 15% less.
func rows(endpoint string, names []string) []model.Row {
	return scaledRows(endpoint, names, 0.15)
}

func scaledRows(endpoint string, names []string, step float64) []model.Row {
	fields := endpointFields[endpoint]
	out := make([]model.Row, 0, len(names))
	for i, name := range names {
		scale := 1 - step*float64(i)
		row := model.Row{model.GroupNameField: name}
		for field, value := range fields {
			row[field] = model.Round2(value * scale)
		}
		out = append(out, row)
	}
	return out
}

// Endpoints returns every endpoint served by the fake dashboard.
func Endpoints() []string {
	endpoints := make([]string, 0, len(endpointFields))
	for endpoint := range endpointFields {
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
}

// StateRows returns state-level rows of every endpoint.
func StateRows() map[string][]model.Row {
	out := make(map[string][]model.Row, len(endpointFields))
	for endpoint := range endpointFields {
		out[endpoint] = rows(endpoint, Districts)
	}
	return out
}

// SidhiBlockRows returns block-level rows of SIDHI for every endpoint.
// Like the real dashboard, some responses carry an extra district row
// without registered workers.
func SidhiBlockRows() map[string][]model.Row {
	out := make(map[string][]model.Row)
	for _, endpoint := range model.AllEndpoints() {
		blockRows := rows(endpoint, Blocks)
		for i, row := range blockRows {
			row["registered_worker"] = float64(20000 + 1000*i)
		}
		blockRows = append(blockRows, model.Row{
			model.GroupNameField: "SIDHI",
			"registered_worker":  0.0,
		})
		out[endpoint] = blockRows
	}
	return out
}

// PanchayatRows returns panchayat-level rows of block for every endpoint,
// best panchayat first, plus a summary row named after the block.
func PanchayatRows(block string) map[string][]model.Row {
	out := make(map[string][]model.Row)
	for _, endpoint := range model.AllEndpoints() {
		gpRows := scaledRows(endpoint, Panchayats, 0.1)
		for _, row := range gpRows {
			row["registered_worker"] = 800.0
		}
		out[endpoint] = append(gpRows, model.Row{
			model.GroupNameField: block,
			"registered_worker":  0.0,
		})
	}
	return out
}
