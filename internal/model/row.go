package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// GroupNameField is the dashboard field naming the district or block a row belongs to.
const GroupNameField = "group_name"

// Row is one record of a dashboard response: a district in state-level
// responses, a block in district-level responses.
// Values keep the JSON types the dashboard sent (float64, string, bool, nil).
type Row map[string]any

// Name returns the row's group name, or an empty string.
func (r Row) Name() string {
	if s, ok := r[GroupNameField].(string); ok {
		return s
	}
	return ""
}

// Float returns the numeric value of key.
// Numeric strings are accepted because the dashboard sends some metrics quoted.
// The second result is false when the key is missing, null or not numeric.
func (r Row) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FloatOr returns the numeric value of key, or def if it has none.
func (r Row) FloatOr(key string, def float64) float64 {
	if f, ok := r.Float(key); ok {
		return f
	}
	return def
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Round2 rounds f to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
