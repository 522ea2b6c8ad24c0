// Package stats holds the historical season-by-season tables for players and
// teams. A Dataset is loaded once and treated as read-only afterwards; all
// accessors return copies so callers cannot mutate shared state.
package stats

import (
	"errors"
	"sort"
)

// ErrUnknownMetric is returned when a comparison asks for a column that is not numeric.
var ErrUnknownMetric = errors.New("unknown metric")

// Record is one (entity, season) row.
type Record struct {
	Entity  string
	Season  string
	Numeric map[string]float64
	Labels  map[string]string
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{
		Entity:  r.Entity,
		Season:  r.Season,
		Numeric: make(map[string]float64, len(r.Numeric)),
		Labels:  make(map[string]string, len(r.Labels)),
	}
	for k, v := range r.Numeric {
		out.Numeric[k] = v
	}
	for k, v := range r.Labels {
		out.Labels[k] = v
	}
	return out
}

// Value returns the numeric value of column and whether it is present.
func (r Record) Value(column string) (float64, bool) {
	v, ok := r.Numeric[column]
	return v, ok
}

// Flatten renders the record as a single column->value map keyed by the
// dataset's own entity and period column names.
func (r Record) Flatten(entityColumn, periodColumn string) map[string]interface{} {
	out := make(map[string]interface{}, len(r.Numeric)+len(r.Labels)+2)
	for k, v := range r.Labels {
		out[k] = v
	}
	for k, v := range r.Numeric {
		out[k] = v
	}
	out[entityColumn] = r.Entity
	out[periodColumn] = r.Season
	return out
}

// SortBySeason orders records by season ascending. The sort is stable so two
// rows for the same season keep their original order.
func SortBySeason(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Season < records[j].Season
	})
}

// FilterEntity returns copies of the records that belong to entity, matched exactly.
func FilterEntity(records []Record, entity string) []Record {
	var out []Record
	for _, r := range records {
		if r.Entity == entity {
			out = append(out, r.Clone())
		}
	}
	return out
}
