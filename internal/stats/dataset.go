package stats

import (
	"sort"
	"strings"
)

// Dataset is an immutable table of records indexed by entity.
type Dataset struct {
	entityColumn string
	periodColumn string
	columns      []string
	numeric      map[string]bool
	records      []Record
	entities     []string
	index        map[string][]int
}

// NewDataset builds a dataset from records. columns is the ordered header
// (entity and period columns included) and numeric names the columns that
// hold numbers. Records are copied and each entity's series is kept in
// season order.
func NewDataset(entityColumn, periodColumn string, columns []string, numeric []string, records []Record) *Dataset {
	ds := &Dataset{
		entityColumn: entityColumn,
		periodColumn: periodColumn,
		columns:      append([]string(nil), columns...),
		numeric:      make(map[string]bool, len(numeric)),
		records:      make([]Record, len(records)),
		index:        make(map[string][]int),
	}
	for _, c := range numeric {
		ds.numeric[c] = true
	}
	for i, r := range records {
		ds.records[i] = r.Clone()
	}

	for i, r := range ds.records {
		if _, seen := ds.index[r.Entity]; !seen {
			ds.entities = append(ds.entities, r.Entity)
		}
		ds.index[r.Entity] = append(ds.index[r.Entity], i)
	}
	for _, idx := range ds.index {
		sort.SliceStable(idx, func(a, b int) bool {
			return ds.records[idx[a]].Season < ds.records[idx[b]].Season
		})
	}
	return ds
}

// EntityColumn is the header name of the identifier column (e.g. "Name").
func (d *Dataset) EntityColumn() string { return d.entityColumn }

// PeriodColumn is the header name of the season column.
func (d *Dataset) PeriodColumn() string { return d.periodColumn }

// Columns returns the header in file order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// NumericColumns returns the numeric columns in header order. These are the
// metrics offered for visualisation and comparison.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.columns {
		if d.numeric[c] {
			out = append(out, c)
		}
	}
	return out
}

// IsNumeric reports whether column holds numbers.
func (d *Dataset) IsNumeric(column string) bool {
	return d.numeric[column]
}

// HasColumn reports whether column is part of the header.
func (d *Dataset) HasColumn(column string) bool {
	for _, c := range d.columns {
		if c == column {
			return true
		}
	}
	return false
}

// Len is the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Entities returns the unique entity names in first-appearance order.
func (d *Dataset) Entities() []string {
	return append([]string(nil), d.entities...)
}

// Records returns a copy of every record in file order.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	for i, r := range d.records {
		out[i] = r.Clone()
	}
	return out
}

// Series returns the entity's records ordered by season ascending, or nil
// when the entity is unknown.
func (d *Dataset) Series(entity string) []Record {
	idx, ok := d.index[entity]
	if !ok {
		return nil
	}
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = d.records[j].Clone()
	}
	return out
}

// Search returns entity names containing query, ignoring case, in
// first-appearance order. An empty query matches nothing.
func (d *Dataset) Search(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []string
	for _, e := range d.entities {
		if strings.Contains(strings.ToLower(e), q) {
			out = append(out, e)
		}
	}
	return out
}

// Suggest is Search for autocomplete: queries shorter than minLen give no
// suggestions and at most limit names are returned.
func (d *Dataset) Suggest(query string, minLen, limit int) []string {
	if len(strings.TrimSpace(query)) < minLen {
		return nil
	}
	matches := d.Search(query)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Point is one bar of a comparison chart.
type Point struct {
	Entity string  `json:"entity"`
	Season string  `json:"season"`
	Value  float64 `json:"value"`
}

// Comparison holds one metric across several entities.
type Comparison struct {
	Metric string  `json:"metric"`
	Points []Point `json:"points"`
}

// Compare collects metric for every season of each requested entity.
// Entities with no records are skipped; duplicates are compared once.
func (d *Dataset) Compare(entities []string, metric string) (Comparison, error) {
	if !d.numeric[metric] {
		return Comparison{}, ErrUnknownMetric
	}

	cmp := Comparison{Metric: metric, Points: []Point{}}
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if seen[e] {
			continue
		}
		seen[e] = true
		for _, r := range d.Series(e) {
			v, _ := r.Value(metric)
			cmp.Points = append(cmp.Points, Point{Entity: e, Season: r.Season, Value: v})
		}
	}
	return cmp, nil
}
