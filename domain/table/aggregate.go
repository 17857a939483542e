package table

import (
	"strconv"
	"strings"
)

// AggregateRow is one reduced record per distinct group key
type AggregateRow struct {
	Key   []Value `json:"-"`
	Value float64 `json:"value"`
}

// KeyString joins the key values with a separator that cannot occur in CSV
// cells produced by this package, for use as a map key.
func (r AggregateRow) KeyString() string {
	parts := make([]string, len(r.Key))
	for i, k := range r.Key {
		parts[i] = k.String()
	}
	return strings.Join(parts, "\x1f")
}

// Label renders the key for display, e.g. "50001 / A"
func (r AggregateRow) Label() string {
	parts := make([]string, len(r.Key))
	for i, k := range r.Key {
		parts[i] = k.String()
	}
	return strings.Join(parts, " / ")
}

// AggregateTable is the ordered output of an aggregation stage
type AggregateTable struct {
	KeyFields []string       `json:"key_fields"`
	Measure   string         `json:"measure"`
	Rows      []AggregateRow `json:"rows"`
}

// Len returns the number of groups
func (a *AggregateTable) Len() int { return len(a.Rows) }

// Values returns the aggregate values in row order
func (a *AggregateTable) Values() []float64 {
	out := make([]float64, len(a.Rows))
	for i, r := range a.Rows {
		out[i] = r.Value
	}
	return out
}

// AsMap indexes aggregate values by KeyString, ignoring row order
func (a *AggregateTable) AsMap() map[string]float64 {
	out := make(map[string]float64, len(a.Rows))
	for _, r := range a.Rows {
		out[r.KeyString()] = r.Value
	}
	return out
}

// Records renders the aggregate as CSV records with a header row
func (a *AggregateTable) Records() [][]string {
	header := append(append([]string(nil), a.KeyFields...), a.Measure)
	records := make([][]string, 0, len(a.Rows)+1)
	records = append(records, header)
	for _, r := range a.Rows {
		rec := make([]string, 0, len(r.Key)+1)
		for _, k := range r.Key {
			rec = append(rec, k.String())
		}
		rec = append(rec, strconv.FormatFloat(r.Value, 'f', -1, 64))
		records = append(records, rec)
	}
	return records
}
