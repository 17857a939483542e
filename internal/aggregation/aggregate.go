package aggregation

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"gotidy/domain/table"
	"gotidy/internal/errors"
)

// DefaultDecimals is the rounding applied to group percentages
const DefaultDecimals = 2

type group struct {
	key    []table.Value
	values []float64
	sum    float64
}

// partition sums measure per distinct key. Rows with a missing key value are
// skipped, and so are rows whose measure is not numeric.
func partition(t *table.Table, keys []string, measure string) ([]*group, error) {
	if len(keys) < 1 || len(keys) > 2 {
		return nil, errors.InvalidInputf("group key must have one or two fields, got %d", len(keys))
	}

	keyIdx := make([]int, len(keys))
	for i, k := range keys {
		idx := t.Schema.Index(k)
		if idx < 0 {
			return nil, errors.SchemaErrorf("group key %q not in schema", k)
		}
		keyIdx[i] = idx
	}

	mf, ok := t.Schema.Field(measure)
	if !ok {
		return nil, errors.SchemaErrorf("measure %q not in schema", measure)
	}
	if !mf.Type.IsNumeric() {
		return nil, errors.SchemaErrorf("measure %q is %s, not numeric", measure, mf.Type)
	}
	measureIdx := t.Schema.Index(measure)

	groups := make(map[string]*group)
	for _, row := range t.Rows {
		m := row[measureIdx]
		if !m.IsNumeric() {
			continue
		}
		key := make([]table.Value, len(keyIdx))
		missing := false
		for i, idx := range keyIdx {
			key[i] = row[idx]
			if key[i].IsMissing() {
				missing = true
			}
		}
		if missing {
			continue
		}
		ks := table.AggregateRow{Key: key}.KeyString()
		g, ok := groups[ks]
		if !ok {
			g = &group{key: key}
			groups[ks] = g
		}
		g.values = append(g.values, m.Float())
	}

	// summing in sorted order keeps float sums independent of row order
	out := make([]*group, 0, len(groups))
	for _, g := range groups {
		sort.Float64s(g.values)
		g.sum = floats.Sum(g.values)
		g.values = nil
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].key, out[j].key) })
	return out, nil
}

func lessKey(a, b []table.Value) bool {
	for i := range a {
		if c := table.Compare(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

// GroupSum partitions t by one or two key fields and sums measure within each
// partition. Rows come out ordered by key, so the result does not depend on
// input row order.
func GroupSum(t *table.Table, keys []string, measure string) (*table.AggregateTable, error) {
	groups, err := partition(t, keys, measure)
	if err != nil {
		return nil, err
	}

	agg := &table.AggregateTable{
		KeyFields: append([]string(nil), keys...),
		Measure:   measure,
		Rows:      make([]table.AggregateRow, len(groups)),
	}
	for i, g := range groups {
		agg.Rows[i] = table.AggregateRow{Key: g.key, Value: g.sum}
	}
	return agg, nil
}

// GroupPercentage sums measure per value of key and expresses each sum as a
// percentage of the grand total, rounded to decimals places. A grand total
// that is zero or negative is rejected as InvalidInput.
func GroupPercentage(t *table.Table, key, measure string, decimals int) (*table.AggregateTable, error) {
	groups, err := partition(t, []string{key}, measure)
	if err != nil {
		return nil, err
	}
	if decimals < 0 {
		return nil, errors.InvalidInputf("decimals must be non-negative, got %d", decimals)
	}

	sums := make([]float64, len(groups))
	for i, g := range groups {
		sums[i] = g.sum
	}
	total := floats.Sum(sums)
	if len(groups) == 0 || total <= 0 {
		return nil, errors.InvalidInputf("grand total of %s is %g; percentages need a positive total", measure, total)
	}

	agg := &table.AggregateTable{
		KeyFields: []string{key},
		Measure:   measure,
		Rows:      make([]table.AggregateRow, len(groups)),
	}
	for i, g := range groups {
		agg.Rows[i] = table.AggregateRow{
			Key:   g.key,
			Value: scalar.Round(g.sum/total*100, decimals),
		}
	}
	return agg, nil
}

// TopN keeps the n largest groups and returns them in ascending order of
// value. Both sorts are stable, so ties keep their incoming relative order.
// n <= 0 keeps nothing and n beyond the group count keeps everything. The
// input is not modified.
func TopN(agg *table.AggregateTable, n int) *table.AggregateTable {
	rows := append([]table.AggregateRow(nil), agg.Rows...)

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	if n < 0 {
		n = 0
	}
	if n < len(rows) {
		rows = rows[:n]
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value < rows[j].Value })

	return &table.AggregateTable{
		KeyFields: append([]string(nil), agg.KeyFields...),
		Measure:   agg.Measure,
		Rows:      rows,
	}
}
