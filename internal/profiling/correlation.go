package profiling

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"gotidy/domain/table"
)

// CorrelationMatrix holds pairwise Pearson coefficients between numeric fields
type CorrelationMatrix struct {
	Fields []string    `json:"fields"`
	Values [][]float64 `json:"values"`
}

// At returns the coefficient for two named fields, or NaN if either is absent
func (m CorrelationMatrix) At(a, b string) float64 {
	i, j := -1, -1
	for k, f := range m.Fields {
		if f == a {
			i = k
		}
		if f == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

// Correlate computes the correlation matrix over every numeric field of t.
// Text, category and date fields are excluded. Each pair uses the rows where
// both values are present; a pair with fewer than two such rows or a constant
// column is NaN.
func Correlate(t *table.Table) CorrelationMatrix {
	var idx []int
	var names []string
	for i, f := range t.Schema.Fields {
		if f.Type.IsNumeric() {
			idx = append(idx, i)
			names = append(names, f.Name)
		}
	}

	m := CorrelationMatrix{Fields: names, Values: make([][]float64, len(idx))}
	for a := range idx {
		m.Values[a] = make([]float64, len(idx))
	}

	for a := range idx {
		for b := a; b < len(idx); b++ {
			x, y := pairedColumns(t, idx[a], idx[b])
			r := math.NaN()
			if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
			}
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

func pairedColumns(t *table.Table, i, j int) ([]float64, []float64) {
	x := make([]float64, 0, t.Len())
	y := make([]float64, 0, t.Len())
	for _, row := range t.Rows {
		if row[i].IsNumeric() && row[j].IsNumeric() {
			x = append(x, row[i].Float())
			y = append(y, row[j].Float())
		}
	}
	return x, y
}
