package profiling

import (
	"math"

	"github.com/montanaflynn/stats"

	"gotidy/domain/table"
	"gotidy/internal/errors"
)

// Summary holds describe()-style statistics for one numeric field
type Summary struct {
	Field    string  `json:"field"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Outliers int     `json:"outliers"`
}

// Describe summarises every numeric field of t in schema order. Missing
// values are ignored; a numeric field with no values yields Count 0.
func Describe(t *table.Table) ([]Summary, error) {
	var out []Summary
	for _, f := range t.Schema.Fields {
		if !f.Type.IsNumeric() {
			continue
		}
		s, err := DescribeField(f.Name, t.Floats(f.Name))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to describe %s", f.Name)
		}
		out = append(out, s)
	}
	return out, nil
}

// DescribeField computes summary statistics for one sample
func DescribeField(name string, data []float64) (Summary, error) {
	s := Summary{Field: name, Count: len(data)}
	if len(data) == 0 {
		return s, nil
	}

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if len(data) > 1 {
		if s.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return s, err
		}
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}

	// Quartiles for IQR-based outlier detection
	if s.Q25, err = stats.Percentile(data, 25); err != nil {
		return s, err
	}
	if s.Q75, err = stats.Percentile(data, 75); err != nil {
		return s, err
	}

	s.Skewness = calculateSkewness(data, s.Mean, s.StdDev)
	s.Outliers = detectOutliers(data, s.Q25, s.Q75)
	return s, nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n
	// Bias correction for sample skewness
	skewness *= math.Sqrt(n*(n-1)) / (n - 2)
	return skewness
}

// detectOutliers identifies outliers using IQR method
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
