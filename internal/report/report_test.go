package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gotidy/domain/core"
	"gotidy/domain/table"
	"gotidy/internal/cleaning"
	"gotidy/internal/filtering"
	"gotidy/internal/profiling"
)

func sampleInput() Input {
	return Input{
		Job:        "liquor-store-share",
		RunID:      core.RunID("0190f5a8-7a4e-7c3b-9d2e-123456789abc"),
		Source:     "finance_liquor_sales.csv",
		RowsLoaded: 10,
		Clean: cleaning.Report{
			RowsIn:              10,
			RowsOut:             8,
			Dropped:             2,
			PlaceholderRewrites: map[string]int{"county": 1},
			CoercionFailures:    map[string]int{"zip_code": 0},
			MissingByField:      map[string]int{"county": 2},
		},
		Filter:       &filtering.YearRange{Field: "date", From: 2016, To: 2019},
		RowsFiltered: 6,
		Aggregate: &table.AggregateTable{
			KeyFields: []string{"store_name"},
			Measure:   "sale_dollars",
			Rows: []table.AggregateRow{
				{Key: []table.Value{table.Text("Smokin' Joe's | Ames")}, Value: 25},
				{Key: []table.Value{table.Text("Hy-Vee")}, Value: 75},
			},
		},
		Artifacts: []string{"out/store_share.csv"},
	}
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(sampleInput())

	assert.True(t, strings.HasPrefix(md, "# liquor-store-share\n"))
	assert.Contains(t, md, "| 10 | 8 | 2 |")
	assert.Contains(t, md, "- county: 2")
	assert.Contains(t, md, "- county: 1")
	assert.NotContains(t, md, "zip_code: 0", "zero counts are omitted")
	assert.Contains(t, md, "`date` in [2016, 2019]: 6 rows retained.")
	assert.Contains(t, md, `| Smokin' Joe's \| Ames | 25 |`)
	assert.Contains(t, md, "- `out/store_share.csv`")
	assert.NotContains(t, md, "## Describe")
	assert.NotContains(t, md, "## Correlation")
}

func TestMarkdownStatistics(t *testing.T) {
	in := sampleInput()
	in.Summaries = []profiling.Summary{{Field: "mpg", Count: 5, Mean: 22.2, StdDev: 6.22, Min: 15, Q25: 18, Median: 22, Q75: 25, Max: 31}}
	in.Correlation = &profiling.CorrelationMatrix{
		Fields: []string{"mpg", "weight"},
		Values: [][]float64{{1, -0.93}, {-0.93, math.NaN()}},
	}

	md := Markdown(in)
	assert.Contains(t, md, "| mpg | 5 | 22.2000 | 6.2200 | 15.0000 | 18.0000 | 22.0000 | 25.0000 | 31.0000 |")
	assert.Contains(t, md, "| | mpg | weight |")
	assert.Contains(t, md, "| weight | -0.9300 | NaN |")
}

func TestHTML(t *testing.T) {
	page := string(HTML("Run report", Markdown(sampleInput())))
	assert.Contains(t, page, "<title>Run report</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<h2 id=\"cleaning\">Cleaning</h2>")
}
