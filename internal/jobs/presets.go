package jobs

import (
	"sort"

	"gotidy/adapters/source"
	"gotidy/domain/table"
	"gotidy/internal/cleaning"
	"gotidy/internal/errors"
	"gotidy/internal/filtering"
	"gotidy/ports"
)

// AutoMPGURL is the UCI fuel economy dataset
const AutoMPGURL = "https://archive.ics.uci.edu/ml/machine-learning-databases/auto-mpg/auto-mpg.data"

// LiquorSalesFile is the default location of the Iowa liquor sales extract
const LiquorSalesFile = "finance_liquor_sales.csv"

var presets = map[string]func() *Job{
	"liquor-top-items":   liquorTopItems,
	"liquor-store-share": liquorStoreShare,
	"auto-mpg":           autoMPG,
}

// Presets lists the built-in job names
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh copy of a built-in job
func Preset(name string) (*Job, error) {
	build, ok := presets[name]
	if !ok {
		return nil, errors.InvalidInputf("unknown preset %q (have %v)", name, Presets())
	}
	return build(), nil
}

func intPtr(v int) *int { return &v }

func liquorSource() source.Source {
	return source.Source{
		Location: LiquorSalesFile,
		Format:   source.FormatCSV,
		Schema: []table.Field{
			{Name: "date", Type: table.TypeDate},
			{Name: "zip_code", Type: table.TypeInteger},
			{Name: "item_number", Type: table.TypeText},
			{Name: "store_name", Type: table.TypeText},
			{Name: "bottles_sold", Type: table.TypeInteger},
			{Name: "sale_dollars", Type: table.TypeFloat},
		},
	}
}

func liquorYears() *filtering.YearRange {
	return &filtering.YearRange{Field: "date", From: 2016, To: 2019}
}

func liquorTopItems() *Job {
	return &Job{
		Name:        "liquor-top-items",
		Description: "Bottles sold per zip code and item, 2016-2019.",
		Source:      liquorSource(),
		Filter:      liquorYears(),
		Aggregate: &AggregateSpec{
			Kind:    KindGroupSum,
			Keys:    []string{"zip_code", "item_number"},
			Measure: "bottles_sold",
		},
		Chart: &ports.ChartSpec{
			Kind:   ports.ChartScatter,
			Title:  "Most Popular Items",
			XTitle: "Zipcode",
			YTitle: "Bottles Sold",
		},
		Outputs: Outputs{Cleaned: true, Filtered: true, Report: true},
	}
}

func liquorStoreShare() *Job {
	return &Job{
		Name:        "liquor-store-share",
		Description: "Share of sale dollars per store, 2016-2019, top 15.",
		Source:      liquorSource(),
		Filter:      liquorYears(),
		Aggregate: &AggregateSpec{
			Kind:     KindGroupPercentage,
			Keys:     []string{"store_name"},
			Measure:  "sale_dollars",
			Decimals: intPtr(2),
		},
		TopN: intPtr(15),
		Chart: &ports.ChartSpec{
			Kind:       ports.ChartBar,
			Title:      "Top Stores by Sales",
			XTitle:     "% Sales",
			YTitle:     "Store Name",
			Horizontal: true,
		},
		Outputs: Outputs{Report: true},
	}
}

func autoMPG() *Job {
	return &Job{
		Name:        "auto-mpg",
		Description: "Fuel economy exploration: describe, correlation and weight vs mpg.",
		Source: source.Source{
			Location: AutoMPGURL,
			Format:   source.FormatWhitespace,
			Columns:  []string{"mpg", "cylinders", "displacement", "horsepower", "weight", "acceleration", "model_year", "origin", "car_name"},
			Schema: []table.Field{
				{Name: "mpg", Type: table.TypeFloat},
				{Name: "cylinders", Type: table.TypeInteger},
				{Name: "displacement", Type: table.TypeFloat},
				{Name: "horsepower", Type: table.TypeFloat},
				{Name: "weight", Type: table.TypeFloat},
				{Name: "acceleration", Type: table.TypeFloat},
				{Name: "model_year", Type: table.TypeInteger},
				{Name: "origin", Type: table.TypeInteger},
				{Name: "car_name", Type: table.TypeText},
			},
		},
		Clean:     cleaning.Options{Placeholders: []string{"?"}},
		Describe:  true,
		Correlate: true,
		Chart: &ports.ChartSpec{
			Kind:   ports.ChartScatter,
			Title:  "Weight Vs MPG",
			XTitle: "Weight (lb)",
			YTitle: "Miles Per Gallon",
			X:      "weight",
			Y:      "mpg",
			Hover:  []string{"car_name"},
		},
		Outputs: Outputs{Cleaned: true, Report: true},
	}
}
