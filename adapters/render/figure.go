package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/ports"
)

// Figure is the plotly.js data+layout pair
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type         string        `json:"type"`
	Mode         string        `json:"mode,omitempty"`
	Orientation  string        `json:"orientation,omitempty"`
	X            []interface{} `json:"x"`
	Y            []interface{} `json:"y"`
	Text         []string      `json:"text,omitempty"`
	TextPosition string        `json:"textposition,omitempty"`
	HoverInfo    string        `json:"hoverinfo,omitempty"`
	Marker       Marker        `json:"marker"`
}

type Marker struct {
	Color      []float64 `json:"color,omitempty"`
	Size       []float64 `json:"size,omitempty"`
	SizeMode   string    `json:"sizemode,omitempty"`
	SizeRef    float64   `json:"sizeref,omitempty"`
	ColorScale string    `json:"colorscale,omitempty"`
	ShowScale  bool      `json:"showscale"`
}

type Layout struct {
	Title  Title `json:"title"`
	XAxis  Axis  `json:"xaxis"`
	YAxis  Axis  `json:"yaxis"`
	Width  int   `json:"width,omitempty"`
	Height int   `json:"height,omitempty"`
}

type Title struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
}

type Axis struct {
	Title      Title `json:"title"`
	Automargin bool  `json:"automargin"`
}

func layout(spec ports.ChartSpec, xTitle, yTitle string) Layout {
	if spec.XTitle != "" {
		xTitle = spec.XTitle
	}
	if spec.YTitle != "" {
		yTitle = spec.YTitle
	}
	return Layout{
		Title:  Title{Text: spec.Title, X: 0.5},
		XAxis:  Axis{Title: Title{Text: xTitle}, Automargin: true},
		YAxis:  Axis{Title: Title{Text: yTitle}, Automargin: true},
		Height: 600,
	}
}

// sizeRef scales marker areas so the largest marker is about maxPx across
func sizeRef(sizes []float64, maxPx float64) float64 {
	peak := 0.0
	for _, s := range sizes {
		peak = math.Max(peak, s)
	}
	if peak <= 0 {
		return 1
	}
	return 2 * peak / (maxPx * maxPx)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AggregateFigure lays out agg in its given order. A bar chart uses group
// labels and values; a scatter chart plots values against row position with
// the key fields in the hover text.
func AggregateFigure(agg *table.AggregateTable, spec ports.ChartSpec) (Figure, error) {
	keyTitle := strings.Join(agg.KeyFields, " / ")
	labels := make([]interface{}, agg.Len())
	values := make([]interface{}, agg.Len())
	nums := agg.Values()
	text := make([]string, agg.Len())
	for i, r := range agg.Rows {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return Figure{}, errors.InvalidInputf("group %q has non-finite value", r.Label())
		}
		labels[i] = r.Label()
		values[i] = r.Value
	}

	switch spec.Kind {
	case ports.ChartBar:
		for i, v := range nums {
			text[i] = formatNumber(v)
		}
		tr := Trace{
			Type:         "bar",
			Text:         text,
			TextPosition: "outside",
			Marker:       Marker{Color: nums, ShowScale: true},
		}
		if spec.Horizontal {
			tr.Orientation = "h"
			tr.X, tr.Y = values, labels
			return Figure{Data: []Trace{tr}, Layout: layout(spec, agg.Measure, keyTitle)}, nil
		}
		tr.X, tr.Y = labels, values
		return Figure{Data: []Trace{tr}, Layout: layout(spec, keyTitle, agg.Measure)}, nil

	case ports.ChartScatter:
		index := make([]interface{}, agg.Len())
		colors := make([]float64, agg.Len())
		for i, r := range agg.Rows {
			index[i] = i
			colors[i] = float64(i)
			var b strings.Builder
			fmt.Fprintf(&b, "%s: %s", agg.Measure, formatNumber(r.Value))
			for j, k := range r.Key {
				fmt.Fprintf(&b, "<br>%s: %s", agg.KeyFields[j], k.String())
			}
			text[i] = b.String()
		}
		tr := Trace{
			Type:      "scatter",
			Mode:      "markers",
			X:         index,
			Y:         values,
			Text:      text,
			HoverInfo: "text",
			Marker: Marker{
				Size:       nums,
				SizeMode:   "area",
				SizeRef:    sizeRef(nums, 50),
				Color:      colors,
				ColorScale: "Viridis",
				ShowScale:  true,
			},
		}
		return Figure{Data: []Trace{tr}, Layout: layout(spec, keyTitle, agg.Measure)}, nil
	}
	return Figure{}, errors.InvalidInputf("unsupported chart kind %q", spec.Kind)
}

// ScatterFigure plots spec.Y against spec.X for every row where both are
// numeric. Hover text lists both values and any spec.Hover fields.
func ScatterFigure(t *table.Table, spec ports.ChartSpec) (Figure, error) {
	if spec.Kind != ports.ChartScatter {
		return Figure{}, errors.InvalidInputf("table charts must be scatter, got %q", spec.Kind)
	}
	xi, err := numericField(t, spec.X)
	if err != nil {
		return Figure{}, err
	}
	yi, err := numericField(t, spec.Y)
	if err != nil {
		return Figure{}, err
	}
	hover := make([]int, len(spec.Hover))
	for i, name := range spec.Hover {
		if hover[i] = t.Schema.Index(name); hover[i] < 0 {
			return Figure{}, errors.SchemaErrorf("hover field %q not in schema", name)
		}
	}

	var xs, ys []interface{}
	var xf, yf []float64
	var text []string
	for _, row := range t.Rows {
		x, y := row[xi], row[yi]
		if !x.IsNumeric() || !y.IsNumeric() {
			continue
		}
		xs = append(xs, x.Float())
		ys = append(ys, y.Float())
		xf = append(xf, x.Float())
		yf = append(yf, y.Float())

		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s<br>%s: %s", spec.X, x.String(), spec.Y, y.String())
		for j, idx := range hover {
			fmt.Fprintf(&b, "<br>%s: %s", spec.Hover[j], row[idx].String())
		}
		text = append(text, b.String())
	}

	tr := Trace{
		Type:      "scatter",
		Mode:      "markers",
		X:         xs,
		Y:         ys,
		Text:      text,
		HoverInfo: "text",
		Marker: Marker{
			Size:      yf,
			SizeMode:  "area",
			SizeRef:   sizeRef(yf, 20),
			Color:     xf,
			ShowScale: true,
		},
	}
	return Figure{Data: []Trace{tr}, Layout: layout(spec, spec.X, spec.Y)}, nil
}

func numericField(t *table.Table, name string) (int, error) {
	f, ok := t.Schema.Field(name)
	if !ok {
		return -1, errors.SchemaErrorf("chart field %q not in schema", name)
	}
	if !f.Type.IsNumeric() {
		return -1, errors.SchemaErrorf("chart field %q is %s, not numeric", name, f.Type)
	}
	return t.Schema.Index(name), nil
}
