package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/ports"
)

func topStores() *table.AggregateTable {
	return &table.AggregateTable{
		KeyFields: []string{"store_name"},
		Measure:   "sale_dollars",
		Rows: []table.AggregateRow{
			{Key: []table.Value{table.Text("S3")}, Value: 10.5},
			{Key: []table.Value{table.Text("S1")}, Value: 25},
			{Key: []table.Value{table.Text("S2")}, Value: 64.5},
		},
	}
}

func cars() *table.Table {
	t := table.New(table.NewSchema(
		table.Field{Name: "mpg", Type: table.TypeFloat},
		table.Field{Name: "weight", Type: table.TypeFloat},
		table.Field{Name: "car_name", Type: table.TypeText},
	))
	t.Rows = []table.Row{
		{table.Float(18), table.Float(3504), table.Text("chevrolet chevelle malibu")},
		{table.Missing(), table.Float(2000), table.Text("ghost")},
		{table.Float(31), table.Float(1950), table.Text("toyota corolla")},
	}
	return t
}

func TestAggregateFigureHorizontalBarKeepsOrder(t *testing.T) {
	fig, err := AggregateFigure(topStores(), ports.ChartSpec{Kind: ports.ChartBar, Horizontal: true, Title: "Top Stores by Sales", XTitle: "% Sales"})
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)

	tr := fig.Data[0]
	assert.Equal(t, "h", tr.Orientation)
	assert.Equal(t, []interface{}{"S3", "S1", "S2"}, tr.Y)
	assert.Equal(t, []interface{}{10.5, 25.0, 64.5}, tr.X)
	assert.Equal(t, []string{"10.5", "25", "64.5"}, tr.Text)
	assert.Equal(t, "% Sales", fig.Layout.XAxis.Title.Text)
	assert.Equal(t, "store_name", fig.Layout.YAxis.Title.Text)
}

func TestAggregateFigureScatterHover(t *testing.T) {
	agg := &table.AggregateTable{
		KeyFields: []string{"zip_code", "item_number"},
		Measure:   "bottles_sold",
		Rows:      []table.AggregateRow{{Key: []table.Value{table.Int(50001), table.Text("A")}, Value: 5}},
	}
	fig, err := AggregateFigure(agg, ports.ChartSpec{Kind: ports.ChartScatter})
	require.NoError(t, err)
	assert.Equal(t, []string{"bottles_sold: 5<br>zip_code: 50001<br>item_number: A"}, fig.Data[0].Text)
	assert.Equal(t, []interface{}{0}, fig.Data[0].X)
	assert.InDelta(t, 2*5/2500.0, fig.Data[0].Marker.SizeRef, 1e-12)
}

func TestAggregateFigureUnknownKind(t *testing.T) {
	_, err := AggregateFigure(topStores(), ports.ChartSpec{Kind: "pie"})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestScatterFigureSkipsMissing(t *testing.T) {
	fig, err := ScatterFigure(cars(), ports.ChartSpec{Kind: ports.ChartScatter, X: "weight", Y: "mpg", Hover: []string{"car_name"}})
	require.NoError(t, err)

	tr := fig.Data[0]
	assert.Equal(t, []interface{}{3504.0, 1950.0}, tr.X)
	assert.Equal(t, []interface{}{18.0, 31.0}, tr.Y)
	assert.Equal(t, "weight: 3504<br>mpg: 18<br>car_name: chevrolet chevelle malibu", tr.Text[0])
}

func TestScatterFigureErrors(t *testing.T) {
	_, err := ScatterFigure(cars(), ports.ChartSpec{Kind: ports.ChartScatter, X: "car_name", Y: "mpg"})
	assert.True(t, errors.IsSchemaError(err))

	_, err = ScatterFigure(cars(), ports.ChartSpec{Kind: ports.ChartScatter, X: "weight", Y: "mpg", Hover: []string{"origin"}})
	assert.True(t, errors.IsSchemaError(err))

	_, err = ScatterFigure(cars(), ports.ChartSpec{Kind: ports.ChartBar, X: "weight", Y: "mpg"})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestHTMLRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewHTMLRenderer("")
	require.NoError(t, r.RenderAggregate(&buf, topStores(), ports.ChartSpec{Kind: ports.ChartBar, Title: "Top <Stores>"}))

	page := buf.String()
	assert.Contains(t, page, DefaultPlotlyURL)
	assert.Contains(t, page, "<title>Top &lt;Stores&gt;</title>")
	assert.Contains(t, page, `"type":"bar"`)
	assert.True(t, strings.Index(page, `"S3"`) < strings.Index(page, `"S2"`))
}
