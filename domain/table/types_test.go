package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSemanticType(t *testing.T) {
	tests := []struct {
		in      string
		want    SemanticType
		wantErr bool
	}{
		{"integer", TypeInteger, false},
		{"INT64", TypeInteger, false},
		{"float", TypeFloat, false},
		{"numeric", TypeFloat, false},
		{"string", TypeText, false},
		{"datetime", TypeDate, false},
		{"categorical", TypeCategory, false},
		{"blob", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSemanticType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueConstructors(t *testing.T) {
	assert.True(t, Raw("").IsMissing())
	assert.True(t, Text("").IsMissing())
	assert.True(t, Raw("?").IsRaw())

	assert.Equal(t, "50001", Int(50001).String())
	assert.Equal(t, "120", Float(120).String())
	assert.Equal(t, 120.0, Int(120).Float())
	assert.True(t, Int(1).IsNumeric())
	assert.False(t, Text("x").IsNumeric())

	d := time.Date(2016, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2016-12-31", Date(d).String())

	assert.True(t, Int(5).Equal(Int(5)))
	assert.False(t, Int(5).Equal(Float(5)))
	assert.True(t, Missing().Equal(Missing()))
}

func TestTableAccessors(t *testing.T) {
	tbl := New(NewSchema(Field{Name: "store", Type: TypeText}, Field{Name: "sales", Type: TypeFloat}))
	require.NoError(t, tbl.Append(Row{Text("S1"), Float(100)}))
	require.NoError(t, tbl.Append(Row{Text("S2"), Missing()}))
	assert.Error(t, tbl.Append(Row{Text("S3")}))

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []float64{100}, tbl.Floats("sales"))

	v, ok := tbl.Get(0, "store")
	require.True(t, ok)
	assert.Equal(t, "S1", v.String())

	_, ok = tbl.Column("nope")
	assert.False(t, ok)

	clone := tbl.Clone()
	clone.Rows[0][0] = Text("changed")
	assert.Equal(t, "S1", tbl.Rows[0][0].String())

	assert.Equal(t, [][]string{{"store", "sales"}, {"S1", "100"}, {"S2", ""}}, tbl.Records())
}

func TestAggregateTableRecords(t *testing.T) {
	agg := &AggregateTable{
		KeyFields: []string{"zip_code", "item_number"},
		Measure:   "bottles_sold",
		Rows: []AggregateRow{
			{Key: []Value{Int(50001), Text("A")}, Value: 5},
			{Key: []Value{Int(50002), Text("B")}, Value: 5},
		},
	}
	assert.Equal(t, [][]string{
		{"zip_code", "item_number", "bottles_sold"},
		{"50001", "A", "5"},
		{"50002", "B", "5"},
	}, agg.Records())
	assert.Equal(t, "50001 / A", agg.Rows[0].Label())
	assert.Len(t, agg.AsMap(), 2)
	assert.Equal(t, []float64{5, 5}, agg.Values())
}

func TestCompare(t *testing.T) {
	d1 := Date(time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC))
	d2 := Date(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, -1, Compare(Int(1), Float(1.5)))
	assert.Equal(t, 0, Compare(Int(2), Float(2)))
	assert.Equal(t, 1, Compare(Text("b"), Text("a")))
	assert.Equal(t, -1, Compare(d1, d2))
	assert.Equal(t, -1, Compare(Missing(), Int(0)))
	assert.Equal(t, -1, Compare(Int(99), Text("0")))
}
