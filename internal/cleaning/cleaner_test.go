package cleaning

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotidy/adapters/coercer"
	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/internal/logging"
)

func newTestCleaner() *Cleaner {
	return NewCleaner(coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()), logging.Nop())
}

func autoTable(rows ...[]string) *table.Table {
	t := table.New(table.NewSchema(
		table.Field{Name: "mpg", Type: table.TypeFloat},
		table.Field{Name: "horsepower", Type: table.TypeFloat},
		table.Field{Name: "car_name", Type: table.TypeText},
	))
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, s := range r {
			row[i] = table.Raw(s)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestHorsepowerPlaceholderDropped(t *testing.T) {
	in := autoTable(
		[]string{"25.0", "?", "ford pinto"},
		[]string{"18.0", "120", "chevrolet chevelle malibu"},
	)

	out, report, err := newTestCleaner().Clean(in, Options{Placeholders: []string{"?"}})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	hp, _ := out.Get(0, "horsepower")
	assert.Equal(t, table.KindFloat, hp.Kind())
	assert.Equal(t, 120.0, hp.Float())

	assert.Equal(t, 1, report.PlaceholderRewrites["horsepower"])
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 0, report.CoercionFailures["horsepower"])
}

func TestCoercionFailureIsTreatedAsMissing(t *testing.T) {
	in := autoTable(
		[]string{"25.0", "n/a", "ford pinto"},
		[]string{"18.0", "130", "buick skylark"},
	)

	out, report, err := newTestCleaner().Clean(in, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 1, report.CoercionFailures["horsepower"])
}

func TestOnlyRequiredFieldsTriggerDrop(t *testing.T) {
	in := autoTable(
		[]string{"25.0", "", "ford pinto"},
		[]string{"", "130", "buick skylark"},
	)

	out, _, err := newTestCleaner().Clean(in, Options{Required: []string{"mpg"}})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	name, _ := out.Get(0, "car_name")
	assert.Equal(t, "ford pinto", name.String())
	hp, _ := out.Get(0, "horsepower")
	assert.True(t, hp.IsMissing())
}

func TestPlaceholderMatchIsCaseInsensitive(t *testing.T) {
	in := autoTable([]string{"25.0", "130", "Unknown"})
	out, report, err := newTestCleaner().Clean(in, Options{Placeholders: []string{"unknown"}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 1, report.PlaceholderRewrites["car_name"])
}

func TestUnknownFieldIsSchemaError(t *testing.T) {
	in := autoTable([]string{"25.0", "130", "x"})
	_, _, err := newTestCleaner().Clean(in, Options{Required: []string{"weight"}})
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))

	_, _, err = newTestCleaner().Clean(in, Options{Coerce: []string{"weight"}})
	assert.True(t, errors.IsSchemaError(err))
}

func TestIntegerNarrowingAndDates(t *testing.T) {
	in := table.New(table.NewSchema(
		table.Field{Name: "date", Type: table.TypeDate},
		table.Field{Name: "zip_code", Type: table.TypeInteger},
	))
	in.Rows = []table.Row{
		{table.Raw("2016-01-04"), table.Raw("50001.0")},
		{table.Raw("not a date"), table.Raw("50002.0")},
		{table.Raw("2018-03-01"), table.Raw("")},
	}

	out, _, err := newTestCleaner().Clean(in, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	zip, _ := out.Get(0, "zip_code")
	assert.Equal(t, int64(50001), zip.Int())
	d, _ := out.Get(0, "date")
	assert.Equal(t, 2016, d.Time().Year())
}

// randomTable builds rows mixing valid numbers, blanks, placeholders and junk
func randomTable(r *rand.Rand, n int) *table.Table {
	cells := []string{"1", "2.5", "", "?", "junk", "42", "unknown", "7", "not  available", " Not available\t"}
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{cells[r.Intn(len(cells))], cells[r.Intn(len(cells))], cells[r.Intn(len(cells))]}
	}
	return autoTable(rows...)
}

func TestCleanerProperties(t *testing.T) {
	c := newTestCleaner()
	opts := Options{Placeholders: []string{"?", "unknown", "not available"}, Required: []string{"mpg", "horsepower"}}

	for seed := int64(1); seed <= 20; seed++ {
		in := randomTable(rand.New(rand.NewSource(seed)), 50)

		once, _, err := c.Clean(in, opts)
		require.NoError(t, err)

		for i, row := range once.Rows {
			for _, name := range opts.Required {
				v := row[once.Schema.Index(name)]
				require.False(t, v.IsMissing(), "seed %d row %d field %s missing", seed, i, name)
				require.True(t, v.IsNumeric(), "seed %d row %d field %s not numeric", seed, i, name)
			}
		}

		twice, report, err := c.Clean(once, opts)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Dropped, "seed %d", seed)
		require.Equal(t, once.Len(), twice.Len())
		for i := range once.Rows {
			for j := range once.Rows[i] {
				assert.True(t, once.Rows[i][j].Equal(twice.Rows[i][j]), "seed %d row %d col %d", seed, i, j)
			}
		}
	}
}

func TestPlaceholderMatchIgnoresWhitespaceRuns(t *testing.T) {
	c := newTestCleaner()
	opts := Options{Placeholders: []string{"not available"}, Required: []string{"mpg"}}
	in := autoTable([]string{"18", "130", "not  available"}, []string{"15", "165", "buick"})

	once, report, err := c.Clean(in, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, once.Len())
	assert.Equal(t, 1, report.PlaceholderRewrites["car_name"])
	name, _ := once.Get(0, "car_name")
	assert.True(t, name.IsMissing())

	twice, _, err := c.Clean(once, opts)
	require.NoError(t, err)
	assert.Equal(t, once.Records(), twice.Records())
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	in := autoTable([]string{"25.0", "?", "ford pinto"})
	_, _, err := newTestCleaner().Clean(in, Options{Placeholders: []string{"?"}})
	require.NoError(t, err)
	hp, _ := in.Get(0, "horsepower")
	assert.Equal(t, "?", hp.String())
}
