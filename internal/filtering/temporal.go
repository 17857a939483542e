package filtering

import (
	"gotidy/domain/table"
	"gotidy/internal/errors"
)

// YearRange is an inclusive [From, To] calendar-year window
type YearRange struct {
	Field string `yaml:"field" json:"field" validate:"required"`
	From  int    `yaml:"from" json:"from" validate:"required"`
	To    int    `yaml:"to" json:"to" validate:"required,gtefield=From"`
}

// Contains reports whether year lies in the window
func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

// FilterYears keeps rows whose date field falls inside the range. Rows with a
// missing or uncoerced date are excluded. The input table is not modified.
func FilterYears(t *table.Table, r YearRange) (*table.Table, error) {
	if r.From > r.To {
		return nil, errors.InvalidInputf("year range %d-%d is empty", r.From, r.To)
	}
	field, ok := t.Schema.Field(r.Field)
	if !ok {
		return nil, errors.SchemaErrorf("filter field %q not in schema", r.Field)
	}
	if field.Type != table.TypeDate {
		return nil, errors.SchemaErrorf("filter field %q is %s, not date", r.Field, field.Type)
	}

	idx := t.Schema.Index(r.Field)
	out := table.New(t.Schema)
	out.Rows = make([]table.Row, 0, t.Len())
	for _, row := range t.Rows {
		v := row[idx]
		if v.Kind() == table.KindDate && r.Contains(v.Time().Year()) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
