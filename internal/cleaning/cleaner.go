package cleaning

import (
	"sort"
	"strings"

	"gotidy/adapters/coercer"
	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/internal/logging"
)

// Options selects which fields the cleaner rewrites, coerces and requires.
// An empty Required or Coerce list means every field.
type Options struct {
	Required     []string `yaml:"required,omitempty" json:"required"`
	Placeholders []string `yaml:"placeholders,omitempty" json:"placeholders"`
	Coerce       []string `yaml:"coerce,omitempty" json:"coerce"`
}

// Report summarises what a cleaning pass changed
type Report struct {
	RowsIn              int            `json:"rows_in"`
	RowsOut             int            `json:"rows_out"`
	Dropped             int            `json:"dropped"`
	PlaceholderRewrites map[string]int `json:"placeholder_rewrites"`
	CoercionFailures    map[string]int `json:"coercion_failures"`
	MissingByField      map[string]int `json:"missing_by_field"`
}

// Cleaner drops rows with missing required values after placeholder
// rewriting and type coercion
type Cleaner struct {
	coercer *coercer.TypeCoercer
	logger  *logging.Logger
}

// NewCleaner creates a cleaner
func NewCleaner(c *coercer.TypeCoercer, logger *logging.Logger) *Cleaner {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Cleaner{coercer: c, logger: logger.Named("Cleaner")}
}

// Clean returns a new table in which no required field is missing and every
// coerced field holds a value of its declared type. Row-level defects are
// never errors; unknown field names in opts are a SchemaError.
func (c *Cleaner) Clean(t *table.Table, opts Options) (*table.Table, Report, error) {
	report := Report{
		RowsIn:              t.Len(),
		PlaceholderRewrites: map[string]int{},
		CoercionFailures:    map[string]int{},
		MissingByField:      map[string]int{},
	}

	required, err := fieldMask(t.Schema, opts.Required, "required")
	if err != nil {
		return nil, report, err
	}
	coerce, err := fieldMask(t.Schema, opts.Coerce, "coerce")
	if err != nil {
		return nil, report, err
	}

	placeholders := make(map[string]bool, len(opts.Placeholders))
	for _, p := range opts.Placeholders {
		placeholders[placeholderKey(p)] = true
	}

	fields := t.Schema.Fields
	out := table.New(table.NewSchema(append([]table.Field(nil), fields...)...))
	out.Rows = make([]table.Row, 0, t.Len())

	for _, row := range t.Rows {
		cleaned := make(table.Row, len(row))
		keep := true
		for j, v := range row {
			name := fields[j].Name
			if isPlaceholder(v, placeholders) {
				report.PlaceholderRewrites[name]++
				v = table.Missing()
			}
			if coerce[j] && !v.IsMissing() {
				coerced, ok := c.coercer.Coerce(v, fields[j].Type)
				if !ok {
					report.CoercionFailures[name]++
				}
				v = coerced
				// coercion may normalise text into a placeholder
				if isPlaceholder(v, placeholders) {
					report.PlaceholderRewrites[name]++
					v = table.Missing()
				}
			}
			if v.IsMissing() {
				report.MissingByField[name]++
				if required[j] {
					keep = false
				}
			}
			cleaned[j] = v
		}
		if keep {
			out.Rows = append(out.Rows, cleaned)
		}
	}

	report.RowsOut = out.Len()
	report.Dropped = report.RowsIn - report.RowsOut
	c.logReport(report)
	return out, report, nil
}

func isPlaceholder(v table.Value, placeholders map[string]bool) bool {
	if len(placeholders) == 0 {
		return false
	}
	switch v.Kind() {
	case table.KindRaw, table.KindText:
	default:
		return false
	}
	return placeholders[placeholderKey(v.String())]
}

// placeholderKey lower-cases s and collapses runs of whitespace
func placeholderKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// fieldMask marks the named fields; an empty list selects all of them
func fieldMask(schema table.Schema, names []string, role string) ([]bool, error) {
	mask := make([]bool, schema.Len())
	if len(names) == 0 {
		for i := range mask {
			mask[i] = true
		}
		return mask, nil
	}
	for _, name := range names {
		idx := schema.Index(name)
		if idx < 0 {
			return nil, errors.SchemaErrorf("%s field %q not in schema", role, name)
		}
		mask[idx] = true
	}
	return mask, nil
}

func (c *Cleaner) logReport(r Report) {
	c.logger.Info("kept %d of %d rows (%d dropped)", r.RowsOut, r.RowsIn, r.Dropped)
	for _, name := range sortedKeys(r.PlaceholderRewrites) {
		c.logger.Debug("%s: %d placeholder values rewritten to missing", name, r.PlaceholderRewrites[name])
	}
	for _, name := range sortedKeys(r.CoercionFailures) {
		c.logger.Debug("%s: %d values failed coercion", name, r.CoercionFailures[name])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
