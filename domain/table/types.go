package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SemanticType is the closed set of field types a schema may declare
type SemanticType string

const (
	TypeInteger  SemanticType = "integer"
	TypeFloat    SemanticType = "float"
	TypeText     SemanticType = "text"
	TypeDate     SemanticType = "date"
	TypeCategory SemanticType = "category"
)

// ParseSemanticType accepts the canonical names plus a few common aliases
func ParseSemanticType(s string) (SemanticType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "int64":
		return TypeInteger, nil
	case "float", "float64", "numeric", "number":
		return TypeFloat, nil
	case "text", "string":
		return TypeText, nil
	case "date", "datetime", "timestamp":
		return TypeDate, nil
	case "category", "categorical":
		return TypeCategory, nil
	}
	return "", fmt.Errorf("unknown semantic type %q", s)
}

// IsNumeric reports whether values of this type can be summed
func (t SemanticType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// Field is one named, typed column of a schema
type Field struct {
	Name string       `json:"name" yaml:"name"`
	Type SemanticType `json:"type" yaml:"type"`
}

// Schema is the ordered field list shared by all rows of a table
type Schema struct {
	Fields []Field `json:"fields"`
}

// NewSchema builds a schema from fields, in order
func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// Index returns the position of the named field, or -1
func (s Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field
func (s Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

// Names returns field names in schema order
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of fields
func (s Schema) Len() int { return len(s.Fields) }

// ValueKind records what a Value currently holds
type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindRaw
	KindInteger
	KindFloat
	KindText
	KindDate
)

// Value is a single cell. A freshly loaded cell holds raw text; coercion
// replaces it with a typed payload or the missing sentinel.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	i64  int64
	ts   time.Time
}

// Missing returns the missing-value sentinel
func Missing() Value { return Value{kind: KindMissing} }

// Raw wraps unparsed source text. Empty text is missing.
func Raw(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{kind: KindRaw, str: s}
}

func Int(v int64) Value { return Value{kind: KindInteger, i64: v} }
func Float(v float64) Value { return Value{kind: KindFloat, num: v} }
func Date(v time.Time) Value { return Value{kind: KindDate, ts: v} }
func Text(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{kind: KindText, str: s}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsRaw() bool { return v.kind == KindRaw }
func (v Value) Int() int64 { return v.i64 }
func (v Value) Time() time.Time { return v.ts }

// Float returns the numeric payload; integers are widened
func (v Value) Float() float64 {
	if v.kind == KindInteger {
		return float64(v.i64)
	}
	return v.num
}

// IsNumeric reports whether the value holds a coerced number
func (v Value) IsNumeric() bool {
	return v.kind == KindInteger || v.kind == KindFloat
}

// String renders the cell the way it is written back to CSV
func (v Value) String() string {
	switch v.kind {
	case KindRaw, KindText:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.i64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		if v.ts.Hour() == 0 && v.ts.Minute() == 0 && v.ts.Second() == 0 && v.ts.Nanosecond() == 0 {
			return v.ts.Format("2006-01-02")
		}
		return v.ts.Format(time.RFC3339)
	}
	return ""
}

// Equal compares kind and payload
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing:
		return true
	case KindRaw, KindText:
		return v.str == o.str
	case KindInteger:
		return v.i64 == o.i64
	case KindFloat:
		return v.num == o.num
	case KindDate:
		return v.ts.Equal(o.ts)
	}
	return false
}

// Row is a slice of values aligned with the table schema
type Row []Value

// Table is an ordered sequence of rows sharing one schema
type Table struct {
	Schema Schema
	Rows   []Row
}

// New creates an empty table for the schema
func New(schema Schema) *Table {
	return &Table{Schema: schema}
}

// Len returns the number of rows
func (t *Table) Len() int { return len(t.Rows) }

// Append adds a row; it must match the schema width
func (t *Table) Append(row Row) error {
	if len(row) != t.Schema.Len() {
		return fmt.Errorf("row has %d values, schema has %d fields", len(row), t.Schema.Len())
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Get returns the named cell of row i
func (t *Table) Get(i int, field string) (Value, bool) {
	idx := t.Schema.Index(field)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Value{}, false
	}
	return t.Rows[i][idx], true
}

// Column returns every value of the named field, in row order
func (t *Table) Column(field string) ([]Value, bool) {
	idx := t.Schema.Index(field)
	if idx < 0 {
		return nil, false
	}
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// Floats returns the non-missing numeric values of the named field
func (t *Table) Floats(field string) []float64 {
	idx := t.Schema.Index(field)
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r[idx].IsNumeric() {
			out = append(out, r[idx].Float())
		}
	}
	return out
}

// Clone deep-copies the row slice so callers can reorder or filter freely
func (t *Table) Clone() *Table {
	out := &Table{Schema: Schema{Fields: append([]Field(nil), t.Schema.Fields...)}}
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// Records renders the table as string records with a header row
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Schema.Names())
	for _, r := range t.Rows {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = v.String()
		}
		records = append(records, rec)
	}
	return records
}

// Compare orders two values: missing first, then numbers, dates and text.
// Values of the same kind compare by payload.
func Compare(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		return cmpFloat(a.Float(), b.Float())
	case 2:
		return a.ts.Compare(b.ts)
	case 3:
		return strings.Compare(a.str, b.str)
	}
	return 0
}

func kindRank(v Value) int {
	switch v.kind {
	case KindInteger, KindFloat:
		return 1
	case KindDate:
		return 2
	case KindRaw, KindText:
		return 3
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
