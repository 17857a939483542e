package ports

import (
	"io"

	"gotidy/domain/table"
)

// ChartKind selects the plot type
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartScatter ChartKind = "scatter"
)

// ChartSpec describes how a result should be drawn. For aggregate charts the
// keys become labels and the measure the values. For table scatter charts X
// and Y name two numeric fields and Hover lists extra fields shown on hover.
type ChartSpec struct {
	Kind       ChartKind `yaml:"kind" json:"kind" validate:"required,oneof=bar scatter"`
	Title      string    `yaml:"title,omitempty" json:"title"`
	XTitle     string    `yaml:"x_title,omitempty" json:"x_title"`
	YTitle     string    `yaml:"y_title,omitempty" json:"y_title"`
	Horizontal bool      `yaml:"horizontal,omitempty" json:"horizontal"`
	X          string    `yaml:"x,omitempty" json:"x"`
	Y          string    `yaml:"y,omitempty" json:"y"`
	Hover      []string  `yaml:"hover,omitempty" json:"hover"`
}

// ChartRenderer presents result tables. Implementations must not reorder or
// otherwise modify the rows they are given.
type ChartRenderer interface {
	RenderAggregate(w io.Writer, agg *table.AggregateTable, spec ChartSpec) error
	RenderScatter(w io.Writer, t *table.Table, spec ChartSpec) error
}
