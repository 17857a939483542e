package ports

import (
	"context"

	"gotidy/domain/table"
)

// TableWriter emits tables as named artifacts (files, sheets). Close
// finalises anything buffered.
type TableWriter interface {
	WriteTable(ctx context.Context, name string, t *table.Table) error
	WriteAggregate(ctx context.Context, name string, agg *table.AggregateTable) error
	Close() error
}
