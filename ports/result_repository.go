package ports

import (
	"context"
	"time"

	"gotidy/domain/core"
	"gotidy/domain/table"
)

// StoredAggregate is one persisted aggregate row
type StoredAggregate struct {
	RunID     core.RunID `db:"run_id" json:"run_id"`
	Job       string     `db:"job" json:"job"`
	Rank      int        `db:"rank" json:"rank"`
	Label     string     `db:"label" json:"label"`
	Measure   string     `db:"measure" json:"measure"`
	Value     float64    `db:"value" json:"value"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// ResultRepository persists aggregate tables keyed by run
type ResultRepository interface {
	SaveAggregate(ctx context.Context, runID core.RunID, job string, agg *table.AggregateTable) error
	ListByRun(ctx context.Context, runID core.RunID) ([]StoredAggregate, error)
}
