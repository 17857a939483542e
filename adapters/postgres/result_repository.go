package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gotidy/domain/core"
	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/ports"
)

// DefaultResultsTable holds aggregate rows when no table is configured
const DefaultResultsTable = "aggregate_results"

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidateTableName rejects anything that is not a plain lower-case identifier
func ValidateTableName(name string) error {
	if !identPattern.MatchString(name) {
		return errors.Newf(errors.CodeConfigInvalid, "invalid results table name %q", name)
	}
	return nil
}

// resultRow is the persisted form of one aggregate row
type resultRow struct {
	ID        string
	RunID     string
	Job       string
	Rank      int
	KeyFields []string
	KeyValues []string
	Label     string
	Measure   string
	Value     float64
}

// resultRepository implements ports.ResultRepository on Postgres
type resultRepository struct {
	db    *sqlx.DB
	table string
}

// NewResultRepository creates a repository writing to the given table
func NewResultRepository(db *sqlx.DB, tableName string) (ports.ResultRepository, error) {
	if tableName == "" {
		tableName = DefaultResultsTable
	}
	if err := ValidateTableName(tableName); err != nil {
		return nil, err
	}
	return &resultRepository{db: db, table: tableName}, nil
}

// Open connects to Postgres through lib/pq
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	return db, nil
}

func toResultRows(runID core.RunID, job string, agg *table.AggregateTable) []resultRow {
	rows := make([]resultRow, len(agg.Rows))
	for i, r := range agg.Rows {
		values := make([]string, len(r.Key))
		for j, k := range r.Key {
			values[j] = k.String()
		}
		rows[i] = resultRow{
			ID:        core.NewID().String(),
			RunID:     runID.String(),
			Job:       job,
			Rank:      i + 1,
			KeyFields: agg.KeyFields,
			KeyValues: values,
			Label:     r.Label(),
			Measure:   agg.Measure,
			Value:     r.Value,
		}
	}
	return rows
}

func insertQuery(tableName string) string {
	return fmt.Sprintf(`INSERT INTO %s (
		id, run_id, job, rank, key_fields, key_values, label, measure, value
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	)`, tableName)
}

func selectByRunQuery(tableName string) string {
	return fmt.Sprintf(`SELECT run_id, job, rank, label, measure, value, created_at
	FROM %s WHERE run_id = $1 ORDER BY rank`, tableName)
}

// SaveAggregate stores every row of agg in one transaction, ranked in
// presentation order starting at 1
func (r *resultRepository) SaveAggregate(ctx context.Context, runID core.RunID, job string, agg *table.AggregateTable) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return databaseError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, insertQuery(r.table))
	if err != nil {
		return databaseError(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, row := range toResultRows(runID, job, agg) {
		_, err := stmt.ExecContext(ctx,
			row.ID, row.RunID, row.Job, row.Rank, pq.Array(row.KeyFields), pq.Array(row.KeyValues),
			row.Label, row.Measure, row.Value,
		)
		if err != nil {
			return databaseError(err, fmt.Sprintf("failed to insert rank %d", row.Rank))
		}
	}

	if err := tx.Commit(); err != nil {
		return databaseError(err, "failed to commit aggregate rows")
	}
	return nil
}

// ListByRun returns the stored rows of one run ordered by rank
func (r *resultRepository) ListByRun(ctx context.Context, runID core.RunID) ([]ports.StoredAggregate, error) {
	var out []ports.StoredAggregate
	if err := r.db.SelectContext(ctx, &out, selectByRunQuery(r.table), runID.String()); err != nil {
		return nil, databaseError(err, "failed to list aggregate rows")
	}
	return out, nil
}

func databaseError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		message = fmt.Sprintf("%s (%s: %s)", message, pqErr.Code, strings.TrimSpace(pqErr.Message))
	}
	return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, message))
}
