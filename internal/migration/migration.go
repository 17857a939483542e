package migration

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gotidy/internal/errors"
	"gotidy/internal/logging"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the tables aggregate results are persisted to
type MigrationRunner struct {
	version string
	table   string
	logger  *logging.Logger
}

// NewRunner creates a migration runner for the given results table
func NewRunner(table string, logger *logging.Logger) *MigrationRunner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &MigrationRunner{
		version: "1.0.0",
		table:   table,
		logger:  logger.Named("Migration"),
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL executed by Run, in order
func (r *MigrationRunner) Statements() []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			run_id UUID NOT NULL,
			job VARCHAR(100) NOT NULL,
			rank INTEGER NOT NULL,
			key_fields TEXT[] NOT NULL,
			key_values TEXT[] NOT NULL,
			label TEXT NOT NULL,
			measure VARCHAR(100) NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (run_id, rank)
		)`, r.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_job_created ON %s(job, created_at DESC)", r.table, r.table),
	}
}

// Run executes all database migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range r.Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.WithCode(errors.CodeDatabaseError,
				errors.Wrapf(err, "failed to run migration step %d for %s", i+1, r.table))
		}
	}
	r.logger.Info("schema %s ready (version %s)", r.table, r.version)
	return nil
}
