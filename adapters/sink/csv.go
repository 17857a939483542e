package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/internal/logging"
)

// CSVWriter writes each table to <dir>/<name>.csv with a header row
type CSVWriter struct {
	dir    string
	comma  rune
	logger *logging.Logger
	paths  []string
}

// CSVOption customises a CSVWriter
type CSVOption func(*CSVWriter)

// WithComma sets the field delimiter
func WithComma(r rune) CSVOption {
	return func(w *CSVWriter) { w.comma = r }
}

// WithCSVLogger sets the writer logger
func WithCSVLogger(logger *logging.Logger) CSVOption {
	return func(w *CSVWriter) { w.logger = logger.Named("CSVWriter") }
}

// NewCSVWriter creates dir if needed and returns a writer rooted there
func NewCSVWriter(dir string, opts ...CSVOption) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	w := &CSVWriter{dir: dir, comma: ',', logger: logging.Nop()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WriteTable writes t with missing cells as empty strings
func (w *CSVWriter) WriteTable(ctx context.Context, name string, t *table.Table) error {
	return w.write(ctx, name, t.Records())
}

// WriteAggregate writes agg in its presentation order
func (w *CSVWriter) WriteAggregate(ctx context.Context, name string, agg *table.AggregateTable) error {
	return w.write(ctx, name, agg.Records())
}

// Paths lists the files written so far
func (w *CSVWriter) Paths() []string {
	return append([]string(nil), w.paths...)
}

func (w *CSVWriter) Close() error { return nil }

func (w *CSVWriter) write(ctx context.Context, name string, records [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(w.dir, name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	cw.Comma = w.comma
	if err := cw.WriteAll(records); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	w.paths = append(w.paths, path)
	w.logger.Info("wrote %s (%d rows)", path, len(records)-1)
	return nil
}
