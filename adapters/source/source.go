// Package source loads delimited and spreadsheet datasets into tables.
//
// Supported formats:
//   - csv: delimiter-separated with a header row (or explicit Columns)
//   - whitespace: whitespace-separated, no header, names from Columns;
//     double-quoted tokens may contain spaces
//   - xlsx: first (or named) worksheet with a header row
//
// Sources are read fully into memory and released before parsing.
package source

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gotidy/adapters/coercer"
	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/internal/logging"
)

// Format names the on-disk layout of a source
type Format string

const (
	FormatCSV        Format = "csv"
	FormatWhitespace Format = "whitespace"
	FormatXLSX       Format = "xlsx"
)

// Source describes where a dataset lives and how to interpret it
type Source struct {
	Location  string        `yaml:"location" validate:"required"`
	Format    Format        `yaml:"format,omitempty" validate:"omitempty,oneof=csv whitespace xlsx"`
	Delimiter string        `yaml:"delimiter,omitempty"`
	Columns   []string      `yaml:"columns,omitempty"`
	Schema    []table.Field `yaml:"schema,omitempty"`
	Sheet     string        `yaml:"sheet,omitempty"`
}

// ResolvedFormat returns the declared format or one derived from the file extension
func (s Source) ResolvedFormat() Format {
	if s.Format != "" {
		return s.Format
	}
	ext := strings.ToLower(filepath.Ext(strings.SplitN(s.Location, "?", 2)[0]))
	switch {
	case ext == ".xlsx":
		return FormatXLSX
	case ext == ".csv" || ext == ".tsv":
		return FormatCSV
	case len(s.Columns) > 0:
		return FormatWhitespace
	}
	return FormatCSV
}

// Loader reads sources into tables with declared or inferred schemas
type Loader struct {
	coercer     *coercer.TypeCoercer
	client      *http.Client
	logger      *logging.Logger
	inferSample int
}

// Option customises a Loader
type Option func(*Loader)

// WithHTTPClient sets the client used for http(s) locations
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithLogger sets the loader logger
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) { l.logger = logger.Named("Loader") }
}

// WithInferSample bounds how many rows are inspected to infer undeclared types
func WithInferSample(n int) Option {
	return func(l *Loader) { l.inferSample = n }
}

// NewLoader creates a loader
func NewLoader(c *coercer.TypeCoercer, opts ...Option) *Loader {
	l := &Loader{
		coercer:     c,
		client:      &http.Client{Timeout: 60 * time.Second},
		logger:      logging.DefaultLogger.Named("Loader"),
		inferSample: 1000,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the source and returns a table of raw cells
func (l *Loader) Load(ctx context.Context, src Source) (*table.Table, error) {
	if strings.TrimSpace(src.Location) == "" {
		return nil, errors.LoadError("source location is empty")
	}

	startTime := time.Now()
	data, err := l.fetch(ctx, src.Location)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("read %d bytes from %s in %.2fms", len(data), src.Location, float64(time.Since(startTime).Nanoseconds())/1e6)

	format := src.ResolvedFormat()
	var header []string
	var records [][]string
	switch format {
	case FormatCSV:
		header, records, err = parseCSV(data, src)
	case FormatWhitespace:
		header, records, err = parseWhitespace(data, src)
	case FormatXLSX:
		header, records, err = parseXLSX(data, src)
	default:
		return nil, errors.LoadErrorf("unsupported source format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.LoadErrorf("%s contains no records", src.Location)
	}

	schema, err := l.resolveSchema(header, records, src.Schema)
	if err != nil {
		return nil, err
	}

	t := table.New(schema)
	t.Rows = make([]table.Row, 0, len(records))
	for _, rec := range records {
		row := make(table.Row, schema.Len())
		for j := range row {
			if j < len(rec) {
				row[j] = table.Raw(strings.TrimSpace(rec[j]))
			} else {
				row[j] = table.Missing()
			}
		}
		t.Rows = append(t.Rows, row)
	}

	l.logger.Info("%s file processed (%d columns, %d rows) in %.2fms",
		strings.ToUpper(string(format)), schema.Len(), t.Len(), float64(time.Since(startTime).Nanoseconds())/1e6)
	return t, nil
}

// fetch materialises the whole source; the handle is closed before returning
func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, errors.LoadErrorf("invalid source URL %s: %v", location, err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, &errors.AppError{Code: errors.CodeLoadError, Message: "source unreachable: " + location, Cause: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.LoadErrorf("source %s returned HTTP %d", location, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &errors.AppError{Code: errors.CodeLoadError, Message: "failed to read " + location, Cause: err}
		}
		return data, nil
	}

	if _, err := os.Stat(location); os.IsNotExist(err) {
		return nil, errors.LoadErrorf("file not found: %s", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, &errors.AppError{Code: errors.CodeLoadError, Message: "failed to read " + location, Cause: err}
	}
	return data, nil
}

// resolveSchema applies declared types and infers the rest from a sample
func (l *Loader) resolveSchema(header []string, records [][]string, declared []table.Field) (table.Schema, error) {
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if name == "" {
			return table.Schema{}, errors.SchemaError("header contains an empty column name")
		}
		if seen[name] {
			return table.Schema{}, errors.SchemaErrorf("duplicate column %q", name)
		}
		seen[name] = true
	}

	declaredTypes := make(map[string]table.SemanticType, len(declared))
	for _, f := range declared {
		if !seen[f.Name] {
			return table.Schema{}, errors.SchemaErrorf("declared field %q not present in source (columns: %s)", f.Name, strings.Join(header, ", "))
		}
		typ, err := table.ParseSemanticType(string(f.Type))
		if err != nil {
			return table.Schema{}, errors.SchemaErrorf("field %q: %v", f.Name, err)
		}
		declaredTypes[f.Name] = typ
	}

	sampleSize := len(records)
	if l.inferSample > 0 && sampleSize > l.inferSample {
		sampleSize = l.inferSample
	}

	fields := make([]table.Field, len(header))
	for j, name := range header {
		if typ, ok := declaredTypes[name]; ok {
			fields[j] = table.Field{Name: name, Type: typ}
			continue
		}
		sample := make([]string, 0, sampleSize)
		for _, rec := range records[:sampleSize] {
			if j < len(rec) {
				sample = append(sample, rec[j])
			}
		}
		analysis := l.coercer.AnalyzeTypeDistribution(sample)
		fields[j] = table.Field{Name: name, Type: analysis.RecommendedType}
		l.logger.Debug("inferred %s as %s (numeric %.2f, date %.2f)", name, analysis.RecommendedType, analysis.NumericRatio, analysis.TimestampRatio)
	}
	return table.NewSchema(fields...), nil
}
