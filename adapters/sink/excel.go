package sink

import (
	"context"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"gotidy/domain/table"
	"gotidy/internal/errors"
	"gotidy/internal/logging"
)

// maxSheetName is the Excel limit on worksheet name length
const maxSheetName = 31

// ExcelWriter collects tables as worksheets of one workbook, saved on Close
type ExcelWriter struct {
	path   string
	file   *excelize.File
	sheets int
	logger *logging.Logger
}

// NewExcelWriter starts an empty workbook that will be saved to path
func NewExcelWriter(path string, logger *logging.Logger) *ExcelWriter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ExcelWriter{path: path, file: excelize.NewFile(), logger: logger.Named("ExcelWriter")}
}

// WriteTable adds t as a worksheet. Integers and floats are written as
// numbers and dates as date cells.
func (w *ExcelWriter) WriteTable(ctx context.Context, name string, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sheet, err := w.addSheet(name)
	if err != nil {
		return err
	}

	if err := w.file.SetSheetRow(sheet, "A1", toCells(t.Schema.Names())); err != nil {
		return errors.Wrapf(err, "failed to write header of %s", sheet)
	}
	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		if err := w.setRow(sheet, i+2, cells); err != nil {
			return err
		}
	}
	w.logger.Debug("sheet %s: %d rows", sheet, t.Len())
	return nil
}

// WriteAggregate adds agg as a worksheet in presentation order
func (w *ExcelWriter) WriteAggregate(ctx context.Context, name string, agg *table.AggregateTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sheet, err := w.addSheet(name)
	if err != nil {
		return err
	}

	header := append(append([]string(nil), agg.KeyFields...), agg.Measure)
	if err := w.file.SetSheetRow(sheet, "A1", toCells(header)); err != nil {
		return errors.Wrapf(err, "failed to write header of %s", sheet)
	}
	for i, r := range agg.Rows {
		cells := make([]interface{}, 0, len(r.Key)+1)
		for _, k := range r.Key {
			cells = append(cells, cellValue(k))
		}
		cells = append(cells, r.Value)
		if err := w.setRow(sheet, i+2, cells); err != nil {
			return err
		}
	}
	w.logger.Debug("sheet %s: %d groups", sheet, agg.Len())
	return nil
}

// Close saves the workbook. A workbook with no sheets written is not saved.
func (w *ExcelWriter) Close() error {
	defer w.file.Close()
	if w.sheets == 0 {
		return nil
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return errors.Wrapf(err, "failed to save workbook %s", w.path)
	}
	w.logger.Info("wrote %s (%d sheets)", filepath.Base(w.path), w.sheets)
	return nil
}

// Path returns the workbook destination
func (w *ExcelWriter) Path() string { return w.path }

func (w *ExcelWriter) addSheet(name string) (string, error) {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	// a new workbook starts with Sheet1; reuse it for the first table
	if w.sheets == 0 {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return "", errors.Wrapf(err, "invalid sheet name %q", name)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return "", errors.Wrapf(err, "invalid sheet name %q", name)
	}
	w.sheets++
	return name, nil
}

func (w *ExcelWriter) setRow(sheet string, rowNum int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return errors.Wrap(err, "invalid cell coordinates")
	}
	if err := w.file.SetSheetRow(sheet, cell, &cells); err != nil {
		return errors.Wrapf(err, "failed to write row %d of %s", rowNum, sheet)
	}
	return nil
}

func toCells(names []string) *[]interface{} {
	cells := make([]interface{}, len(names))
	for i, n := range names {
		cells[i] = n
	}
	return &cells
}

func cellValue(v table.Value) interface{} {
	switch v.Kind() {
	case table.KindMissing:
		return nil
	case table.KindInteger:
		return v.Int()
	case table.KindFloat:
		return v.Float()
	case table.KindDate:
		return v.Time()
	default:
		return v.String()
	}
}
