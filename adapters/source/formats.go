package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"gotidy/internal/errors"
)

func parseCSV(data []byte, src Source) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	switch {
	case src.Delimiter == `\t` || (src.Delimiter == "" && strings.HasSuffix(strings.ToLower(src.Location), ".tsv")):
		reader.Comma = '\t'
	case src.Delimiter != "":
		r, _ := utf8.DecodeRuneInString(src.Delimiter)
		reader.Comma = r
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &errors.AppError{Code: errors.CodeLoadError, Message: "failed to parse CSV " + src.Location, Cause: err}
	}

	var header []string
	if len(src.Columns) > 0 {
		header = append([]string(nil), src.Columns...)
	} else {
		if len(rows) == 0 {
			return nil, nil, errors.LoadErrorf("%s has no header row", src.Location)
		}
		header = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		}
		rows = rows[1:]
	}

	records := make([][]string, 0, len(rows))
	for i, row := range rows {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) > len(header) {
			return nil, nil, errors.SchemaErrorf("%s record %d has %d fields, header has %d", src.Location, i+1, len(row), len(header))
		}
		records = append(records, row)
	}
	return header, records, nil
}

func parseWhitespace(data []byte, src Source) ([]string, [][]string, error) {
	if len(src.Columns) == 0 {
		return nil, nil, errors.SchemaErrorf("whitespace source %s needs explicit column names", src.Location)
	}

	var records [][]string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		tokens := splitWhitespace(text)
		if len(tokens) != len(src.Columns) {
			return nil, nil, errors.SchemaErrorf("%s line %d has %d fields, expected %d", src.Location, line, len(tokens), len(src.Columns))
		}
		records = append(records, tokens)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &errors.AppError{Code: errors.CodeLoadError, Message: "failed to scan " + src.Location, Cause: err}
	}
	return append([]string(nil), src.Columns...), records, nil
}

// splitWhitespace splits on runs of whitespace; a double-quoted token is kept
// whole with the quotes removed.
func splitWhitespace(line string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes, inToken := false, false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			inToken = true
		case unicode.IsSpace(r) && !inQuotes:
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func parseXLSX(data []byte, src Source) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &errors.AppError{Code: errors.CodeLoadError, Message: "failed to open Excel file " + src.Location, Cause: err}
	}
	defer f.Close()

	sheet := src.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, errors.LoadErrorf("%s has no worksheets", src.Location)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, &errors.AppError{Code: errors.CodeLoadError, Message: "failed to read sheet " + sheet, Cause: err}
	}

	var header []string
	if len(src.Columns) > 0 {
		header = append([]string(nil), src.Columns...)
	} else {
		if len(rows) == 0 {
			return nil, nil, errors.LoadErrorf("sheet %s has no header row", sheet)
		}
		header = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = strings.TrimSpace(h)
		}
		rows = rows[1:]
	}

	// GetRows drops trailing empty cells, so short rows are left for the
	// loader to pad with missing values.
	records := make([][]string, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if len(row) > len(header) {
			return nil, nil, errors.SchemaErrorf("sheet %s row %d has %d cells, header has %d", sheet, i+2, len(row), len(header))
		}
		records = append(records, row)
	}
	return header, records, nil
}
