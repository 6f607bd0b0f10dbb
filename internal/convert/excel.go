// Package convert turns uploaded spreadsheets into CSV so the rest of the
// pipeline only ever sees CSV.
package convert

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// IsSpreadsheet reports whether the file name looks like an Excel workbook.
func IsSpreadsheet(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm")
}

// ExcelToCSV reads the first sheet of a workbook and writes it as CSV with
// the given delimiter. Trailing empty cells excelize drops are padded back
// so every row has the header's width.
func ExcelToCSV(r io.Reader, w io.Writer, delim rune) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("sheet %q is empty", sheets[0])
	}

	width := len(rows[0])
	cw := csv.NewWriter(w)
	cw.Comma = delim
	for _, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		if err := cw.Write(row[:width]); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
