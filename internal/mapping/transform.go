package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// ErrMissingHeader is returned when the input has no header row.
var ErrMissingHeader = errors.New("input CSV is missing a header row")

// Transformer drives row-by-row application of a mapping table to a CSV
// stream. Output column order is exactly the mapping key order; values are
// written verbatim with no type coercion.
type Transformer struct {
	Table *Table

	// DelimIn and DelimOut are the input/output field delimiters.
	// The zero value means comma.
	DelimIn  rune
	DelimOut rune

	// Strict makes missing referenced columns and per-column evaluation
	// failures fatal. In non-strict mode both are logged warnings and the
	// affected output value is the empty string.
	Strict bool
}

// Run reads CSV records from r, applies the mapping and writes the
// transformed CSV to w. It returns the number of data rows written.
//
// Input is expected to be UTF-8, tolerating a leading byte-order mark.
func (t *Transformer) Run(r io.Reader, w io.Writer) (int, error) {
	delimIn, delimOut := t.DelimIn, t.DelimOut
	if delimIn == 0 {
		delimIn = ','
	}
	if delimOut == 0 {
		delimOut = ','
	}

	reader := csv.NewReader(newBOMSkippingReader(r))
	reader.Comma = delimIn
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, ErrMissingHeader
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if err := t.precheck(header); err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	writer.Comma = delimOut
	if err := writer.Write(t.Table.Columns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rows := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read line %d: %w", line, err)
		}

		row := make(SourceRow, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}

		out := make([]string, len(t.Table.Columns))
		for i, col := range t.Table.Columns {
			value, err := t.Table.Specs[col].Eval(row)
			if err != nil {
				if t.Strict {
					return rows, fmt.Errorf("line %d: compute column %q: %w", line, col, err)
				}
				slog.Warn("failed to compute column, substituting empty value",
					"column", col,
					"line", line,
					"error", err,
				)
				value = ""
			}
			out[i] = value
		}
		if err := writer.Write(out); err != nil {
			return rows, fmt.Errorf("write line %d: %w", line, err)
		}
		rows++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, fmt.Errorf("flush output: %w", err)
	}
	return rows, nil
}

// RunFile is the file-path convenience wrapper around Run.
func (t *Transformer) RunFile(inPath, outPath string) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	rows, err := t.Run(in, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	return rows, err
}

// precheck compares every referenced source column against the input header
// before any row is processed. Missing references abort in strict mode and
// warn otherwise; at row time a missing column evaluates to the empty string.
func (t *Transformer) precheck(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}

	var missing []string
	for ref := range t.Table.Referenced() {
		if _, ok := present[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	if t.Strict {
		return fmt.Errorf("strict mode: input is missing referenced columns: %s", strings.Join(missing, ", "))
	}
	slog.Warn("input is missing referenced columns, they will evaluate to empty strings",
		"columns", strings.Join(missing, ", "),
	)
	return nil
}
