package inputs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"microgrid-planner/internal/model"
)

// Table is a numeric input table whose first column is a row index
// ("Periods" or "Year").
type Table struct {
	IndexName string
	Columns   []string
	Index     []int
	Rows      [][]float64
}

// ReadTable parses a CSV table. Blank lines are skipped; every cell after
// the index must be numeric.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: table is empty", model.ErrMissingTimeSeries)
		}
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: header has %d columns, want an index and at least one value column",
			model.ErrShapeMismatch, len(header))
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	t := &Table{IndexName: strings.TrimSpace(header[0])}
	for _, h := range header[1:] {
		t.Columns = append(t.Columns, strings.TrimSpace(h))
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", model.ErrShapeMismatch, line, len(rec), len(header))
		}
		idx, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: index %q is not an integer", model.ErrShapeMismatch, line, rec[0])
		}
		row := make([]float64, len(rec)-1)
		for i, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %q is not a number",
					model.ErrShapeMismatch, line, t.Columns[i], cell)
			}
			row[i] = v
		}
		t.Index = append(t.Index, idx)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadTableFile reads a table from disk. A missing file is reported as
// model.ErrMissingTimeSeries.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", model.ErrMissingTimeSeries, path)
		}
		return nil, err
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Column returns the position of the first matching header, or -1.
func (t *Table) Column(names ...string) int {
	for _, n := range names {
		for i, c := range t.Columns {
			if strings.EqualFold(c, n) {
				return i
			}
		}
	}
	return -1
}

// Values returns column i as a slice.
func (t *Table) Values(i int) []float64 {
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// requireRows checks the table has exactly n rows.
func (t *Table) requireRows(n int) error {
	if len(t.Rows) != n {
		return fmt.Errorf("%w: %d rows, want %d", model.ErrShapeMismatch, len(t.Rows), n)
	}
	return nil
}
