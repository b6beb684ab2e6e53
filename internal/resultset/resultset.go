// Package resultset parses the CSV payload returned by query execution.
package resultset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultPreviewRows is the number of rows shown inline.
const DefaultPreviewRows = 10

// Table is a parsed result set. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Parse reads data as CSV with a header row. An empty payload yields an
// empty table.
func Parse(data string) (*Table, error) {
	if strings.TrimSpace(data) == "" {
		return &Table{}, nil
	}

	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	t := &Table{Columns: header}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, normalize(record, len(header)))
	}
	return t, nil
}

// normalize pads or trims record to n cells.
func normalize(record []string, n int) []string {
	if len(record) == n {
		return record
	}
	out := make([]string, n)
	copy(out, record)
	return out
}

// Head returns the first n rows and whether rows were left out.
func (t *Table) Head(n int) ([][]string, bool) {
	if n < 0 || len(t.Rows) <= n {
		return t.Rows, false
	}
	return t.Rows[:n], true
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}
