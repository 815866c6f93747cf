// Package report reads and writes per-line count reports and the manifest
// that indexes them.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Sumatoshi-tech/patchtally/pkg/counter"
)

// Column names shared by every report.
const (
	VersionColumn   = "version"
	TimestampColumn = "timestamp"
	DefaultColumn   = "patches"
)

// countColumnIndex is the position of the count column when a report's
// header does not name the expected one.
const countColumnIndex = 2

var (
	// ErrEmptyReport is returned when a report has no header.
	ErrEmptyReport = errors.New("report is empty")
	// ErrMissingColumn is returned when a requested column is absent.
	ErrMissingColumn = errors.New("report column missing")
)

// Write truncates path and writes series under the header
// "version,timestamp,<column>", one row per entry in series order.
func Write(path, column string, series *counter.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	err = Encode(f, column, series)
	if err != nil {
		f.Close()

		return err
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("close report: %w", err)
	}

	return nil
}

// Encode writes series as CSV to w.
func Encode(w io.Writer, column string, series *counter.Series) error {
	if column == "" {
		column = DefaultColumn
	}

	cw := csv.NewWriter(w)

	err := cw.Write([]string{VersionColumn, TimestampColumn, column})
	if err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for _, e := range series.Entries {
		err = cw.Write([]string{
			e.Version,
			strconv.FormatInt(e.Timestamp, 10),
			strconv.Itoa(e.Count),
		})
		if err != nil {
			return fmt.Errorf("write report row %s: %w", e.Version, err)
		}
	}

	cw.Flush()

	err = cw.Error()
	if err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	return nil
}

// Table is a parsed report.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read parses the report at path.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a report from r. Rows may have a different width than the
// header.
func Decode(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrEmptyReport
	}

	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// ColumnIndex returns the position of name in the header. When name is
// absent it falls back to the third column, if the header has one.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}

	if len(t.Header) > countColumnIndex {
		return countColumnIndex, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
}

// Ints returns the integer values of column, one per row.
func (t *Table) Ints(column string) ([]int, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}

	values := make([]int, 0, len(t.Rows))

	for i, row := range t.Rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("%w: row %d has no %q", ErrMissingColumn, i+1, column)
		}

		v, convErr := strconv.Atoi(row[idx])
		if convErr != nil {
			return nil, fmt.Errorf("row %d column %q: %w", i+1, column, convErr)
		}

		values = append(values, v)
	}

	return values, nil
}
