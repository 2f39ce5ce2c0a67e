// Package dataset holds the tabular model for consolidated analysis output.
//
// A Table has a column schema fixed at construction and append-only string
// rows. Keeping cells as strings matches the CSV artifact boundary; typed
// access happens at the edges (the pipeline formats, the aggregator parses).
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
)

// Table is an in-memory tabular dataset with a fixed column schema.
type Table struct {
	columns []string
	rows    [][]string
}

// New creates an empty table with the given column schema.
// The schema is fixed for the table's lifetime.
func New(columns []string) *Table {
	return &Table{columns: slices.Clone(columns)}
}

// Columns returns the column schema.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// ColumnIndex returns the index of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns one data row. The returned slice must not be mutated.
func (t *Table) Row(i int) []string {
	return t.rows[i]
}

// Append adds one row. The row length must match the schema.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("dataset: row has %d cells, schema has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// AppendAll concatenates another table with an identical schema.
func (t *Table) AppendAll(other *Table) error {
	if !slices.Equal(t.columns, other.columns) {
		return fmt.Errorf("dataset: schema mismatch: %v vs %v", t.columns, other.columns)
	}
	t.rows = append(t.rows, other.rows...)
	return nil
}

// WriteCSV writes the table as headered CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for i, row := range t.rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("dataset: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the table to a file, replacing any existing artifact
// (last-writer-wins at the artifact level).
func (t *Table) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses a headered CSV file into a table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	t := New(header)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row: %w", err)
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// LoadCSV reads a table from a file.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}
