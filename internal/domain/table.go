package domain

import (
	"fmt"
	"strings"
	"sync"
)

// Table is an immutable, row-ordered table of raw cells.
// Missing cells are stored as the empty string.
// Derived columns computed from a table are memoized on it with Memo.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string

	mu      sync.Mutex
	derived map[string][]Number
}

// NewTable builds a table from a header and its records. Every record must
// have the same width as the header. Cells that represent missing values are
// normalized to "".
func NewTable(columns []string, records [][]string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		if len(rec) != len(columns) {
			return nil, fmt.Errorf("row %d has %d fields, want %d", i, len(rec), len(columns))
		}
		row := make([]string, len(rec))
		for j, cell := range rec {
			if IsMissing(cell) {
				continue
			}
			row[j] = strings.TrimSpace(cell)
		}
		rows[i] = row
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(c)
	}
	return &Table{columns: cols, index: index, rows: rows}, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Resolve maps a base column name to the column that carries it. After an
// outer join a column present in both sources is split into "<name>_x" and
// "<name>_y"; the left-hand variant wins.
func (t *Table) Resolve(column string) (string, error) {
	for _, c := range []string{column, column + "_x", column + "_y"} {
		if t.Has(c) {
			return c, nil
		}
	}
	return "", &UnknownColumnError{Column: column}
}

// Cell returns the raw value at row i and whether it is present.
func (t *Table) Cell(i int, column string) (string, bool) {
	j, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return "", false
	}
	v := t.rows[i][j]
	return v, v != ""
}

// Strings returns the raw cells of a column.
func (t *Table) Strings(column string) ([]string, error) {
	j, ok := t.index[column]
	if !ok {
		return nil, &UnknownColumnError{Column: column}
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Numbers parses a column as numbers. Cells that are missing or do not parse
// become missing Numbers.
func (t *Table) Numbers(column string) ([]Number, error) {
	raw, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]Number, len(raw))
	for i, s := range raw {
		out[i], _ = ParseNumber(s)
	}
	return out, nil
}

// Row returns row i as a Row value with missing cells omitted.
func (t *Table) Row(i int) Row {
	fields := make(map[string]string, len(t.columns))
	for j, c := range t.columns {
		if v := t.rows[i][j]; v != "" {
			fields[c] = v
		}
	}
	return Row{Index: i, Fields: fields}
}

// Records returns the rows as raw records, header excluded.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// WithColumn returns a new table with values appended (or replacing an
// existing column of the same name). The receiver is left untouched.
func (t *Table) WithColumn(name string, values []Number) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values, want %d", name, len(values), len(t.rows))
	}
	columns := t.Columns()
	j, replace := t.index[name]
	if !replace {
		j = len(columns)
		columns = append(columns, name)
	}
	records := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rec := make([]string, len(columns))
		copy(rec, row)
		rec[j] = values[i].String()
		records[i] = rec
	}
	return NewTable(columns, records)
}

// Memo returns the derived column cached under key, computing it once.
// A failed computation is not cached. compute must not call Memo on the same table.
func (t *Table) Memo(key string, compute func() ([]Number, error)) ([]Number, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.derived[key]; ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	if t.derived == nil {
		t.derived = make(map[string][]Number)
	}
	t.derived[key] = v
	return v, nil
}

// Row is a single table row keyed by column name. Index is the position of the
// row in its source table.
type Row struct {
	Index  int               `json:"index" yaml:"index"`
	Fields map[string]string `json:"fields" yaml:"fields"`
}
