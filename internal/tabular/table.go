// internal/tabular/table.go
package tabular

// Reserved column names. These are produced by normalization and are
// never renamed by a column mapping.
const (
	ColumnRecordID  = "record_id"
	ColumnCreatedAt = "created_at"
)

// Table is a rectangular grid of string cells. Every row holds a value
// for every column, possibly empty. Column order is significant and is
// preserved through remapping and delivery.
//
// Fallback grids may repeat header text; cells then live under internal
// per-position keys so no column's data is lost, while Columns keeps the
// header text exactly as given.
type Table struct {
	Columns []string
	Rows    []Row

	// storage keys parallel to Columns, set only when header text repeats
	keys []string
}

// Row maps a column name to its cell value. A row belonging to a Table
// has an entry for each of the table's columns.
type Row map[string]string

// IsEmpty reports whether the table carries no data rows.
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

// ValueColumns returns the column names that carry answer data, in
// table order, excluding the reserved bookkeeping columns.
func (t Table) ValueColumns() []string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c == ColumnRecordID || c == ColumnCreatedAt {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// Cell returns the value at the given row index and column, or the
// empty string when the column is absent. When header text repeats,
// this resolves to the first occurrence; use CellAt for positional
// access.
func (t Table) Cell(row int, column string) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][column]
}

// CellAt returns the value at the given row and column indexes. Unlike
// Cell it distinguishes columns sharing the same header text.
func (t Table) CellAt(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Columns) {
		return ""
	}
	return t.Rows[row][t.storageKey(col)]
}

func (t Table) storageKey(col int) string {
	if t.keys != nil {
		return t.keys[col]
	}
	return t.Columns[col]
}

// HasColumn reports whether the table carries the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
