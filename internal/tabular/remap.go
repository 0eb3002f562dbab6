// internal/tabular/remap.go
package tabular

// Remap renames the table's columns using the supplied field-id to
// display-name mapping. The reserved record_id and created_at columns
// are never renamed, even when present as mapping keys. Columns are
// visited in table order, so when two source columns map to the same
// display name the later column's cells win.
func Remap(t Table, mapping map[string]string) Table {
	if len(mapping) == 0 {
		return t
	}

	renamed := make(map[string]string, len(t.Columns))
	for _, col := range t.Columns {
		name := col
		if col != ColumnRecordID && col != ColumnCreatedAt {
			if display, ok := mapping[col]; ok {
				name = display
			}
		}
		renamed[col] = name
	}

	columns := make([]string, 0, len(t.Columns))
	position := make(map[string]int, len(t.Columns))
	for _, col := range t.Columns {
		name := renamed[col]
		if _, ok := position[name]; !ok {
			position[name] = len(columns)
			columns = append(columns, name)
		}
	}

	rows := make([]Row, 0, len(t.Rows))
	for r := range t.Rows {
		out := make(Row, len(columns))
		for i, col := range t.Columns {
			out[renamed[col]] = t.CellAt(r, i)
		}
		rows = append(rows, out)
	}

	return Table{Columns: columns, Rows: rows}
}
