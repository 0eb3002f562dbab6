// internal/tabular/normalize.go
package tabular

import (
	"sort"
	"strconv"

	"formsync/internal/google"
)

// NormalizePrimary flattens structured form responses into a
// rectangular Table. Each record contributes record_id, created_at and
// one cell per answered field. Fields answered by some records but not
// others are reconciled with empty cells rather than by dropping rows.
//
// Column order is first appearance across the batch. Fields within one
// record are visited in sorted order so the resulting column order is
// deterministic.
func NormalizePrimary(records []google.FormResponse) Table {
	columns := []string{ColumnRecordID, ColumnCreatedAt}
	seen := map[string]bool{ColumnRecordID: true, ColumnCreatedAt: true}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{
			ColumnRecordID:  rec.ResponseID,
			ColumnCreatedAt: rec.CreateTime,
		}

		fields := make([]string, 0, len(rec.Answers))
		for field := range rec.Answers {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			if !seen[field] {
				seen[field] = true
				columns = append(columns, field)
			}
			row[field] = rec.Answers[field].Value()
		}
		rows = append(rows, row)
	}

	fillMissing(columns, rows)
	return Table{Columns: columns, Rows: rows}
}

// NormalizeFallback turns a raw spreadsheet grid into a Table. The
// first row supplies column names exactly as given, duplicates and
// empty headers included. Data rows are aligned positionally: short
// rows are right-padded with empty cells and long rows truncated to
// header width. Columns sharing header text keep their cells distinct.
func NormalizeFallback(grid [][]string) Table {
	if len(grid) == 0 {
		return Table{}
	}

	columns := make([]string, len(grid[0]))
	copy(columns, grid[0])
	keys := storageKeys(columns)

	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(Row, len(columns))
		for i := range columns {
			if i < len(cells) {
				row[keys[i]] = cells[i]
			} else {
				row[keys[i]] = ""
			}
		}
		rows = append(rows, row)
	}

	return Table{Columns: columns, Rows: rows, keys: keys}
}

// storageKeys disambiguates repeated header text with a per-position
// suffix the header itself cannot contain. The first occurrence keeps
// the plain name so by-name lookups resolve to it.
func storageKeys(columns []string) []string {
	keys := make([]string, len(columns))
	seen := make(map[string]int, len(columns))
	for i, col := range columns {
		if n := seen[col]; n > 0 {
			keys[i] = col + "\x00" + strconv.Itoa(n)
		} else {
			keys[i] = col
		}
		seen[col]++
	}
	return keys
}

func fillMissing(columns []string, rows []Row) {
	for _, row := range rows {
		for _, col := range columns {
			if _, ok := row[col]; !ok {
				row[col] = ""
			}
		}
	}
}
