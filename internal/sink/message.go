// internal/sink/message.go
package sink

import (
	"fmt"
	"strings"
	"time"

	"formsync/internal/tabular"
)

// timeRenderer turns a raw created_at value into the channel's
// human-readable form. The raw value is returned unchanged when it
// cannot be parsed.
type timeRenderer func(raw string) string

var createTimeLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseCreateTime(raw string) (time.Time, bool) {
	for _, layout := range createTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// discordTime renders a timestamp the chat client localizes itself.
func discordTime(raw string) string {
	t, ok := parseCreateTime(raw)
	if !ok {
		return raw
	}
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}

func plainTime(raw string) string {
	t, ok := parseCreateTime(raw)
	if !ok {
		return raw
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

// renderMessage formats a batch of rows as one notification body: per
// row a creation-time line followed by one "<column>: <value>" line per
// value column, rows separated by a blank line. Cells are read
// positionally so repeated fallback headers each render their own value.
func renderMessage(table tabular.Table, renderTime timeRenderer, columnStyle func(string) string) string {
	var lines []string
	for r, row := range table.Rows {
		if created := row[tabular.ColumnCreatedAt]; created != "" {
			lines = append(lines, "Create Time: "+renderTime(created)+"\n")
		}
		for i, col := range table.Columns {
			if col == tabular.ColumnRecordID || col == tabular.ColumnCreatedAt {
				continue
			}
			lines = append(lines, columnStyle(col)+": "+table.CellAt(r, i))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
