// Package merge unions newly extracted rows with the canonical table and
// suppresses exact duplicates.
package merge

import (
	"strings"

	"github.com/gtcore/qcmet/internal/report"
)

// field separator unlikely to appear in metrics values
const sep = "\x1f"

// Dedup removes exact duplicate rows, keeping the first occurrence and
// preserving row order.
func Dedup(t *report.Table) *report.Table {
	if t == nil {
		return nil
	}
	out := &report.Table{Header: append([]string(nil), t.Header...)}
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		key := strings.Join(row, sep)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Merge unions existing and batch, dedups on exact row equality, and reports
// whether the table grew. Rows are compared verbatim across all columns, so
// re-merging an already-merged batch changes nothing. With no existing table
// the deduplicated batch becomes the table and changed is true when it is
// non-empty.
func Merge(existing, batch *report.Table) (*report.Table, bool) {
	if existing == nil {
		merged := Dedup(batch)
		return merged, merged.Len() > 0
	}
	if batch == nil || batch.Len() == 0 {
		return existing, false
	}

	combined := &report.Table{
		Header: append([]string(nil), existing.Header...),
		Rows:   append(append([][]string(nil), existing.Rows...), batch.Rows...),
	}
	merged := Dedup(combined)
	return merged, merged.Len() > existing.Len()
}
