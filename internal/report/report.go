// Package report parses per-run QC report files and handles the canonical
// metrics table on disk.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// SentinelColumn marks the true header row of a QC report. Everything above
// the first line containing it is preamble and is discarded.
const SentinelColumn = "GT_QC_Sample_ID"

// Identity column names prepended to every extracted row
var identityColumns = []string{"Investigator_Folder", "Project_run_type", "FlowcellID"}

// RunIdentity anchors every metrics row to its source folder
type RunIdentity struct {
	InvestigatorFolder string
	RunLabel           string
	FlowcellID         string
}

// Table is an ordered header plus ordered rows. Column order and names are
// exactly as parsed; no renaming or type coercion happens anywhere.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// PrependIdentity inserts the three identity columns at the front of the
// header and of every row.
func (t *Table) PrependIdentity(id RunIdentity) {
	t.Header = append(append([]string(nil), identityColumns...), t.Header...)
	vals := []string{id.InvestigatorFolder, id.RunLabel, id.FlowcellID}
	for i, row := range t.Rows {
		t.Rows[i] = append(append([]string(nil), vals...), row...)
	}
}

// ReadReport parses a QC report file starting at the sentinel header line.
func ReadReport(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	start := -1
	for i, line := range lines {
		if strings.Contains(line, SentinelColumn) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("report %s has no %s header line", path, SentinelColumn)
	}

	return parseCSV(strings.Join(lines[start:], "\n"))
}

// ReadTable reads a previously written canonical metrics table.
func ReadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics table %s: %w", path, err)
	}
	return parseCSV(string(data))
}

// WriteFile overwrites path with the table as CSV, header first. The caller
// follows the whole-file read, in-memory merge, whole-file overwrite
// discipline; there is no partial write path.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write metrics table %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush metrics table %s: %w", path, err)
	}
	return f.Close()
}

// Concat unions tables in order under the first table's header. Nil and empty
// tables are skipped.
func Concat(tables []*Table) *Table {
	var out *Table
	for _, t := range tables {
		if t == nil || len(t.Header) == 0 {
			continue
		}
		if out == nil {
			out = &Table{Header: append([]string(nil), t.Header...)}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

func parseCSV(content string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}
