// Package dbexport maintains the SQLite mirror of the canonical metrics
// table that backs the dashboard, and implements the delivery-status
// downgrade against it.
package dbexport

import (
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/gtcore/qcmet/internal/db"
	"github.com/gtcore/qcmet/internal/report"
)

// MetricsTable is the mirrored table name
const MetricsTable = "all_metrics"

// Mirror replaces the all_metrics table with the contents of t. Columns are
// taken from the table header as TEXT; the mirror is a full replacement, not
// an incremental sync, matching the whole-file discipline of the CSV side.
func Mirror(dbPath string, t *report.Table) error {
	if t == nil || len(t.Header) == 0 {
		return fmt.Errorf("refusing to mirror an empty table")
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	tx, err := database.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, MetricsTable)); err != nil {
		return fmt.Errorf("failed to drop old mirror: %w", err)
	}

	cols := make([]string, len(t.Header))
	marks := make([]string, len(t.Header))
	for i, name := range t.Header {
		cols[i] = fmt.Sprintf("%q TEXT", name)
		marks[i] = "?"
	}
	create := fmt.Sprintf(`CREATE TABLE %q (%s)`, MetricsTable, strings.Join(cols, ", "))
	if _, err := tx.Exec(create); err != nil {
		return fmt.Errorf("failed to create mirror table: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %q VALUES (%s)`, MetricsTable, strings.Join(marks, ", "))
	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, len(t.Header))
		for i := range t.Header {
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = ""
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return tx.Commit()
}

// UndeliverResult describes a completed delivery-status downgrade
type UndeliverResult struct {
	Count   int
	OutPath string
	Diff    string
}

// Undeliver flips ProjStatus from Delivered to Undelivered for every
// all_metrics row of the given run type (optionally restricted to a sample
// set), exports the run type's rows as TSV for inspection, and returns a
// unified diff of the affected rows. A missing database file is fatal.
func Undeliver(dbPath, outPath, runType string, samples []string) (*UndeliverResult, error) {
	database, err := db.OpenExisting(dbPath)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	where := `"Project_run_type" = ? AND "ProjStatus" = 'Delivered'`
	args := []any{runType}
	if len(samples) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(samples)), ",")
		where += fmt.Sprintf(` AND "Sample_Name" IN (%s)`, marks)
		for _, s := range samples {
			args = append(args, s)
		}
	}

	var count int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %q WHERE %s`, MetricsTable, where)
	if err := database.QueryRow(countQuery, args...).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count rows to update: %w", err)
	}
	if count == 0 {
		return &UndeliverResult{Count: 0, OutPath: outPath}, nil
	}

	before, header, err := selectRows(database, where, args)
	if err != nil {
		return nil, err
	}

	update := fmt.Sprintf(`UPDATE %q SET "ProjStatus" = 'Undelivered' WHERE %s`, MetricsTable, where)
	if _, err := database.Exec(update, args...); err != nil {
		return nil, fmt.Errorf("failed to update rows: %w", err)
	}

	// Re-select on run type alone so the export shows the whole run's rows
	// after the change, the way an operator inspects it.
	exportWhere := `"Project_run_type" = ?`
	exportArgs := []any{runType}
	if len(samples) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(samples)), ",")
		exportWhere += fmt.Sprintf(` AND "Sample_Name" IN (%s)`, marks)
		for _, s := range samples {
			exportArgs = append(exportArgs, s)
		}
	}
	after, _, err := selectRows(database, exportWhere, exportArgs)
	if err != nil {
		return nil, err
	}

	if err := writeTSV(outPath, header, after); err != nil {
		return nil, err
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        tsvLines(before),
		B:        tsvLines(after),
		FromFile: "delivered",
		ToFile:   "undelivered",
		Context:  2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build diff: %w", err)
	}

	return &UndeliverResult{Count: count, OutPath: outPath, Diff: diff}, nil
}

func selectRows(database *db.DB, where string, args []any) ([][]string, []string, error) {
	query := fmt.Sprintf(`SELECT * FROM %q WHERE %s`, MetricsTable, where)
	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		for i := range vals {
			vals[i] = new(string)
		}
		if err := rows.Scan(vals...); err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}
		row := make([]string, len(cols))
		for i := range cols {
			row[i] = *(vals[i].(*string))
		}
		out = append(out, row)
	}
	return out, cols, rows.Err()
}

func writeTSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write export %s: %w", path, err)
	}
	fmt.Fprintln(f, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(f, strings.Join(row, "\t"))
	}
	return f.Close()
}

func tsvLines(rows [][]string) []string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, "\t") + "\n"
	}
	return lines
}
