package dbexport

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/gtcore/qcmet/internal/db"
	"github.com/gtcore/qcmet/internal/report"
	"github.com/gtcore/qcmet/internal/testutil"
)

func metricsTable() *report.Table {
	return &report.Table{
		Header: []string{"Investigator_Folder", "Project_run_type", "Sample_Name", "ProjStatus"},
		Rows: [][]string{
			{"LabX", "RUN1", "S1", "Delivered"},
			{"LabX", "RUN1", "S2", "Delivered"},
			{"LabY", "RUN2", "S3", "Delivered"},
		},
	}
}

func mirrored(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	if err := Mirror(dbPath, metricsTable()); err != nil {
		t.Fatalf("Mirror failed: %v", err)
	}
	return dbPath
}

func rowCount(t *testing.T, dbPath, where string, args ...any) int {
	t.Helper()
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()
	var n int
	query := `SELECT COUNT(*) FROM "all_metrics"`
	if where != "" {
		query += " WHERE " + where
	}
	if err := database.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestMirror(t *testing.T) {
	dbPath := mirrored(t)
	if got := rowCount(t, dbPath, ""); got != 3 {
		t.Errorf("expected 3 mirrored rows, got %d", got)
	}
}

func TestMirror_Replaces(t *testing.T) {
	dbPath := mirrored(t)

	smaller := metricsTable()
	smaller.Rows = smaller.Rows[:1]
	if err := Mirror(dbPath, smaller); err != nil {
		t.Fatalf("second Mirror failed: %v", err)
	}
	if got := rowCount(t, dbPath, ""); got != 1 {
		t.Errorf("expected full replacement to 1 row, got %d", got)
	}
}

func TestMirror_EmptyTableRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metrics.db")
	if err := Mirror(dbPath, nil); err == nil {
		t.Fatal("expected error for nil table")
	}
}

func TestUndeliver_ByRunType(t *testing.T) {
	dbPath := mirrored(t)
	outPath := filepath.Join(filepath.Dir(dbPath), "out.tsv")

	res, err := Undeliver(dbPath, outPath, "RUN1", nil)
	if err != nil {
		t.Fatalf("Undeliver failed: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("expected 2 rows updated, got %d", res.Count)
	}
	if got := rowCount(t, dbPath, `"ProjStatus" = 'Undelivered'`); got != 2 {
		t.Errorf("expected 2 undelivered rows, got %d", got)
	}
	// RUN2 untouched
	if got := rowCount(t, dbPath, `"Project_run_type" = 'RUN2' AND "ProjStatus" = 'Delivered'`); got != 1 {
		t.Errorf("RUN2 should be untouched, got %d delivered", got)
	}

	export := testutil.ReadFile(t, outPath)
	if !strings.Contains(export, "S1\tUndelivered") || !strings.Contains(export, "S2\tUndelivered") {
		t.Errorf("export missing updated rows:\n%s", export)
	}
	if !strings.Contains(res.Diff, "-") || !strings.Contains(res.Diff, "+") {
		t.Errorf("expected a non-empty diff:\n%s", res.Diff)
	}
}

func TestUndeliver_SampleRestriction(t *testing.T) {
	dbPath := mirrored(t)
	outPath := filepath.Join(filepath.Dir(dbPath), "out.tsv")

	res, err := Undeliver(dbPath, outPath, "RUN1", []string{"S2"})
	if err != nil {
		t.Fatalf("Undeliver failed: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("expected 1 row updated, got %d", res.Count)
	}
	if got := rowCount(t, dbPath, `"Sample_Name" = 'S1' AND "ProjStatus" = 'Delivered'`); got != 1 {
		t.Error("S1 should remain delivered")
	}
}

func TestUndeliver_NoMatches(t *testing.T) {
	dbPath := mirrored(t)
	outPath := filepath.Join(filepath.Dir(dbPath), "out.tsv")

	res, err := Undeliver(dbPath, outPath, "NO-SUCH-RUN", nil)
	if err != nil {
		t.Fatalf("Undeliver failed: %v", err)
	}
	if res.Count != 0 {
		t.Errorf("expected zero updates, got %d", res.Count)
	}
}

func TestUndeliver_MissingDatabaseIsFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.db")
	if _, err := Undeliver(missing, "out.tsv", "RUN1", nil); err == nil {
		t.Fatal("expected error for missing database file")
	}
}
