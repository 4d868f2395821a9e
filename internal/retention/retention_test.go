package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gtcore/qcmet/internal/testutil"
)

func newManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m := &Manager{
		BackupDir:   filepath.Join(dir, "backups"),
		LogDir:      filepath.Join(dir, "logs"),
		Application: "speciesid",
		BackupDays:  10,
		LogDays:     1,
		Log:         zap.NewNop(),
	}
	return m, dir
}

func TestAfterChange_CreatesDatedBackup(t *testing.T) {
	m, dir := newManager(t)
	metrics := testutil.WriteFile(t, dir, "speciesid.metrics.csv", "A,B\n1,2\n")

	if err := m.AfterChange(metrics); err != nil {
		t.Fatalf("AfterChange failed: %v", err)
	}

	stamp := time.Now().Format("20060102")
	backup := filepath.Join(m.BackupDir, ".speciesid.metrics."+stamp+".txt")
	if got := testutil.ReadFile(t, backup); got != "A,B\n1,2\n" {
		t.Errorf("backup content mismatch: %q", got)
	}
}

func TestAfterChange_SameDayOverwrite(t *testing.T) {
	m, dir := newManager(t)
	metrics := testutil.WriteFile(t, dir, "speciesid.metrics.csv", "A,B\n1,2\n")

	if err := m.AfterChange(metrics); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, dir, "speciesid.metrics.csv", "A,B\n1,2\n3,4\n")
	if err := m.AfterChange(metrics); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(m.BackupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single same-day backup, got %d files", len(entries))
	}
}

func TestAfterChange_PrunesOldFiles(t *testing.T) {
	m, dir := newManager(t)
	metrics := testutil.WriteFile(t, dir, "speciesid.metrics.csv", "A,B\n")

	if err := os.MkdirAll(m.BackupDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(m.LogDir, 0755); err != nil {
		t.Fatal(err)
	}
	oldBackup := testutil.WriteFile(t, m.BackupDir, ".speciesid.metrics.20200101.txt", "old")
	oldLog := testutil.WriteFile(t, m.LogDir, "slurm-1.out", "old")
	freshLog := testutil.WriteFile(t, m.LogDir, "slurm-2.out", "fresh")

	stale := time.Now().Add(-30 * 24 * time.Hour)
	for _, p := range []string{oldBackup, oldLog} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.AfterChange(metrics); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(oldBackup); !os.IsNotExist(err) {
		t.Error("expected stale backup to be pruned")
	}
	if _, err := os.Stat(oldLog); !os.IsNotExist(err) {
		t.Error("expected stale log to be pruned")
	}
	if _, err := os.Stat(freshLog); err != nil {
		t.Error("expected fresh log to survive")
	}
}

func TestAfterNoChange_TouchesPlaceholderOnce(t *testing.T) {
	m, _ := newManager(t)

	if err := m.AfterNoChange(); err != nil {
		t.Fatalf("AfterNoChange failed: %v", err)
	}

	stamp := time.Now().Format("20060102")
	backup := filepath.Join(m.BackupDir, ".speciesid.metrics."+stamp+".txt")
	info, err := os.Stat(backup)
	if err != nil {
		t.Fatalf("expected placeholder backup: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty placeholder, got %d bytes", info.Size())
	}

	// A real same-day backup must not be truncated by a later no-change run
	if err := os.WriteFile(backup, []byte("real"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.AfterNoChange(); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ReadFile(t, backup); got != "real" {
		t.Errorf("placeholder touch clobbered existing backup: %q", got)
	}
}
