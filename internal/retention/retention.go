// Package retention manages dated backups of the canonical metrics table and
// prunes stale backups and auxiliary logs.
package retention

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Manager rotates dated backups and prunes old files by age
type Manager struct {
	BackupDir   string
	LogDir      string
	Application string
	BackupDays  int
	LogDays     int
	Log         *zap.Logger

	// Now is overridable in tests; defaults to time.Now
	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// backupPath returns today's backup file path, one per calendar day
func (m *Manager) backupPath() string {
	stamp := m.now().Format("20060102")
	return filepath.Join(m.BackupDir, fmt.Sprintf(".%s.metrics.%s.txt", m.Application, stamp))
}

// AfterChange snapshots the metrics table into today's dated backup
// (overwriting a same-day backup is fine) and prunes backups and auxiliary
// logs past their retention windows.
func (m *Manager) AfterChange(metricsFile string) error {
	if err := os.MkdirAll(m.BackupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.MkdirAll(m.LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	backup := m.backupPath()
	if err := copyFile(metricsFile, backup); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	m.Log.Info("backup created", zap.String("path", backup))

	m.pruneOlderThan(m.BackupDir, time.Duration(m.BackupDays)*24*time.Hour)
	m.pruneOlderThan(m.LogDir, time.Duration(m.LogDays)*24*time.Hour)
	return nil
}

// AfterNoChange touches an empty placeholder backup for today if none exists,
// marking "checked, nothing new" without a real snapshot.
func (m *Manager) AfterNoChange() error {
	if err := os.MkdirAll(m.BackupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	backup := m.backupPath()
	if _, err := os.Stat(backup); err == nil {
		return nil
	}
	f, err := os.OpenFile(backup, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to touch placeholder backup: %w", err)
	}
	m.Log.Info("placeholder backup touched", zap.String("path", backup))
	return f.Close()
}

// pruneOlderThan deletes regular files in dir whose mtime is older than age.
// Pruning failures are logged, not fatal.
func (m *Manager) pruneOlderThan(dir string, age time.Duration) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.Log.Warn("failed to read directory for pruning", zap.String("dir", dir), zap.Error(err))
		return
	}
	cutoff := m.now().Add(-age)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				m.Log.Warn("failed to prune file", zap.String("path", path), zap.Error(err))
			} else {
				m.Log.Info("pruned stale file", zap.String("path", path))
			}
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
