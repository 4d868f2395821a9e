// Package harvest orchestrates one invocation of the QC metrics pipeline:
// scan for candidate folders, validate each one, merge the extracted rows
// into the canonical table, then handle backups, ledgers, and publication.
package harvest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/gtcore/qcmet/internal/config"
	"github.com/gtcore/qcmet/internal/ledger"
	"github.com/gtcore/qcmet/internal/merge"
	"github.com/gtcore/qcmet/internal/push"
	"github.com/gtcore/qcmet/internal/report"
	"github.com/gtcore/qcmet/internal/retention"
	"github.com/gtcore/qcmet/internal/scan"
	"github.com/gtcore/qcmet/internal/validate"
)

// Summary reports what one invocation did
type Summary struct {
	Candidates int
	Succeeded  int
	Failed     int
	RowsAdded  int
	Changed    bool
}

// Harvester wires the pipeline's collaborators. Ledgers and the pusher are
// injected so tests can run against in-memory implementations.
type Harvester struct {
	Cfg     *config.Config
	Success ledger.Ledger
	Fail    ledger.Ledger
	Pusher  push.Pusher
	Log     *zap.Logger
	Out     io.Writer

	// Mirror, when set, receives the merged table after a change so it can
	// be replicated into the dashboard database. Mirror failure is logged,
	// not fatal.
	Mirror func(t *report.Table) error

	// ForceFirst walks the archive roots even when the success ledger is
	// non-empty
	ForceFirst bool
	// DryRun reports candidates without writing anything
	DryRun bool

	retain *retention.Manager
}

var (
	okLine   = color.New(color.FgGreen)
	failLine = color.New(color.FgRed)
)

// Run executes one harvest invocation. Per-folder failures are downgraded to
// the fail ledger; only canonical-table and ledger I/O errors are fatal.
func (h *Harvester) Run(ctx context.Context) (*Summary, error) {
	cfg := h.Cfg
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("output directory unavailable: %w", err)
	}
	h.retain = &retention.Manager{
		BackupDir:   cfg.BackupDir(),
		LogDir:      cfg.LogDir(),
		Application: cfg.Application,
		BackupDays:  cfg.BackupDays,
		LogDays:     cfg.LogDays,
		Log:         h.Log,
	}

	firstRun := h.ForceFirst || h.Success.Len() == 0
	roots := cfg.RootsFor(firstRun)
	h.Log.Info("scanning for QC report files",
		zap.Strings("roots", roots), zap.Bool("first_run", firstRun))

	candidates := scan.Candidates(roots, cfg.ReportSuffix(), h.Success.Contains, h.Log)
	fmt.Fprintf(h.Out, "Found %d candidate folders to process.\n", len(candidates))

	if h.DryRun {
		for _, folder := range candidates {
			fmt.Fprintln(h.Out, folder)
		}
		return &Summary{Candidates: len(candidates)}, nil
	}

	v := &validate.Validator{Application: cfg.Application, Log: h.Log}
	var (
		batch        []*report.Table
		successPaths []string
		failPaths    []string
	)
	for _, folder := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, _, err := v.Check(folder)
		if err != nil {
			failLine.Fprintf(h.Out, "FAIL %s: %v\n", folder, err)
			h.Log.Info("folder failed validation", zap.String("folder", folder), zap.Error(err))
			failPaths = append(failPaths, folder)
			continue
		}
		okLine.Fprintf(h.Out, "OK   %s (%d rows)\n", folder, table.Len())
		batch = append(batch, table)
		successPaths = append(successPaths, folder)
	}

	summary := &Summary{
		Candidates: len(candidates),
		Succeeded:  len(successPaths),
		Failed:     len(failPaths),
	}

	merged, changed, rowsAdded, err := h.mergeBatch(batch)
	if err != nil {
		return nil, err
	}
	summary.Changed = changed
	summary.RowsAdded = rowsAdded

	if changed {
		if err := merged.WriteFile(cfg.MetricsFile()); err != nil {
			return nil, err
		}
		if err := h.retain.AfterChange(cfg.MetricsFile()); err != nil {
			h.Log.Warn("backup handling failed", zap.Error(err))
		}
		if h.Mirror != nil {
			if err := h.Mirror(merged); err != nil {
				h.Log.Warn("database mirror failed", zap.Error(err))
			}
		}
		if err := h.Pusher.Push(ctx, cfg.MetricsFile()); err != nil {
			h.Log.Warn("push to remote failed", zap.Error(err))
			fmt.Fprintln(h.Out, "File not pushed.")
		} else {
			fmt.Fprintln(h.Out, "File successfully pushed to server.")
		}
	} else {
		if err := h.retain.AfterNoChange(); err != nil {
			h.Log.Warn("placeholder backup failed", zap.Error(err))
		}
	}

	// Ledger writes happen only after the merge has been persisted, so a
	// merge failure cannot strand folders as "done".
	if err := h.Success.Append(successPaths); err != nil {
		return nil, fmt.Errorf("failed to update success ledger: %w", err)
	}
	if err := h.Fail.Append(failPaths); err != nil {
		return nil, fmt.Errorf("failed to update fail ledger: %w", err)
	}

	fmt.Fprintf(h.Out, "Processed: %d new, %d failed, %d rows added.\n",
		summary.Succeeded, summary.Failed, summary.RowsAdded)
	return summary, nil
}

// mergeBatch folds the newly parsed tables into the canonical table on disk.
// An unreadable existing table aborts the invocation.
func (h *Harvester) mergeBatch(batch []*report.Table) (*report.Table, bool, int, error) {
	if len(batch) == 0 {
		return nil, false, 0, nil
	}
	full := report.Concat(batch)

	metricsFile := h.Cfg.MetricsFile()
	var existing *report.Table
	if _, err := os.Stat(metricsFile); err == nil {
		existing, err = report.ReadTable(metricsFile)
		if err != nil {
			return nil, false, 0, err
		}
	} else if !os.IsNotExist(err) {
		return nil, false, 0, fmt.Errorf("metrics table inaccessible: %w", err)
	}

	merged, changed := merge.Merge(existing, full)
	rowsAdded := merged.Len() - existing.Len()
	if changed {
		h.Log.Info("metrics updated", zap.Int("rows_added", rowsAdded))
	} else {
		h.Log.Info("no new unique metrics to append")
	}
	return merged, changed, rowsAdded, nil
}
