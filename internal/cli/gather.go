package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtcore/qcmet/internal/dbexport"
	"github.com/gtcore/qcmet/internal/harvest"
	"github.com/gtcore/qcmet/internal/ledger"
	"github.com/gtcore/qcmet/internal/push"
	"github.com/gtcore/qcmet/internal/report"
)

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Run one harvest of QC report files into the metrics table",
	Long: `Scans the search roots for QC report files, validates each candidate
folder, merges the newly extracted rows into the canonical metrics table,
and on change creates a dated backup, refreshes the dashboard database, and
pushes the table to the remote host.

Folders recorded in the success ledger are never re-scanned. Folders that
fail validation land in the fail ledger and are retried on the next run.`,
	RunE: runGather,
}

var (
	gatherFirst  bool
	gatherDryRun bool
)

func init() {
	rootCmd.AddCommand(gatherCmd)

	gatherCmd.Flags().BoolVar(&gatherFirst, "first", false, "Walk the archive roots even if the success ledger is non-empty")
	gatherCmd.Flags().BoolVar(&gatherDryRun, "dry-run", false, "List candidate folders without processing them")
}

func runGather(cmd *cobra.Command, args []string) error {
	success, err := ledger.OpenFile(cfg.SuccessLedger())
	if err != nil {
		return err
	}
	fail, err := ledger.OpenFile(cfg.FailLedger())
	if err != nil {
		return err
	}

	h := &harvest.Harvester{
		Cfg:     cfg,
		Success: success,
		Fail:    fail,
		Pusher:  push.RsyncPusher{Dest: cfg.PushDest},
		Log:     log,
		Out:     cmd.OutOrStdout(),
		Mirror: func(t *report.Table) error {
			return dbexport.Mirror(cfg.DBFile(), t)
		},
		ForceFirst: gatherFirst,
		DryRun:     gatherDryRun,
	}

	summary, err := h.Run(cmd.Context())
	if err != nil {
		return err
	}
	if summary.Changed {
		fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s\n", cfg.MetricsFile())
	}
	return nil
}
