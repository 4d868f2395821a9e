package cli

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/gtcore/qcmet/internal/config"
	"github.com/gtcore/qcmet/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "qcmet",
	Short: "Harvest and publish per-run QC metrics tables",
	Long: `qcmet incrementally harvests per-run QC report files scattered across
the sequencing data trees, merges them into one canonical deduplicated
metrics table, and keeps the bookkeeping needed to make re-runs cheap:
processed-folder ledgers, dated backups, and publication to the dashboard
host.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log, err = logging.New(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var (
	cfg     *config.Config
	log     *zap.Logger
	verbose bool
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
