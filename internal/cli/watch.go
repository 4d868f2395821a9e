package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gtcore/qcmet/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and keep the group profile current",
	Long: `Starts a watch session in the foreground: changes to *.metrics.txt
files under the input directory trigger a re-extraction of group names into
the membership profile. The watch intent is persisted so qcmetd auto-resumes
the session after a restart. Stop with an interrupt; stopping persists a
"not watching" record.`,
	RunE: runWatch,
}

var (
	watchInputDir string
	watchProfile  string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchInputDir, "input-dir", "", "Directory to watch for metrics tables")
	watchCmd.Flags().StringVar(&watchProfile, "profile", "", "Path to the membership profile JSON")
	watchCmd.MarkFlagRequired("input-dir")
	watchCmd.MarkFlagRequired("profile")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// An interrupt must stop event delivery and persist the inactive
	// record, not kill the process mid-write.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &watch.Watcher{
		StatePath:   cfg.WatchStateFile(),
		InputDir:    watchInputDir,
		ProfileFile: watchProfile,
		Log:         log,
	}
	return w.Run(ctx)
}

var unwatchCmd = &cobra.Command{
	Use:   "unwatch",
	Short: "Clear the persisted watch intent",
	Long: `Persists an inactive watch record so qcmetd does not auto-resume a
watch session on its next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := watch.ReadState(cfg.WatchStateFile())
		if err != nil {
			return err
		}
		if !state.Active {
			fmt.Fprintln(cmd.OutOrStdout(), "No watch session recorded.")
			return nil
		}
		state.Active = false
		if err := watch.WriteState(cfg.WatchStateFile(), state); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Watch disabled.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unwatchCmd)
}
