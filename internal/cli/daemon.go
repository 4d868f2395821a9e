package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gtcore/qcmet/internal/config"
	"github.com/gtcore/qcmet/internal/logging"
	"github.com/gtcore/qcmet/internal/watch"
)

// DaemonOptions configures the watch daemon entry point
type DaemonOptions struct {
	InputDir    string
	ProfileFile string
	Verbose     bool
}

// ServeDaemon runs the watch daemon. With explicit options it starts a new
// session; otherwise it resumes the session described by the persisted watch
// intent, and exits immediately when no session is recorded. An interrupt
// stops event delivery and persists the stopped state before exit.
func ServeDaemon(opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log, err := logging.NewDaemon(cfg.DaemonLogFile(), level)
	if err != nil {
		return err
	}
	defer log.Sync()

	inputDir, profileFile := opts.InputDir, opts.ProfileFile
	if inputDir == "" || profileFile == "" {
		state, err := watch.ReadState(cfg.WatchStateFile())
		if err != nil {
			return err
		}
		if !state.Active {
			fmt.Fprintln(os.Stderr, "No active watch session recorded; nothing to resume.")
			return nil
		}
		inputDir, profileFile = state.InputDir, state.ProfileFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &watch.Watcher{
		StatePath:   cfg.WatchStateFile(),
		InputDir:    inputDir,
		ProfileFile: profileFile,
		Log:         log,
	}
	return w.Run(ctx)
}
