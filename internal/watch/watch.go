// Package watch runs the background watch session: filesystem change events
// on metrics tables trigger a re-extraction of investigator groups into the
// membership profile.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gtcore/qcmet/internal/groups"
)

// Watcher is a cancellable watch session over one input directory. Each
// settled change to a *.metrics.txt file triggers a full re-extraction;
// overlapping triggers are tolerated because the profile update is
// idempotent.
type Watcher struct {
	StatePath   string
	InputDir    string
	ProfileFile string
	Log         *zap.Logger

	// Debounce is the settle window for rapid successive writes to the
	// same file. Zero means the default.
	Debounce time.Duration
}

const defaultDebounce = 500 * time.Millisecond

// Run blocks until ctx is cancelled. The intent record is written Active=true
// before the first event and Active=false before returning on every exit
// path, so a future process start never spuriously auto-resumes.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addRecursive(fw, w.InputDir); err != nil {
		return err
	}

	session := uuid.NewString()
	state := State{Active: true, InputDir: w.InputDir, ProfileFile: w.ProfileFile, Session: session}
	if err := WriteState(w.StatePath, state); err != nil {
		return err
	}
	defer func() {
		state.Active = false
		if err := WriteState(w.StatePath, state); err != nil {
			w.Log.Error("failed to persist stopped state", zap.Error(err))
		}
	}()

	w.Log.Info("watcher started",
		zap.String("input_dir", w.InputDir),
		zap.String("profile", w.ProfileFile),
		zap.String("session", session))

	// Refresh once at startup so changes made while not watching are not
	// missed until the next event.
	w.refresh()

	debounce := w.Debounce
	if debounce == 0 {
		debounce = defaultDebounce
	}
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("watcher stopped", zap.String("session", session))
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, event, pending)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Log.Error("watch error", zap.Error(err))

		case now := <-ticker.C:
			settled := false
			for path, at := range pending {
				if now.Sub(at) >= debounce {
					delete(pending, path)
					settled = true
				}
			}
			if settled {
				w.refresh()
			}
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	// New subdirectories must be watched too; fsnotify is not recursive.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.Add(event.Name); err != nil {
				w.Log.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".metrics.txt") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	w.Log.Debug("detected change", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	pending[event.Name] = time.Now()
}

// refresh re-extracts group names from the input directory and merges new
// ones into the profile.
func (w *Watcher) refresh() {
	names := groups.Extract(w.InputDir, w.Log)
	added, err := groups.MergeGroups(w.ProfileFile, names)
	if err != nil {
		w.Log.Error("failed to update profile", zap.Error(err))
		return
	}
	if added > 0 {
		w.Log.Info("profile updated", zap.Int("groups_added", added))
	}
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
