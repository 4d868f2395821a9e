package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gtcore/qcmet/internal/groups"
	"github.com/gtcore/qcmet/internal/testutil"
)

func TestState_MissingFileMeansInactive(t *testing.T) {
	s, err := ReadState(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if s.Active {
		t.Error("expected inactive state for missing file")
	}
}

func TestState_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	want := State{Active: true, InputDir: "/data", ProfileFile: "/data/.usersProfile.json", Session: "abc"}

	if err := WriteState(path, want); err != nil {
		t.Fatalf("WriteState failed: %v", err)
	}
	got, err := ReadState(path)
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestState_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "state.json", "{not json")

	if _, err := ReadState(path); err == nil {
		t.Fatal("expected error for malformed state file")
	}
}

// Run must persist Active=true while running and Active=false before
// returning, and the startup refresh must pick up pre-existing tables.
func TestWatcher_RunPersistsStateAndRefreshes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tables")
	if err := os.MkdirAll(input, 0755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, input, "speciesid.metrics.txt", "Investigator_Folder\nLabX\n")

	statePath := filepath.Join(dir, "state.json")
	profile := filepath.Join(dir, "profile.json")
	w := &Watcher{
		StatePath:   statePath,
		InputDir:    input,
		ProfileFile: profile,
		Log:         zap.NewNop(),
		Debounce:    10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait for the started state to be persisted
	deadline := time.After(5 * time.Second)
	for {
		s, err := ReadState(statePath)
		if err == nil && s.Active {
			if s.InputDir != input || s.ProfileFile != profile {
				t.Errorf("unexpected state: %+v", s)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for active state")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	s, err := ReadState(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if s.Active {
		t.Error("expected stopped state persisted before exit")
	}

	// Startup refresh extracted the pre-existing group
	p, err := groups.Load(profile)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p["LabX"]; !ok {
		t.Errorf("expected LabX extracted at startup, got %v", p)
	}
}
