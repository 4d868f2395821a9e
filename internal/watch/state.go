package watch

import (
	"encoding/json"
	"fmt"
	"os"
)

// State is the persisted watch-intent record. It is read at process start to
// decide whether a watch session should auto-resume, and written on every
// start and stop so a crash cannot leave a stale "watching" record behind a
// clean shutdown.
type State struct {
	Active      bool   `json:"active"`
	InputDir    string `json:"input_dir"`
	ProfileFile string `json:"profile_file"`
	Session     string `json:"session,omitempty"`
}

// ReadState loads the record at path. A missing file means "not watching".
func ReadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to read watch state %s: %w", path, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("failed to parse watch state %s: %w", path, err)
	}
	return s, nil
}

// WriteState persists the record at path
func WriteState(path string, s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode watch state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write watch state %s: %w", path, err)
	}
	return nil
}
