// Package ledger provides the append-only processed-folder ledgers. A ledger
// is loaded into memory once at open; appends write only the delta and never
// rewrite prior entries.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Ledger is an append-only set of folder paths.
type Ledger interface {
	// Contains reports whether path has been recorded
	Contains(path string) bool
	// Append records the paths not already present, in order
	Append(paths []string) error
	// Len returns the number of recorded paths
	Len() int
	// All returns the recorded paths in insertion order
	All() []string
}

// FileLedger is a Ledger backed by a line-oriented text file, one folder path
// per line.
type FileLedger struct {
	path  string
	seen  map[string]struct{}
	order []string
}

// OpenFile loads the ledger at path. A missing file yields an empty ledger;
// any other read error is fatal to the invocation.
func OpenFile(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, seen: make(map[string]struct{})}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, ok := l.seen[line]; !ok {
			l.seen[line] = struct{}{}
			l.order = append(l.order, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	return l, nil
}

func (l *FileLedger) Contains(path string) bool {
	_, ok := l.seen[path]
	return ok
}

func (l *FileLedger) Len() int { return len(l.order) }

func (l *FileLedger) All() []string {
	return append([]string(nil), l.order...)
}

// Append writes the not-yet-recorded paths to the end of the ledger file.
func (l *FileLedger) Append(paths []string) error {
	var delta []string
	for _, p := range paths {
		if _, ok := l.seen[p]; !ok {
			delta = append(delta, p)
		}
	}
	if len(delta) == 0 {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger %s for append: %w", l.path, err)
	}
	defer f.Close()

	for _, p := range delta {
		if _, err := fmt.Fprintln(f, p); err != nil {
			return fmt.Errorf("failed to append to ledger %s: %w", l.path, err)
		}
		l.seen[p] = struct{}{}
		l.order = append(l.order, p)
	}
	return nil
}

// MemLedger is an in-memory Ledger for tests.
type MemLedger struct {
	seen  map[string]struct{}
	order []string
}

// NewMem returns an empty in-memory ledger
func NewMem(paths ...string) *MemLedger {
	l := &MemLedger{seen: make(map[string]struct{})}
	_ = l.Append(paths)
	return l
}

func (l *MemLedger) Contains(path string) bool {
	_, ok := l.seen[path]
	return ok
}

func (l *MemLedger) Len() int { return len(l.order) }

func (l *MemLedger) All() []string {
	return append([]string(nil), l.order...)
}

func (l *MemLedger) Append(paths []string) error {
	for _, p := range paths {
		if _, ok := l.seen[p]; !ok {
			l.seen[p] = struct{}{}
			l.order = append(l.order, p)
		}
	}
	return nil
}
