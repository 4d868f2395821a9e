// Package push publishes the canonical metrics table to the remote dashboard
// host. Push failure is never fatal to the pipeline; local state is already
// persisted by the time a push happens.
package push

import (
	"context"
	"fmt"
	"os/exec"
)

// Pusher publishes a file to the remote host
type Pusher interface {
	Push(ctx context.Context, path string) error
}

// RsyncPusher pushes with rsync over ssh, matching the operator workflow
type RsyncPusher struct {
	Dest string
}

func (p RsyncPusher) Push(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "rsync", "-vahP", path, p.Dest)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rsync to %s failed: %w: %s", p.Dest, err, out)
	}
	return nil
}

// FakePusher records pushes for tests
type FakePusher struct {
	Paths []string
	Err   error
}

func (p *FakePusher) Push(ctx context.Context, path string) error {
	p.Paths = append(p.Paths, path)
	return p.Err
}
