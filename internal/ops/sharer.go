package ops

import (
	"context"
	"os/exec"
)

// Sharer hands an exported file to an external sharing surface.
type Sharer interface {
	Available() bool
	Share(ctx context.Context, path string) error
}

// ExecSharer runs a configured command with the file path appended,
// e.g. ["xdg-open"] or ["open", "-R"].
type ExecSharer struct {
	Command []string
}

// NewExecSharer returns nil when command is empty, so the repository reports
// sharing as unavailable.
func NewExecSharer(command []string) Sharer {
	if len(command) == 0 {
		return nil
	}
	return &ExecSharer{Command: command}
}

// Available reports whether the command exists on PATH.
func (s *ExecSharer) Available() bool {
	if len(s.Command) == 0 {
		return false
	}
	_, err := exec.LookPath(s.Command[0])
	return err == nil
}

// Share runs the command and waits for it to exit.
func (s *ExecSharer) Share(ctx context.Context, path string) error {
	args := append(append([]string(nil), s.Command[1:]...), path)
	return exec.CommandContext(ctx, s.Command[0], args...).Run()
}
