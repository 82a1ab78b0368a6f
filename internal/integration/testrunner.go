package integration

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// ShellTestRunner runs a verification command through the shell inside
// the repository, killing it when the timeout elapses.
type ShellTestRunner struct {
	repoPath string
}

// NewShellTestRunner creates a ShellTestRunner rooted at repoPath.
func NewShellTestRunner(repoPath string) *ShellTestRunner {
	return &ShellTestRunner{repoPath: repoPath}
}

// Run executes command with sh -c. timedOut is true when the deadline
// killed the run, which callers treat differently from a plain failure.
func (r *ShellTestRunner) Run(command string, timeout time.Duration) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.repoPath

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return buf.String(), true, err
	}
	return buf.String(), false, err
}
