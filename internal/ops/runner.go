package ops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts external command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner implements CommandRunner by invoking the command directly.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s exited %d: %s", name, exitErr.ExitCode(), firstLine(string(out)))
		}
		return string(out), fmt.Errorf("exec %s: %w", name, err)
	}
	return string(out), nil
}

// firstLine trims output to its first non-empty line for error messages.
func firstLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return "(no output)"
}
