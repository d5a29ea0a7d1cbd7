// Package command runs the external media tools (mkvmerge, ffprobe) and
// reports their failures with the diagnostic output attached.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes name with args and returns its standard output. A non-zero
// exit is reported as *Error; Output is still returned so callers can read
// tools that print results alongside warnings.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Error is an external tool failure.
type Error struct {
	Tool     string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = lastLines(e.Stdout, 5)
	}
	if detail == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Run is the default Runner.
func Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	toolErr := &Error{
		Tool:     name,
		Args:     append([]string(nil), args...),
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	return stdout.Bytes(), toolErr
}

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.ExitCode
	}
	return -1
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
