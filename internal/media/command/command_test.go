package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestRunSuccess(t *testing.T) {
	tool := writeStub(t, "echo \"$1\"\n")
	out, err := Run(context.Background(), tool, "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Fatalf("stdout = %q", out)
	}
}

func TestRunFailureCarriesOutput(t *testing.T) {
	tool := writeStub(t, "echo partial\necho 'Error: broken input' >&2\nexit 2\n")
	out, err := Run(context.Background(), tool, "in.mkv")
	var toolErr *Error
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if toolErr.ExitCode != 2 || ExitCode(err) != 2 {
		t.Fatalf("exit code = %d", toolErr.ExitCode)
	}
	if !strings.Contains(toolErr.Error(), "broken input") {
		t.Fatalf("error lacks stderr: %v", toolErr)
	}
	if strings.TrimSpace(string(out)) != "partial" || toolErr.Args[0] != "in.mkv" {
		t.Fatalf("stdout/args not kept: %q %v", out, toolErr.Args)
	}
}

func TestErrorFallsBackToStdout(t *testing.T) {
	err := &Error{Tool: "mkvmerge", Err: errors.New("exit status 2"), Stdout: "a\nb\nError: no space left\n"}
	if !strings.HasSuffix(err.Error(), "Error: no space left") {
		t.Fatalf("Error() = %q", err.Error())
	}
	if ExitCode(errors.New("plain")) != -1 {
		t.Fatal("plain errors have no exit code")
	}
}
