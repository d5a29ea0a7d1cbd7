// Package mux assembles release containers with mkvmerge.
package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"subforge/internal/logging"
	"subforge/internal/media/command"
)

// mkvmerge command and binary name.
const mkvmergeCommand = "mkvmerge"

// ToolError is an mkvmerge failure with its diagnostic output.
type ToolError = command.Error

// ErrOutputLocked is returned when another build holds the output lock.
var ErrOutputLocked = errors.New("output is locked by another build")

// Result reports the outcome of a mux.
type Result struct {
	Output   string
	Args     []string
	Warnings []string
}

// Muxer runs mkvmerge for a Manifest.
type Muxer struct {
	binary string
	logger *slog.Logger
	run    command.Runner
}

// NewMuxer constructs a muxer. An empty binary uses mkvmerge from PATH.
func NewMuxer(binary string, logger *slog.Logger) *Muxer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = mkvmergeCommand
	}
	return &Muxer{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "muxer"),
		run:    command.Run,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r command.Runner) {
	if m != nil && r != nil {
		m.run = r
	}
}

// Mux writes the manifest's output. The output path is locked for the
// duration, mkvmerge writes a temporary sibling, and the result is renamed
// into place only on success. Exit status 1 means mkvmerge finished with
// warnings; anything higher is a ToolError.
func (m *Muxer) Mux(ctx context.Context, manifest Manifest) (Result, error) {
	if m == nil {
		return Result{}, fmt.Errorf("muxer not initialized")
	}
	if err := manifest.Validate(); err != nil {
		return Result{}, err
	}
	for _, in := range manifest.Inputs {
		if _, err := os.Stat(in.Path); err != nil {
			return Result{}, fmt.Errorf("mux input not found %q: %w", in.Path, err)
		}
	}

	output := manifest.Output
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return Result{}, fmt.Errorf("%s: %w", output, ErrOutputLocked)
	}
	defer func() { _ = lock.Unlock() }()

	tmpPath := filepath.Join(dir, ".mux-"+filepath.Base(output)+".tmp")
	staged := manifest
	staged.Output = tmpPath
	args := BuildArgs(staged)

	m.logger.Debug("executing mkvmerge",
		logging.String("output", output),
		logging.Int("input_count", len(manifest.Inputs)),
		logging.Int("attachment_count", len(manifest.Attachments)),
		logging.Bool("chapters", manifest.Chapters != nil),
	)

	stdout, runErr := m.run(ctx, m.binary, args...)
	var warnings []string
	if runErr != nil {
		if command.ExitCode(runErr) != 1 {
			_ = os.Remove(tmpPath)
			return Result{}, fmt.Errorf("mkvmerge failed: %w", runErr)
		}
		warnings = warningLines(stdout, runErr)
		for _, w := range warnings {
			logging.WarnWithContext(m.logger, "mkvmerge reported a warning", "mux_warning",
				logging.String("output", output),
				logging.String("warning", w),
				logging.String(logging.FieldErrorHint, "inspect the inputs named in the warning"),
				logging.String(logging.FieldImpact, "release muxed but may need review"),
			)
		}
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return Result{}, fmt.Errorf("mkvmerge did not produce output file: %w", err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, fmt.Errorf("failed to move muxed file into place: %w", err)
	}

	m.logger.Info("release muxed",
		logging.String(logging.FieldEventType, "mux_complete"),
		logging.String("output", output),
		logging.Int("warnings", len(warnings)),
	)
	return Result{Output: output, Args: args, Warnings: warnings}, nil
}

func warningLines(stdout []byte, err error) []string {
	var text string
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		text = toolErr.Stdout + "\n" + toolErr.Stderr
	}
	if strings.TrimSpace(text) == "" {
		text = string(stdout)
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Warning:") {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		out = append(out, "mkvmerge exited with warnings")
	}
	return out
}
