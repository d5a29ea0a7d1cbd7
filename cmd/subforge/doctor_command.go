package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/deps"
	"subforge/internal/media/command"
	"subforge/internal/preflight"
)

const versionCheckTimeout = 10 * time.Second

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), cfg, command.Run)
		},
	}
}

func runDoctor(ctx context.Context, out io.Writer, cfg *config.Config, run command.Runner) error {
	colorize := shouldColorize(out)

	reqs := deps.Requirements(cfg)
	statuses := deps.CheckBinaries(reqs)
	versionCtx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	deps.DetectVersions(versionCtx, run, reqs, statuses)
	cancel()

	for _, line := range renderSectionHeader("Tools", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(statuses, colorize) {
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Directories", colorize) {
		fmt.Fprintln(out, line)
	}
	results := preflight.RunAll(cfg, "")
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}

	missing := deps.Missing(statuses)
	var problems []string
	for _, s := range missing {
		problems = append(problems, s.Name)
	}
	if err := preflight.Failed(results); err != nil {
		problems = append(problems, "directories")
	}
	if len(problems) > 0 {
		return errors.New("doctor found problems: " + strings.Join(problems, ", "))
	}
	return nil
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := deps.Missing(statuses)
	if len(missing) == 0 {
		lines = append(lines, renderStatusLine("Summary", statusOK, "all required tools found", colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d required tools missing", len(missing)), colorize))
	}
	for _, s := range statuses {
		switch {
		case s.Available:
			msg := "Ready (command: " + s.Command + ")"
			if s.Version != "" {
				msg += " " + s.Version
			}
			lines = append(lines, renderStatusLine(s.Name, statusOK, msg, colorize))
		case s.Optional:
			lines = append(lines, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
		default:
			lines = append(lines, renderStatusLine(s.Name, statusError, s.Detail, colorize))
		}
	}
	return lines
}
