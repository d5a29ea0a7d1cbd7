package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/history"
)

type buildView struct {
	RunID      string     `json:"run_id"`
	Unit       string     `json:"unit"`
	Project    string     `json:"project"`
	Output     string     `json:"output,omitempty"`
	Status     string     `json:"status"`
	Tracks     int        `json:"tracks"`
	Warnings   int        `json:"warnings"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func newBuildView(b history.Build) buildView {
	return buildView{
		RunID:      b.RunID,
		Unit:       b.Unit,
		Project:    b.Project,
		Output:     b.Output,
		Status:     string(b.Status),
		Tracks:     b.Tracks,
		Warnings:   b.Warnings,
		Error:      b.Error,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		unit   string
		status string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := history.Filter{Unit: strings.TrimSpace(unit), Limit: limit}
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = st
			}
			store, err := ctx.ensureHistory(cmd.Context())
			if err != nil {
				return err
			}
			builds, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				views := make([]buildView, 0, len(builds))
				for _, b := range builds {
					views = append(views, newBuildView(b))
				}
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(builds) == 0 {
				fmt.Fprintln(out, "No builds recorded")
				return nil
			}
			rows := make([][]string, 0, len(builds))
			for _, b := range builds {
				rows = append(rows, []string{
					shortRunID(b.RunID),
					b.Unit,
					string(b.Status),
					b.StartedAt.Local().Format("2006-01-02 15:04:05"),
					formatBuildDuration(b),
					strconv.Itoa(b.Tracks),
					strconv.Itoa(b.Warnings),
					displayPath(b.Output),
				})
			}
			spec := tableSpec{
				headers: []string{"Run", "Unit", "Status", "Started", "Took", "Tracks", "Warnings", "Output"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			}
			fmt.Fprintln(out, spec.render(rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&unit, "unit", "u", "", "Only builds of this unit")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only builds in this status (running, succeeded, failed, interrupted)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows; 0 shows all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one build in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureHistory(cmd.Context())
			if err != nil {
				return err
			}
			b, err := findBuild(cmd, store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Build "+b.RunID, colorize) {
				fmt.Fprintln(out, line)
			}
			kind := statusInfo
			switch b.Status {
			case history.StatusSucceeded:
				kind = statusOK
			case history.StatusInterrupted:
				kind = statusWarn
			case history.StatusFailed:
				kind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Status", kind, string(b.Status), colorize))
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Unit:", b.Unit)
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Project:", b.Project)
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Output:", b.Output)
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Started:", b.StartedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Took:", formatBuildDuration(*b))
			fmt.Fprintf(out, "%s%-*s %d\n", statusIndent, statusLabelWidth, "Tracks:", b.Tracks)
			fmt.Fprintf(out, "%s%-*s %d\n", statusIndent, statusLabelWidth, "Warnings:", b.Warnings)
			if b.Error != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, b.Error, colorize))
			}
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished builds older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := ctx.ensureHistory(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d builds\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}

// findBuild accepts a full run id or a unique prefix of one.
func findBuild(cmd *cobra.Command, store *history.Store, id string) (*history.Build, error) {
	id = strings.TrimSpace(id)
	b, err := store.Get(cmd.Context(), id)
	if err == nil || !errors.Is(err, history.ErrNotFound) {
		return b, err
	}
	builds, err := store.List(cmd.Context(), history.Filter{})
	if err != nil {
		return nil, err
	}
	var match *history.Build
	for i := range builds {
		if !strings.HasPrefix(builds[i].RunID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
		}
		match = &builds[i]
	}
	if match == nil {
		return nil, fmt.Errorf("%s: %w", id, history.ErrNotFound)
	}
	return match, nil
}

func parseStatus(value string) (history.Status, error) {
	st := history.Status(strings.ToLower(strings.TrimSpace(value)))
	switch st {
	case history.StatusRunning, history.StatusSucceeded, history.StatusFailed, history.StatusInterrupted:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatBuildDuration(b history.Build) string {
	d := b.Duration()
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}
