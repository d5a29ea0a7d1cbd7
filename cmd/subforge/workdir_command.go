package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subforge/internal/workdir"
)

func newWorkdirCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workdir",
		Short: "List per-unit work directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := workdir.List(cfg.Paths.WorkDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No work directories under %s\n", displayPath(cfg.Paths.WorkDir))
				return nil
			}
			var total int64
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				total += e.Size
				rows = append(rows, []string{e.Name, humanize.Time(e.ModTime), humanize.IBytes(uint64(e.Size))})
			}
			spec := tableSpec{
				title:   fmt.Sprintf("%s (%s)", displayPath(cfg.Paths.WorkDir), humanize.IBytes(uint64(total))),
				headers: []string{"Unit", "Modified", "Size"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
			}
			fmt.Fprintln(out, spec.render(rows))
			return nil
		},
	}
	cmd.AddCommand(newWorkdirCleanCommand(ctx))
	return cmd
}

func newWorkdirCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		orphaned  bool
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale or orphaned work directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 && !orphaned {
				return errors.New("pass --older-than or --orphaned")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			var results []workdir.CleanResult
			if orphaned {
				p, err := ctx.loadProject()
				if err != nil {
					return err
				}
				results = append(results, workdir.CleanOrphaned(cmd.Context(), cfg.Paths.WorkDir, p.Units(), dryRun, logger))
			}
			if olderThan > 0 {
				results = append(results, workdir.CleanStale(cmd.Context(), cfg.Paths.WorkDir, olderThan, dryRun, logger))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}
			var removed, failed int
			for _, res := range results {
				for _, path := range res.Removed {
					removed++
					fmt.Fprintln(out, renderStatusLine(verb, statusInfo, displayPath(path), colorize))
				}
				for _, e := range res.Errors {
					failed++
					fmt.Fprintln(out, renderStatusLine("Failed", statusError, fmt.Sprintf("%s: %v", displayPath(e.Path), e.Error), colorize))
				}
			}
			fmt.Fprintf(out, "%s %d work directories\n", verb, removed)
			if failed > 0 {
				return fmt.Errorf("%d work directories could not be removed", failed)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove directories not modified within this duration")
	cmd.Flags().BoolVar(&orphaned, "orphaned", false, "Remove directories of units the project no longer lists")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Only print what would be removed")
	return cmd
}
