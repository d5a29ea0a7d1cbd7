package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/project"
	"subforge/internal/release"
)

type buildFlags struct {
	all      bool
	parallel int
	dryRun   bool
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build [episode...]",
		Short: "Build episode releases",
		Long: "Merge, clean, swap and mux the listed episodes of the project.\n" +
			"With --all every episode in the project is built.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, ctx, project.KindEpisode, args, flags)
		},
	}
	addBuildFlags(cmd, &flags, "episode")
	return cmd
}

func newNCCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "nc [id...]",
		Short: "Build creditless OP/ED releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, ctx, project.KindNC, args, flags)
		},
	}
	addBuildFlags(cmd, &flags, "creditless unit")
	return cmd
}

func addBuildFlags(cmd *cobra.Command, flags *buildFlags, noun string) {
	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "Build every "+noun+" in the project")
	cmd.Flags().IntVarP(&flags.parallel, "parallel", "j", 0, "Concurrent builds (default build.parallelism)")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Resolve sources and print them without building")
}

func runBuild(cmd *cobra.Command, ctx *commandContext, kind project.Kind, ids []string, flags buildFlags) error {
	proj, err := ctx.loadProject()
	if err != nil {
		return err
	}
	ids, err = selectUnits(proj, kind, ids, flags.all)
	if err != nil {
		return err
	}
	units := make([]project.Unit, 0, len(ids))
	for _, id := range ids {
		u, err := proj.Resolve(id)
		if err != nil {
			return err
		}
		units = append(units, u)
	}

	out := cmd.OutOrStdout()
	if flags.dryRun {
		for _, u := range units {
			fmt.Fprintln(out, renderUnit(u))
		}
		return nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd)
	if err != nil {
		return err
	}
	store, err := ctx.ensureHistory(cmd.Context())
	if err != nil {
		return err
	}
	pipeline, err := release.New(release.Options{
		Config:  cfg,
		Project: proj,
		History: store,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	parallel := flags.parallel
	if parallel <= 0 {
		parallel = cfg.Build.Parallelism
	}
	results, buildErr := pipeline.BuildAll(cmd.Context(), units, parallel)
	printResults(out, units, results)
	if buildErr != nil {
		failed := 0
		for _, r := range results {
			if r == nil {
				failed++
			}
		}
		return fmt.Errorf("%d of %d builds failed: %w", failed, len(units), buildErr)
	}
	return nil
}

// selectUnits checks ids against the project lists for kind. --all takes
// the whole list and excludes explicit ids.
func selectUnits(p *project.Project, kind project.Kind, ids []string, all bool) ([]string, error) {
	known := p.Episodes
	noun := "episode"
	if kind == project.KindNC {
		known = p.NCs
		noun = "nc"
	}
	switch {
	case all && len(ids) > 0:
		return nil, errors.New("pass unit ids or --all, not both")
	case all:
		if len(known) == 0 {
			return nil, fmt.Errorf("project lists no %s units", noun)
		}
		return append([]string(nil), known...), nil
	case len(ids) == 0:
		return nil, fmt.Errorf("name at least one %s or pass --all", noun)
	}
	for _, id := range ids {
		if !slices.Contains(known, id) {
			return nil, fmt.Errorf("%q is not a %s in %s", id, noun, displayPath(p.File))
		}
	}
	return ids, nil
}

func renderUnit(u project.Unit) string {
	rows := [][]string{
		{"dialogue", displayPath(u.Dialogue)},
		{"op", displayPath(u.OP)},
		{"ed", displayPath(u.ED)},
		{"extra", joinPaths(u.Extra)},
		{"ins", joinPaths(u.INS)},
		{"ts", joinPaths(u.TS)},
		{"forced", displayPath(u.Forced)},
		{"chapters", displayPath(u.Chapters)},
		{"premux", displayPath(u.Premux)},
		{"fonts", joinPaths(u.FontDirs)},
		{"output", displayPath(u.Output)},
	}
	if len(u.Absent) > 0 {
		rows = append(rows, []string{"absent", strings.Join(u.Absent, ", ")})
	}
	spec := tableSpec{
		title:   fmt.Sprintf("%s %s: %s", u.Kind, u.ID, u.Title),
		headers: []string{"Source", "Path"},
		wrap:    map[int]int{2: 90},
	}
	return spec.render(rows)
}

func joinPaths(paths []string) string {
	shown := make([]string, len(paths))
	for i, p := range paths {
		shown[i] = displayPath(p)
	}
	return strings.Join(shown, "\n")
}

func printResults(out io.Writer, units []project.Unit, results []*release.Result) {
	rows := make([][]string, 0, len(units))
	for i, u := range units {
		var r *release.Result
		if i < len(results) {
			r = results[i]
		}
		if r == nil {
			rows = append(rows, []string{u.ID, "failed", "", "", "", "", ""})
			continue
		}
		rows = append(rows, []string{
			u.ID,
			"ok",
			strconv.Itoa(r.Tracks),
			strconv.Itoa(r.Chapters),
			yesNo(r.Forced.Include),
			strconv.Itoa(len(r.Warnings)),
			displayPath(r.Output),
		})
	}
	spec := tableSpec{
		headers: []string{"Unit", "Status", "Tracks", "Chapters", "Forced", "Warnings", "Output"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft},
	}
	fmt.Fprintln(out, spec.render(rows))
}
