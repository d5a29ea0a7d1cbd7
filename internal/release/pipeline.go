package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subforge/internal/ass"
	"subforge/internal/chapters"
	"subforge/internal/config"
	"subforge/internal/fileutil"
	"subforge/internal/history"
	"subforge/internal/logging"
	"subforge/internal/media/command"
	"subforge/internal/merge"
	"subforge/internal/mux"
	"subforge/internal/preflight"
	"subforge/internal/probe"
	"subforge/internal/project"
	"subforge/internal/script"
	"subforge/internal/selection"
	"subforge/internal/swap"
	"subforge/internal/workdir"
)

// Options wires a Pipeline.
type Options struct {
	Config  *config.Config
	Project *project.Project
	// History is optional; without it builds are not recorded.
	History *history.Store
	Logger  *slog.Logger
	// Runner replaces process execution for mkvmerge and ffprobe.
	Runner command.Runner
}

// Result summarizes a finished build.
type Result struct {
	RunID    string
	Unit     string
	Output   string
	Files    Files
	Tracks   int
	Chapters int
	Warnings []string
	Forced   selection.ForcedDecision
	Clean    script.CleanStats
	Swap     swap.Report
	Duration time.Duration
}

// Pipeline builds release units of one project.
type Pipeline struct {
	cfg      *config.Config
	project  *project.Project
	prober   *probe.Prober
	muxer    *mux.Muxer
	history  *history.Store
	logger   *slog.Logger
	assembly *assembler
}

// New validates the configuration and prepares the tools.
func New(opts Options) (*Pipeline, error) {
	if opts.Config == nil || opts.Project == nil {
		return nil, errors.New("release: config and project are required")
	}
	if err := opts.Config.EnsureDirectories(); err != nil {
		return nil, err
	}
	order, err := chapters.ParseOrder(opts.Config.Build.ChapterOrder)
	if err != nil {
		return nil, err
	}
	tools := opts.Config.Tools
	inspector, err := probe.NewInspector(tools.Prober, tools.Mkvmerge, tools.FFprobe, opts.Runner)
	if err != nil {
		return nil, err
	}
	logger := logging.NewComponentLogger(opts.Logger, "release")
	muxer := mux.NewMuxer(tools.Mkvmerge, opts.Logger)
	muxer.WithCommandRunner(opts.Runner)

	policy := script.DefaultCleanPolicy()
	policy.DropZero = opts.Config.Build.DropZeroDuration
	return &Pipeline{
		cfg:     opts.Config,
		project: opts.Project,
		prober:  probe.New(inspector, opts.Logger),
		muxer:   muxer,
		history: opts.History,
		logger:  logger,
		assembly: &assembler{
			project: opts.Project,
			policy:  policy,
			order:   order,
			logger:  logger,
		},
	}, nil
}

// Build produces the release for u and records it in history.
func (p *Pipeline) Build(ctx context.Context, u project.Unit) (*Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithUnit(logging.WithRunID(ctx, runID), u.ID)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	logger.Info("build started",
		logging.String(logging.FieldEventType, "build_start"),
		logging.String("kind", string(u.Kind)),
		logging.String("output", u.Output),
	)
	if p.history != nil {
		err := p.history.Record(ctx, history.Build{
			RunID:     runID,
			Unit:      u.ID,
			Project:   p.project.File,
			Output:    u.Output,
			StartedAt: started,
		})
		if err != nil {
			return nil, err
		}
	}

	res, err := p.build(ctx, logger, u)
	if res != nil {
		res.RunID = runID
		res.Duration = time.Since(started)
	}
	p.finish(ctx, logger, runID, res, err)

	if err != nil {
		logging.ErrorWithContext(logger, "build failed", "build_failure",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return nil, err
	}
	logger.Info("build completed",
		logging.String(logging.FieldEventType, "build_complete"),
		logging.String("output", res.Output),
		logging.Int("tracks", res.Tracks),
		logging.Int("chapters", res.Chapters),
		logging.Int("warnings", len(res.Warnings)),
		logging.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) build(ctx context.Context, logger *slog.Logger, u project.Unit) (*Result, error) {
	if err := preflight.Failed(preflight.RunAll(p.cfg, filepath.Dir(u.Output))); err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}
	for _, key := range u.Absent {
		attrs := logging.DecisionAttrs("optional_source", "skip", key+" matched no file")
		logger.Info("optional source absent", logging.Args(attrs...)...)
	}

	tracks := []probe.Track{}
	if u.Premux != "" {
		toolCtx, cancel := p.toolContext(ctx)
		probed, err := p.prober.Probe(toolCtx, u.Premux)
		cancel()
		if err != nil {
			return nil, err
		}
		tracks = probed
	}

	a := *p.assembly
	a.logger = logger
	scripts, err := a.assemble(u, tracks)
	if err != nil {
		return nil, err
	}

	files, err := p.write(u, scripts)
	if err != nil {
		return nil, err
	}
	fonts, err := mux.CollectAttachments(u.FontDirs, mux.FontExtensions)
	if err != nil {
		return nil, err
	}
	logger.Debug("fonts collected",
		logging.String(logging.FieldStep, "fonts"),
		logging.Int("fonts", len(fonts)),
		logging.Strings("font_dirs", u.FontDirs),
	)

	manifest := manifestFor(p.project, u, tracks, files, fonts, p.cfg.Build.Compression)
	toolCtx, cancel := p.toolContext(ctx)
	defer cancel()
	muxed, err := p.muxer.Mux(toolCtx, manifest)
	if err != nil {
		return nil, err
	}
	return &Result{
		Unit:     u.ID,
		Output:   muxed.Output,
		Files:    files,
		Tracks:   trackCount(manifest),
		Chapters: len(scripts.Chapters),
		Warnings: muxed.Warnings,
		Forced:   scripts.Decision,
		Clean:    scripts.Clean,
		Swap:     scripts.Swap,
	}, nil
}

// write stores the unit's scripts and chapters under the work directory.
func (p *Pipeline) write(u project.Unit, s *Scripts) (Files, error) {
	dir := p.WorkDir(u.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create work directory: %w", err)
	}
	var files Files
	for _, out := range []struct {
		dst    *string
		name   string
		script *script.Script
	}{
		{&files.Full, "full.ass", s.Full},
		{&files.Honorifics, "honorifics.ass", s.Honorifics},
		{&files.Forced, "forced.ass", s.Forced},
	} {
		if out.script == nil {
			continue
		}
		path := filepath.Join(dir, out.name)
		if err := ass.WriteFile(path, out.script); err != nil {
			return Files{}, err
		}
		*out.dst = path
	}
	if len(s.Chapters) > 0 {
		path := filepath.Join(dir, "chapters.xml")
		err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
			return chapters.WriteXML(w, s.Chapters, p.project.Chapters.Language)
		})
		if err != nil {
			return Files{}, fmt.Errorf("write chapters: %w", err)
		}
		files.Chapters = path
	}
	return files, nil
}

// WorkDir is where the intermediate files of unit are written.
func (p *Pipeline) WorkDir(unit string) string {
	return workdir.Dir(p.cfg.Paths.WorkDir, unit)
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, runID string, res *Result, buildErr error) {
	if p.history == nil {
		return
	}
	outcome := history.Outcome{Err: buildErr}
	if res != nil {
		outcome.Output = res.Output
		outcome.Tracks = res.Tracks
		outcome.Warnings = len(res.Warnings)
	}
	if err := p.history.Finish(context.WithoutCancel(ctx), runID, outcome); err != nil {
		logging.WarnWithContext(logger, "failed to record build outcome", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
			logging.String(logging.FieldImpact, "build history is incomplete"),
		)
	}
}

func (p *Pipeline) toolContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := p.cfg.ToolTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// BuildAll builds units with at most parallelism builds running at once.
// Every unit is attempted; failures are joined into the returned error and
// the matching result is nil.
func (p *Pipeline) BuildAll(ctx context.Context, units []project.Unit, parallelism int) ([]*Result, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	results := make([]*Result, len(units))
	errs := make([]error, len(units))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", u.ID, err)
				return nil
			}
			res, err := p.Build(ctx, u)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", u.ID, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

func hintFor(err error) string {
	var (
		markupErr *swap.MarkupError
		syncErr   *merge.SyncError
		orderErr  *chapters.OrderError
		toolErr   *command.Error
		parseErr  *ass.ParseError
	)
	switch {
	case errors.As(err, &markupErr):
		return "fix the swap markup on the reported line"
	case errors.As(err, &syncErr):
		return "check the sync markers in the fragment and the dialogue script"
	case errors.As(err, &orderErr):
		return `reorder the chapter markers or set build.chapter_order = "sort"`
	case errors.As(err, &parseErr):
		return "repair the script at the reported line"
	case errors.Is(err, mux.ErrOutputLocked):
		return "another build is writing this release; wait for it to finish"
	case errors.As(err, &toolErr):
		return "inspect the tool output in the error"
	}
	return "check logs for details"
}
