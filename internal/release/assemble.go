package release

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"subforge/internal/ass"
	"subforge/internal/chapters"
	"subforge/internal/logging"
	"subforge/internal/merge"
	"subforge/internal/probe"
	"subforge/internal/project"
	"subforge/internal/script"
	"subforge/internal/selection"
	"subforge/internal/swap"
)

// Scripts are the in-memory products of a unit before anything is written.
type Scripts struct {
	Full       *script.Script
	Honorifics *script.Script
	Forced     *script.Script
	Chapters   []chapters.Chapter

	Clean      script.CleanStats
	Swap       swap.Report
	ForcedSwap swap.Report
	Decision   selection.ForcedDecision
}

type assembler struct {
	project *project.Project
	policy  script.CleanPolicy
	order   chapters.Order
	logger  *slog.Logger
}

// assemble turns the unit's sources into release scripts. tracks is the
// canonical premux track list, empty when there is no premux.
func (a *assembler) assemble(u project.Unit, tracks []probe.Track) (*Scripts, error) {
	dialogue, err := ass.ReadFile(u.Dialogue)
	if err != nil {
		return nil, fmt.Errorf("load dialogue: %w", err)
	}
	if u.Kind == project.KindNC {
		return a.assembleNC(dialogue)
	}

	sources := []merge.Source{{Name: "dialogue", Script: dialogue}}
	for _, frag := range []struct {
		name, path string
		sync       *project.Marker
	}{
		{"op", u.OP, u.OPSync},
		{"ed", u.ED, u.EDSync},
	} {
		if frag.path == "" {
			continue
		}
		s, err := ass.ReadFile(frag.path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", frag.name, err)
		}
		src := merge.Source{Name: frag.name, Script: s}
		if frag.sync != nil {
			src.Markers = &merge.SyncMarkers{Source: frag.sync.Source, Target: frag.sync.Target}
		}
		sources = append(sources, src)
	}
	for _, path := range concat(u.Extra, u.INS, u.TS) {
		s, err := ass.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		sources = append(sources, merge.Source{Name: filepath.Base(path), Script: s})
	}

	merged, err := merge.Merge(sources, a.episodeOptions())
	if err != nil {
		return nil, err
	}
	a.logger.Debug("fragments merged",
		logging.String(logging.FieldStep, "merge"),
		logging.Int("sources", len(sources)),
		logging.Int("lines", len(merged.Events)),
	)

	out := &Scripts{}
	out.Full, out.Clean = script.Clean(merged, a.policy)
	a.logCleaned(out.Clean, len(out.Full.Events))

	if out.Chapters, err = a.loadChapters(u, dialogue, a.project.Chapters.Marker); err != nil {
		return nil, err
	}

	swapOpts, err := a.project.Swap.Options("swap")
	if err != nil {
		return nil, err
	}
	if out.Honorifics, out.Swap, err = swap.Apply(out.Full, swapOpts); err != nil {
		return nil, fmt.Errorf("honorifics: %w", err)
	}
	a.logger.Debug("honorifics swapped",
		logging.String(logging.FieldStep, "swap"),
		logging.Int("spans", out.Swap.Spans),
		logging.Int("whole_lines", out.Swap.WholeLines),
		logging.Int("changed_lines", out.Swap.Changed),
	)

	out.Decision = selection.Decide(tracks, u.Forced != "")
	attrs := append(logging.DecisionAttrs("forced_track", out.Decision.Result, out.Decision.Reason),
		logging.String(logging.FieldStep, "forced"),
		logging.Int("audio_tracks", len(probe.Filter(tracks, probe.TypeAudio))),
	)
	a.logger.Info("forced track decision", logging.Args(attrs...)...)
	if out.Decision.Include {
		if out.Forced, out.ForcedSwap, err = a.forced(u.Forced, out.Full); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *assembler) assembleNC(subs *script.Script) (*Scripts, error) {
	merged, err := merge.Merge([]merge.Source{{Name: "nc", Script: subs}}, a.ncOptions())
	if err != nil {
		return nil, err
	}
	out := &Scripts{Decision: selection.ForcedDecision{Result: selection.ResultSkip, Reason: "creditless units carry no forced track"}}
	out.Full, out.Clean = script.Clean(merged, a.policy)
	a.logCleaned(out.Clean, len(out.Full.Events))
	if out.Chapters, err = a.extractChapters(out.Full, a.project.Chapters.NCMarker); err != nil {
		return nil, err
	}
	return out, nil
}

// forced builds the signs/songs track: the cleaned release script without
// dialogue styles, merged with the forced source, then its own swap pass.
func (a *assembler) forced(path string, full *script.Script) (*script.Script, swap.Report, error) {
	src, err := ass.ReadFile(path)
	if err != nil {
		return nil, swap.Report{}, fmt.Errorf("load forced: %w", err)
	}
	dialogueStyles, err := a.project.DialoguePattern()
	if err != nil {
		return nil, swap.Report{}, err
	}
	signs := script.FilterStyles(full, dialogueStyles, false)
	merged, err := merge.Merge([]merge.Source{
		{Name: "signs", Script: signs},
		{Name: "forced", Script: src},
	}, a.episodeOptions())
	if err != nil {
		return nil, swap.Report{}, err
	}
	cleaned, _ := script.Clean(merged, a.policy)
	opts, err := a.project.Forced.Options("forced")
	if err != nil {
		return nil, swap.Report{}, err
	}
	forced, report, err := swap.Apply(cleaned, opts)
	if err != nil {
		return nil, swap.Report{}, fmt.Errorf("forced: %w", err)
	}
	a.logger.Debug("forced track assembled",
		logging.String(logging.FieldStep, "forced"),
		logging.Int("signs", len(signs.Events)),
		logging.Int("lines", len(forced.Events)),
		logging.Int("changed_lines", report.Changed),
	)
	return forced, report, nil
}

// loadChapters reads the unit's chapter script, reusing the dialogue script when
// both point at the same file.
func (a *assembler) loadChapters(u project.Unit, dialogue *script.Script, marker string) ([]chapters.Chapter, error) {
	src := dialogue
	switch u.Chapters {
	case "":
		return nil, nil
	case u.Dialogue:
	default:
		s, err := ass.ReadFile(u.Chapters)
		if err != nil {
			return nil, fmt.Errorf("load chapters: %w", err)
		}
		src = s
	}
	return a.extractChapters(src, marker)
}

func (a *assembler) extractChapters(s *script.Script, marker string) ([]chapters.Chapter, error) {
	chs, err := chapters.Extract(s, marker, a.order)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("chapters extracted",
		logging.String(logging.FieldStep, "chapters"),
		logging.String("marker", marker),
		logging.Int("chapters", len(chs)),
	)
	return chs, nil
}

func (a *assembler) logCleaned(stats script.CleanStats, kept int) {
	a.logger.Debug("script cleaned",
		logging.String(logging.FieldStep, "clean"),
		logging.Int("removed", stats.Removed()),
		logging.Int("scaffold", stats.Scaffold),
		logging.Int("blank", stats.Blank),
		logging.Int("negative_duration", stats.NegativeDuration),
		logging.Int("before_zero", stats.BeforeZero),
		logging.Int("zero_duration", stats.ZeroDuration),
		logging.Int("lines", kept),
	)
}

func (a *assembler) episodeOptions() merge.Options {
	wrap := script.WrapNone
	scaled := true
	return merge.Options{
		Title:                 a.project.Release.Group,
		WrapStyle:             &wrap,
		ScaledBorderAndShadow: &scaled,
	}
}

func (a *assembler) ncOptions() merge.Options {
	scaled := true
	return merge.Options{
		Title:                 a.project.Release.Group,
		ScaledBorderAndShadow: &scaled,
		Fields:                []script.Field{{Key: "Original Script", Value: a.project.Release.Group}},
	}
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
