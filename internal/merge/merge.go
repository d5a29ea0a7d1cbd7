// Package merge combines subtitle fragments into a single release timeline.
//
// The first source is the anchor. Later sources are shifted by the offset
// their SyncSpec yields (or not at all) and appended in declaration order.
// Merge never drops or reorders lines; cleaning is a separate stage.
package merge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"subforge/internal/script"
)

// Source is one fragment to merge.
type Source struct {
	Name   string
	Script *script.Script
	// Sync aligns the fragment to the anchor. Markers is consulted when Sync
	// is nil. With neither the fragment is taken as already absolute.
	Sync        *SyncSpec
	Markers     *SyncMarkers
	LayerOffset int
}

// Options overrides script-level metadata on the merged result. Zero values
// leave the anchor's metadata alone.
type Options struct {
	Title string
	// PlayResX/PlayResY force the canvas. Otherwise the anchor's canvas is
	// kept and FallbackResX/FallbackResY apply when the anchor has none.
	PlayResX     int
	PlayResY     int
	FallbackResX int
	FallbackResY int
	// WrapStyle and ScaledBorderAndShadow are applied when non-nil.
	WrapStyle             *int
	ScaledBorderAndShadow *bool
	// Fields are set on the merged info block, replacing same-named keys.
	Fields []script.Field

	IncludeExtraData      bool
	IncludeProjectGarbage bool
}

// Merge builds the combined script. Inputs are not modified.
func Merge(sources []Source, opts Options) (*script.Script, error) {
	if len(sources) == 0 {
		return nil, errors.New("merge: no sources")
	}
	for i, src := range sources {
		if src.Script == nil {
			return nil, fmt.Errorf("merge: source %d (%s) has no script", i, sourceName(src, i))
		}
	}

	anchor := sources[0].Script
	out := anchor.Clone()
	out.Sections = filterSections(out.Sections, opts)

	total := 0
	for _, src := range sources {
		total += len(src.Script.Events)
	}
	events := make([]script.Event, 0, total)
	events = appendShifted(events, anchor.Events, 0, sources[0].LayerOffset)

	for i, src := range sources[1:] {
		idx := i + 1
		name := sourceName(src, idx)
		offset, err := fragmentOffset(name, anchor, src)
		if err != nil {
			return nil, err
		}
		events = appendShifted(events, src.Script.Events, offset, src.LayerOffset)
		out.Sections = mergeSections(out.Sections, filterSections(src.Script.Sections, opts))
	}
	out.Events = events

	applyInfo(&out.Info, opts)
	return out, nil
}

func sourceName(src Source, idx int) string {
	if strings.TrimSpace(src.Name) != "" {
		return src.Name
	}
	return fmt.Sprintf("source %d", idx)
}

func fragmentOffset(name string, anchor *script.Script, src Source) (time.Duration, error) {
	spec := src.Sync
	if spec == nil && src.Markers != nil {
		resolved, err := ResolveSync(name, anchor, src.Script, *src.Markers)
		if err != nil {
			return 0, err
		}
		spec = &resolved
	}
	if spec == nil {
		return 0, nil
	}
	return Offset(name, anchor.Events, src.Script.Events, *spec)
}

func appendShifted(dst, events []script.Event, offset time.Duration, layer int) []script.Event {
	for _, ev := range events {
		ev.Start += offset
		ev.End += offset
		ev.Layer += layer
		dst = append(dst, ev)
	}
	return dst
}

func filterSections(sections []script.Section, opts Options) []script.Section {
	out := make([]script.Section, 0, len(sections))
	for _, sec := range sections {
		switch {
		case strings.EqualFold(sec.Name, script.SectionExtraData) && !opts.IncludeExtraData:
			continue
		case strings.EqualFold(sec.Name, script.SectionProjectGarbage) && !opts.IncludeProjectGarbage:
			continue
		}
		out = append(out, sec)
	}
	return out
}

// mergeSections folds a later source's sections into the merged set. Styles
// are appended when their name is new; the first definition wins. Other
// sections are concatenated by name, or appended when unseen.
func mergeSections(dst, src []script.Section) []script.Section {
	for _, sec := range src {
		pos := -1
		for i := range dst {
			if strings.EqualFold(dst[i].Name, sec.Name) || (dst[i].IsStyles() && sec.IsStyles()) {
				pos = i
				break
			}
		}
		if pos < 0 {
			dst = append(dst, script.Section{Name: sec.Name, Lines: append([]string(nil), sec.Lines...), AfterEvents: sec.AfterEvents})
			continue
		}
		if sec.IsStyles() {
			dst[pos].Lines = mergeStyles(dst[pos].Lines, sec.Lines)
			continue
		}
		dst[pos].Lines = append(dst[pos].Lines, sec.Lines...)
	}
	return dst
}

func mergeStyles(existing, incoming []string) []string {
	known := make(map[string]struct{})
	for _, line := range existing {
		if name, ok := script.StyleName(line); ok {
			known[name] = struct{}{}
		}
	}
	for _, line := range incoming {
		name, ok := script.StyleName(line)
		if !ok {
			continue
		}
		if _, dup := known[name]; dup {
			continue
		}
		known[name] = struct{}{}
		existing = append(existing, line)
	}
	return existing
}

func applyInfo(info *script.Info, opts Options) {
	if opts.Title != "" {
		info.Title = opts.Title
	}
	switch {
	case opts.PlayResX > 0 && opts.PlayResY > 0:
		info.PlayResX, info.PlayResY = opts.PlayResX, opts.PlayResY
	case !info.HasResolution() && opts.FallbackResX > 0 && opts.FallbackResY > 0:
		info.PlayResX, info.PlayResY = opts.FallbackResX, opts.FallbackResY
	}
	if opts.WrapStyle != nil {
		info.WrapStyle = *opts.WrapStyle
	}
	if opts.ScaledBorderAndShadow != nil {
		v := *opts.ScaledBorderAndShadow
		info.ScaledBorderAndShadow = &v
	}
	for _, f := range opts.Fields {
		info.Set(f.Key, f.Value)
	}
}
