package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"subforge/internal/textutil"
)

// ErrUnknownUnit is returned when resolving an id the project does not list.
var ErrUnknownUnit = errors.New("unit not listed in project")

// Kind distinguishes episodes from creditless units.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindNC      Kind = "nc"
)

// Marker names the start and target sync lines of a fragment.
type Marker struct {
	Source string
	Target string
}

// Unit is one release unit with every template expanded and every optional
// source either resolved to an existing path or left empty.
type Unit struct {
	ID    string
	Kind  Kind
	Title string

	Dialogue string
	OP       string
	ED       string
	OPSync   *Marker
	EDSync   *Marker
	Extra    []string
	INS      []string
	TS       []string
	Forced   string
	Chapters string
	Premux   string

	FontDirs []string
	Output   string

	// Absent lists configured optional sources that matched no file.
	Absent []string
}

// Units lists every episode followed by every NC id.
func (p *Project) Units() []string {
	return append(append([]string(nil), p.Episodes...), p.NCs...)
}

// Resolve expands the templates for id, which must be listed under episodes
// or ncs. A missing dialogue (or NC subs) file is an error; other sources
// that match nothing are recorded in Unit.Absent.
func (p *Project) Resolve(id string) (Unit, error) {
	id = strings.TrimSpace(id)
	switch {
	case slices.Contains(p.Episodes, id):
		return p.resolveEpisode(id)
	case slices.Contains(p.NCs, id):
		return p.resolveNC(id)
	}
	return Unit{}, fmt.Errorf("%q: %w", id, ErrUnknownUnit)
}

func (p *Project) resolveEpisode(id string) (Unit, error) {
	r := resolver{p: p, id: id}
	u := Unit{
		ID:     id,
		Kind:   KindEpisode,
		Title:  r.expand(p.Release.Title),
		Output: r.path(p.Paths.MuxOut),
	}
	var err error
	if u.Dialogue, err = r.required("dialogue", p.Paths.Dialogue); err != nil {
		return Unit{}, err
	}
	u.OP = r.optional("op", p.Paths.OP)
	u.ED = r.optional("ed", p.Paths.ED)
	if s, ok := p.SyncFor(FragmentOP); ok && u.OP != "" {
		u.OPSync = &Marker{Source: s.Source, Target: s.Target}
	}
	if s, ok := p.SyncFor(FragmentED); ok && u.ED != "" {
		u.EDSync = &Marker{Source: s.Source, Target: s.Target}
	}
	u.Extra = r.all("extra", []string{p.Paths.Extra})
	u.INS = r.all("ins", p.Paths.INS)
	u.TS = r.all("ts", p.Paths.TS)
	u.Forced = r.optional("forced", p.Paths.Forced)
	u.Chapters = r.optional("chapters", p.Paths.Chapters)
	u.Premux = r.optional("premux", p.Paths.Premux)

	u.FontDirs = r.dirs(p.Paths.CommonFonts, p.Paths.Fonts)
	if u.OP != "" {
		u.FontDirs = append(u.FontDirs, r.dirs(p.Paths.OPFonts)...)
	}
	if u.ED != "" {
		u.FontDirs = append(u.FontDirs, r.dirs(p.Paths.EDFonts)...)
	}
	u.Absent = r.absent
	return u, nil
}

func (p *Project) resolveNC(id string) (Unit, error) {
	r := resolver{p: p, id: id}
	u := Unit{
		ID:     id,
		Kind:   KindNC,
		Title:  r.expand(p.Release.Title),
		Output: r.path(p.NC.MuxOut),
	}
	var err error
	if u.Dialogue, err = r.required("nc.subs", p.NC.Subs); err != nil {
		return Unit{}, err
	}
	u.Chapters = u.Dialogue
	u.Premux = r.optional("nc.premux", p.NC.Premux)
	u.FontDirs = r.dirs(p.NC.Fonts, p.Paths.CommonFonts)
	u.Absent = r.absent
	return u, nil
}

// AudioNames returns the per-track audio labels for the unit kind.
func (p *Project) AudioNames(kind Kind) []string {
	if kind == KindNC && len(p.NC.AudioNames) > 0 {
		return p.NC.AudioNames
	}
	return p.Release.AudioNames
}

type resolver struct {
	p      *Project
	id     string
	absent []string
}

func (r *resolver) expand(template string) string {
	return strings.NewReplacer("{episode}", r.id, "{group}", r.p.Release.Group).Replace(template)
}

// path expands template with filesystem-safe values and anchors it to the
// project directory.
func (r *resolver) path(template string) string {
	expanded := strings.NewReplacer(
		"{episode}", textutil.SanitizeSegment(r.id),
		"{group}", textutil.SanitizeSegment(r.p.Release.Group),
	).Replace(strings.TrimSpace(template))
	if expanded == "" || filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(r.p.Dir, expanded)
}

// matches expands template and returns existing files in lexical order. A
// literal file wins over glob interpretation, so bracketed names work.
func (r *resolver) matches(template string) []string {
	pattern := r.path(template)
	if pattern == "" {
		return nil
	}
	if info, err := os.Stat(pattern); err == nil && !info.IsDir() {
		return []string{pattern}
	}
	if !hasMeta(pattern) {
		return nil
	}
	found, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	files := found[:0]
	for _, f := range found {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files
}

func (r *resolver) required(key, template string) (string, error) {
	files := r.matches(template)
	if len(files) == 0 {
		return "", fmt.Errorf("unit %s: %s %q matched no file", r.id, key, r.path(template))
	}
	return files[0], nil
}

func (r *resolver) optional(key, template string) string {
	if strings.TrimSpace(template) == "" {
		return ""
	}
	files := r.matches(template)
	if len(files) == 0 {
		r.absent = append(r.absent, key)
		return ""
	}
	return files[0]
}

func (r *resolver) all(key string, templates []string) []string {
	var out []string
	configured := false
	for _, t := range templates {
		if strings.TrimSpace(t) == "" {
			continue
		}
		configured = true
		for _, f := range r.matches(t) {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	if configured && len(out) == 0 {
		r.absent = append(r.absent, key)
	}
	return out
}

func (r *resolver) dirs(templates ...string) []string {
	var out []string
	for _, t := range templates {
		if dir := r.path(t); dir != "" && !slices.Contains(out, dir) {
			out = append(out, dir)
		}
	}
	return out
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[`)
}
