package tlmemory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"subforge/internal/ass"
)

// Filename patterns inside an episode directory. Movie and special
// directories without episode subdirectories use the season-qualified forms.
const (
	dialogueGlob      = "* - Dialogue.ass"
	captionsGlob      = "* - Closed Captions *.*"
	movieDialogueGlob = "* - * - Dialogue.ass"
	movieCaptionsGlob = "* - S*E* - Closed Captions *.*"
)

// Episode is one directory holding a dialogue script and its captions.
type Episode struct {
	Label    string
	Dir      string
	Dialogue string
	Captions string
}

// IsEpisodeDir reports whether a directory name looks like an episode.
func IsEpisodeDir(name string) bool {
	if strings.HasPrefix(name, "SP") || strings.HasPrefix(name, "OVA") {
		return true
	}
	return isDigits(name)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Discover lists the episodes under root. With previous set, sibling season
// directories of root are searched too and every label carries its season
// directory name. Episodes missing either file are left out.
func Discover(root string, previous bool) ([]Episode, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	names, err := episodeDirs(root)
	if err != nil {
		return nil, err
	}
	var out []Episode
	for _, name := range names {
		label := name
		if previous {
			label = filepath.Base(root) + "/" + name
		}
		if ep, ok := collect(label, filepath.Join(root, name), false); ok {
			out = append(out, ep)
		}
	}
	if !previous {
		return out, nil
	}

	parent := filepath.Dir(root)
	entries, err := os.ReadDir(parent)
	if err != nil {
		return nil, fmt.Errorf("read seasons: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == filepath.Base(root) {
			continue
		}
		season := filepath.Join(parent, entry.Name())
		names, err := episodeDirs(season)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			if ep, ok := collect(entry.Name(), season, true); ok {
				out = append(out, ep)
			}
			continue
		}
		for _, name := range names {
			if ep, ok := collect(entry.Name()+"/"+name, filepath.Join(season, name), false); ok {
				out = append(out, ep)
			}
		}
	}
	return out, nil
}

func episodeDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && IsEpisodeDir(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func collect(label, dir string, movie bool) (Episode, bool) {
	dlGlob, ccGlob := dialogueGlob, captionsGlob
	if movie {
		dlGlob, ccGlob = movieDialogueGlob, movieCaptionsGlob
	}
	ep := Episode{
		Label:    label,
		Dir:      dir,
		Dialogue: firstMatch(dir, dlGlob, "*.ass"),
		Captions: firstMatch(dir, ccGlob, "*.srt"),
	}
	return ep, ep.Dialogue != "" && ep.Captions != ""
}

func firstMatch(dir string, patterns ...string) string {
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(filepath.Join(escapeGlob(dir), pattern))
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0]
		}
	}
	return ""
}

func escapeGlob(path string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`)
	return r.Replace(path)
}

// Number returns the numeric episode in the last label segment.
func (e Episode) Number() (int, bool) {
	name := e.Label
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if !isDigits(name) {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	return n, err == nil
}

// ReadLines loads a dialogue script or caption file by extension. Files of
// any other type hold no lines.
func ReadLines(path string) ([]Line, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ass":
		s, err := ass.ReadFile(path)
		if err != nil {
			return nil, err
		}
		lines := make([]Line, 0, len(s.Events))
		for _, ev := range s.Events {
			text, actor := SplitActor(CleanText(ev.Text), strings.TrimSpace(ev.Actor))
			lines = append(lines, Line{Start: ev.Start, End: ev.End, Text: text, Actor: actor})
		}
		return lines, nil
	case ".srt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read captions: %w", err)
		}
		cues := parseSRT(string(data))
		lines := make([]Line, 0, len(cues))
		for _, cue := range cues {
			text, actor := SplitActor(CleanText(cue.text), "")
			lines = append(lines, Line{Start: cue.start, End: cue.end, Text: text, Actor: actor})
		}
		return lines, nil
	default:
		return nil, nil
	}
}
