package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"subforge/internal/language"
	"subforge/internal/swap"
)

// Release holds naming and language settings for the muxed file.
type Release struct {
	Group string `toml:"group" yaml:"group"`
	// Title is the container title template.
	Title string `toml:"title" yaml:"title"`
	// GroupReg and GroupHono name the full and honorific subtitle tracks.
	GroupReg  string `toml:"group_reg" yaml:"group_reg"`
	GroupHono string `toml:"group_hono" yaml:"group_hono"`
	// ForcedName names the signs/songs track built for dubs.
	ForcedName       string   `toml:"forced_name" yaml:"forced_name"`
	SubtitleLanguage string   `toml:"subtitle_language" yaml:"subtitle_language"`
	HonorificsLang   string   `toml:"honorifics_language" yaml:"honorifics_language"`
	MediaLanguage    string   `toml:"media_language" yaml:"media_language"`
	AudioNames       []string `toml:"audio_names" yaml:"audio_names"`
	DialogueStyles   string   `toml:"dialogue_styles" yaml:"dialogue_styles"`
}

// Paths holds the episode source templates.
type Paths struct {
	Dialogue    string   `toml:"dialogue" yaml:"dialogue"`
	OP          string   `toml:"op" yaml:"op"`
	ED          string   `toml:"ed" yaml:"ed"`
	Extra       string   `toml:"extra" yaml:"extra"`
	INS         []string `toml:"ins" yaml:"ins"`
	TS          []string `toml:"ts" yaml:"ts"`
	Forced      string   `toml:"forced" yaml:"forced"`
	Chapters    string   `toml:"chapters" yaml:"chapters"`
	Premux      string   `toml:"premux" yaml:"premux"`
	Fonts       string   `toml:"fonts" yaml:"fonts"`
	CommonFonts string   `toml:"common_fonts" yaml:"common_fonts"`
	OPFonts     string   `toml:"op_fonts" yaml:"op_fonts"`
	EDFonts     string   `toml:"ed_fonts" yaml:"ed_fonts"`
	MuxOut      string   `toml:"muxout" yaml:"muxout"`
}

// NCPaths holds the creditless unit templates. {episode} expands to the NC id.
type NCPaths struct {
	Subs       string   `toml:"subs" yaml:"subs"`
	Premux     string   `toml:"premux" yaml:"premux"`
	Fonts      string   `toml:"fonts" yaml:"fonts"`
	MuxOut     string   `toml:"muxout" yaml:"muxout"`
	AudioNames []string `toml:"audio_names" yaml:"audio_names"`
}

// SyncPair aligns a fragment (op or ed) to the dialogue script.
type SyncPair struct {
	Fragment string `toml:"fragment" yaml:"fragment"`
	Source   string `toml:"source" yaml:"source"`
	Target   string `toml:"target" yaml:"target"`
}

// SwapSettings configures a swap pass.
type SwapSettings struct {
	Delimiter  string `toml:"delimiter" yaml:"delimiter"`
	LineMarker string `toml:"line_marker" yaml:"line_marker"`
	Styles     string `toml:"styles" yaml:"styles"`
}

// ChapterSettings configures chapter extraction.
type ChapterSettings struct {
	Marker   string `toml:"marker" yaml:"marker"`
	NCMarker string `toml:"nc_marker" yaml:"nc_marker"`
	Language string `toml:"language" yaml:"language"`
}

// Project is a decoded project file.
type Project struct {
	Release  Release         `toml:"release" yaml:"release"`
	Episodes []string        `toml:"episodes" yaml:"episodes"`
	NCs      []string        `toml:"ncs" yaml:"ncs"`
	Paths    Paths           `toml:"paths" yaml:"paths"`
	NC       NCPaths         `toml:"nc" yaml:"nc"`
	Sync     []SyncPair      `toml:"sync" yaml:"sync"`
	Swap     SwapSettings    `toml:"swap" yaml:"swap"`
	Forced   SwapSettings    `toml:"forced" yaml:"forced"`
	Chapters ChapterSettings `toml:"chapters" yaml:"chapters"`

	// Dir is the directory relative templates resolve against.
	Dir  string `toml:"-" yaml:"-"`
	File string `toml:"-" yaml:"-"`
}

// Default sync markers and fragments.
const (
	FragmentOP = "op"
	FragmentED = "ed"
)

func defaults() Project {
	return Project{
		Release: Release{
			SubtitleLanguage: "eng",
			HonorificsLang:   "enm",
			MediaLanguage:    "jpn",
			ForcedName:       "Signs & Songs",
			DialogueStyles:   `^(Default|Main|Italics|Top|Flashback|Overlap|Internal)`,
		},
		Swap:   SwapSettings{Delimiter: string(swap.DefaultDelimiter), LineMarker: swap.DefaultLineMarker},
		Forced: SwapSettings{Delimiter: "#", LineMarker: "###"},
		Chapters: ChapterSettings{
			Marker:   "chapter",
			NCMarker: "ncchapter",
			Language: "eng",
		},
	}
}

// Load reads a project file. The format follows the extension: .toml, or
// .yaml/.yml. Unknown keys are rejected.
func Load(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	p := defaults()
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("parse project %s: %s", abs, strict.String())
			}
			return nil, fmt.Errorf("parse project %s: %w", abs, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parse project %s: %w", abs, err)
		}
	default:
		return nil, fmt.Errorf("project %s: unsupported format %q", abs, filepath.Ext(abs))
	}
	p.Dir = filepath.Dir(abs)
	p.File = abs
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("project %s: %w", abs, err)
	}
	return &p, nil
}

func (p *Project) normalize() {
	p.Release.Group = strings.TrimSpace(p.Release.Group)
	if p.Release.GroupReg == "" {
		p.Release.GroupReg = p.Release.Group
	}
	if p.Release.GroupHono == "" {
		p.Release.GroupHono = p.Release.Group + " (Honorifics)"
	}
	if p.Release.Title == "" {
		p.Release.Title = "{group} - {episode}"
	}
	if p.Paths.Chapters == "" {
		p.Paths.Chapters = p.Paths.Dialogue
	}
	p.Episodes = trimList(p.Episodes)
	p.NCs = trimList(p.NCs)
	if len(p.Sync) == 0 {
		p.Sync = []SyncPair{
			{Fragment: FragmentOP, Source: "sync", Target: "opsync"},
			{Fragment: FragmentED, Source: "sync", Target: "edsync"},
		}
	}
	for i := range p.Sync {
		p.Sync[i].Fragment = strings.ToLower(strings.TrimSpace(p.Sync[i].Fragment))
	}
}

// Validate reports the first inconsistency in the project.
func (p *Project) Validate() error {
	if p.Release.Group == "" {
		return errors.New("release.group is required")
	}
	if len(p.Episodes) == 0 && len(p.NCs) == 0 {
		return errors.New("at least one of episodes or ncs is required")
	}
	if len(p.Episodes) > 0 {
		if strings.TrimSpace(p.Paths.Dialogue) == "" {
			return errors.New("paths.dialogue is required")
		}
		if strings.TrimSpace(p.Paths.MuxOut) == "" {
			return errors.New("paths.muxout is required")
		}
	}
	if len(p.NCs) > 0 {
		if strings.TrimSpace(p.NC.Subs) == "" || strings.TrimSpace(p.NC.MuxOut) == "" {
			return errors.New("nc.subs and nc.muxout are required when ncs are listed")
		}
	}
	if err := checkUnique("episodes", append(append([]string(nil), p.Episodes...), p.NCs...)); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, s := range p.Sync {
		if s.Fragment != FragmentOP && s.Fragment != FragmentED {
			return fmt.Errorf("sync.fragment must be %q or %q, got %q", FragmentOP, FragmentED, s.Fragment)
		}
		if seen[s.Fragment] {
			return fmt.Errorf("sync: fragment %q listed twice", s.Fragment)
		}
		seen[s.Fragment] = true
		if strings.TrimSpace(s.Source) == "" || strings.TrimSpace(s.Target) == "" {
			return fmt.Errorf("sync %s: source and target markers are required", s.Fragment)
		}
	}
	for _, lang := range []struct{ key, value string }{
		{"release.subtitle_language", p.Release.SubtitleLanguage},
		{"release.honorifics_language", p.Release.HonorificsLang},
		{"release.media_language", p.Release.MediaLanguage},
		{"chapters.language", p.Chapters.Language},
	} {
		if !language.Valid(lang.value) {
			return fmt.Errorf("%s: unknown language %q", lang.key, lang.value)
		}
	}
	if _, err := p.DialoguePattern(); err != nil {
		return err
	}
	if _, err := p.Swap.Options("swap"); err != nil {
		return err
	}
	if _, err := p.Forced.Options("forced"); err != nil {
		return err
	}
	return nil
}

// DialoguePattern compiles release.dialogue_styles.
func (p *Project) DialoguePattern() (*regexp.Regexp, error) {
	re, err := regexp.Compile(p.Release.DialogueStyles)
	if err != nil {
		return nil, fmt.Errorf("release.dialogue_styles: %w", err)
	}
	return re, nil
}

// Options converts the settings into swap options. key prefixes errors.
func (s SwapSettings) Options(key string) (swap.Options, error) {
	opts := swap.DefaultOptions()
	if d := s.Delimiter; d != "" {
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return swap.Options{}, fmt.Errorf("%s.delimiter must be a single character, got %q", key, d)
		}
		opts.Delimiter = r
	}
	if s.LineMarker != "" {
		opts.LineMarker = s.LineMarker
	}
	if s.Styles != "" {
		re, err := regexp.Compile(s.Styles)
		if err != nil {
			return swap.Options{}, fmt.Errorf("%s.styles: %w", key, err)
		}
		opts.Styles = re
	}
	return opts, nil
}

// SyncFor returns the marker pair for fragment.
func (p *Project) SyncFor(fragment string) (SyncPair, bool) {
	for _, s := range p.Sync {
		if s.Fragment == fragment {
			return s, true
		}
	}
	return SyncPair{}, false
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func checkUnique(key string, values []string) error {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%s: %q listed twice", key, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}
