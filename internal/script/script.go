package script

import (
	"strconv"
	"strings"
	"time"
)

// Wrap styles defined by the ASS format.
const (
	WrapUnset      = -1
	WrapSmart      = 0
	WrapEndOfLine  = 1
	WrapNone       = 2
	WrapSmartLower = 3
)

// Field is an ordered key/value pair from a metadata block. Keys that subforge
// does not interpret are carried through every stage untouched. Sep is the
// text between key and value as written; empty means ": ".
type Field struct {
	Key   string
	Sep   string
	Value string
}

// Placement records where a well-known key sat in the source block, with its
// spelling and raw value, so encoding can put it back in place. Index counts
// the Extra fields that preceded it.
type Placement struct {
	Key   string
	Sep   string
	Raw   string
	Index int
}

// Info holds the [Script Info] block. Well-known keys are lifted into typed
// fields; everything else stays in Extra in file order.
type Info struct {
	Title                 string
	PlayResX              int
	PlayResY              int
	WrapStyle             int
	ScaledBorderAndShadow *bool
	Extra                 []Field
	Placements            []Placement
}

// HasResolution reports whether both canvas dimensions are set.
func (i Info) HasResolution() bool {
	return i.PlayResX > 0 && i.PlayResY > 0
}

// Lookup returns the value of an extension field.
func (i Info) Lookup(key string) (string, bool) {
	for _, f := range i.Extra {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces an extension field in place or appends it.
func (i *Info) Set(key, value string) {
	for idx := range i.Extra {
		if strings.EqualFold(i.Extra[idx].Key, key) {
			i.Extra[idx].Value = value
			return
		}
	}
	i.Extra = append(i.Extra, Field{Key: key, Value: value})
}

func (i Info) clone() Info {
	out := i
	if i.ScaledBorderAndShadow != nil {
		v := *i.ScaledBorderAndShadow
		out.ScaledBorderAndShadow = &v
	}
	out.Extra = append([]Field(nil), i.Extra...)
	out.Placements = append([]Placement(nil), i.Placements...)
	return out
}

// Section is a non-event block kept verbatim (styles, fonts, graphics,
// Aegisub project garbage, extradata, or anything unknown).
type Section struct {
	Name  string
	Lines []string
	// AfterEvents places the section after [Events] when serialised.
	AfterEvents bool
}

// Section names with special handling.
const (
	SectionStyles         = "V4+ Styles"
	SectionLegacyStyles   = "V4 Styles"
	SectionProjectGarbage = "Aegisub Project Garbage"
	SectionExtraData      = "Aegisub Extradata"
	SectionFonts          = "Fonts"
	SectionGraphics       = "Graphics"
)

// IsStyles reports whether the section holds style definitions.
func (s Section) IsStyles() bool {
	return strings.EqualFold(s.Name, SectionStyles) || strings.EqualFold(s.Name, SectionLegacyStyles)
}

// StyleName returns the name of a "Style:" line, or false for other lines.
func StyleName(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Style:")
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(rest, ",")
	return strings.TrimSpace(name), true
}

// Event is one timed line of the [Events] block.
type Event struct {
	Comment bool
	Layer   int
	Start   time.Duration
	End     time.Duration
	Style   string
	Actor   string
	MarginL int
	MarginR int
	MarginV int
	Effect  string
	Text    string
}

// Duration returns End - Start, which is negative for malformed lines.
func (e Event) Duration() time.Duration {
	return e.End - e.Start
}

// Script is a parsed subtitle script.
type Script struct {
	Info        Info
	Sections    []Section
	EventFormat []string
	Events      []Event
}

// New returns an empty script with unset wrap style.
func New() *Script {
	return &Script{Info: Info{WrapStyle: WrapUnset}}
}

// Clone returns a deep copy that shares nothing with s.
func (s *Script) Clone() *Script {
	if s == nil {
		return nil
	}
	out := &Script{
		Info:        s.Info.clone(),
		EventFormat: append([]string(nil), s.EventFormat...),
		Events:      append([]Event(nil), s.Events...),
	}
	if len(s.Sections) > 0 {
		out.Sections = make([]Section, len(s.Sections))
		for i, sec := range s.Sections {
			out.Sections[i] = Section{Name: sec.Name, Lines: append([]string(nil), sec.Lines...), AfterEvents: sec.AfterEvents}
		}
	}
	return out
}

// WithEvents returns a copy of s whose event list is replaced by events.
func (s *Script) WithEvents(events []Event) *Script {
	out := s.Clone()
	out.Events = append([]Event(nil), events...)
	return out
}

// Section returns the first section with the given name.
func (s *Script) Section(name string) (Section, bool) {
	for _, sec := range s.Sections {
		if strings.EqualFold(sec.Name, name) {
			return sec, true
		}
	}
	return Section{}, false
}

// StyleNames lists the styles defined by the script in file order.
func (s *Script) StyleNames() []string {
	var names []string
	for _, sec := range s.Sections {
		if !sec.IsStyles() {
			continue
		}
		for _, line := range sec.Lines {
			if name, ok := StyleName(line); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// FormatBool renders a boolean the way ASS metadata spells it.
func FormatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// ParseBool accepts the spellings seen in the wild for ASS booleans.
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return true, true
	case "no", "false", "0":
		return false, true
	}
	return false, false
}

// ParseInt parses a metadata integer, tolerating surrounding space.
func ParseInt(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}
