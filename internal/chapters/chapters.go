// Package chapters derives chapter marks from marker lines in a script and
// writes them in the formats mkvmerge accepts.
package chapters

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"subforge/internal/script"
)

// Order selects how out-of-order markers are handled.
type Order int

const (
	// OrderStrict rejects markers that go back in time.
	OrderStrict Order = iota
	// OrderSort sorts markers by start time, keeping source order for ties.
	OrderSort
)

// ParseOrder maps a configuration value to an Order.
func ParseOrder(value string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict":
		return OrderStrict, nil
	case "sort":
		return OrderSort, nil
	}
	return OrderStrict, fmt.Errorf("unknown chapter order %q (want strict or sort)", value)
}

func (o Order) String() string {
	if o == OrderSort {
		return "sort"
	}
	return "strict"
}

// Chapter is one chapter mark.
type Chapter struct {
	Start time.Duration
	Title string
}

// OrderError reports a marker that starts before its predecessor. Line is the
// 1-based event index of the offending marker.
type OrderError struct {
	Line     int
	Start    time.Duration
	Previous time.Duration
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("chapters: marker on line %d at %s precedes previous marker at %s", e.Line, e.Start, e.Previous)
}

var overrideTags = regexp.MustCompile(`\{[^}]*\}`)

// Extract collects the lines whose effect equals marker, comment or not.
func Extract(s *script.Script, marker string, order Order) ([]Chapter, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return nil, fmt.Errorf("chapters: empty marker")
	}
	var (
		out  []Chapter
		prev time.Duration
	)
	for i, ev := range s.Events {
		if strings.TrimSpace(ev.Effect) != marker {
			continue
		}
		if order == OrderStrict && len(out) > 0 && ev.Start < prev {
			return nil, &OrderError{Line: i + 1, Start: ev.Start, Previous: prev}
		}
		out = append(out, Chapter{Start: ev.Start, Title: label(ev)})
		prev = ev.Start
	}
	if order == OrderSort {
		sort.SliceStable(out, func(a, b int) bool { return out[a].Start < out[b].Start })
	}
	return out, nil
}

func label(ev script.Event) string {
	text := overrideTags.ReplaceAllString(ev.Text, "")
	text = strings.NewReplacer(`\N`, " ", `\n`, " ", `\h`, " ").Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return strings.TrimSpace(ev.Actor)
	}
	return text
}

type xmlChapters struct {
	XMLName xml.Name   `xml:"Chapters"`
	Edition xmlEdition `xml:"EditionEntry"`
}

type xmlEdition struct {
	FlagDefault int       `xml:"EditionFlagDefault"`
	Atoms       []xmlAtom `xml:"ChapterAtom"`
}

type xmlAtom struct {
	TimeStart string     `xml:"ChapterTimeStart"`
	Display   xmlDisplay `xml:"ChapterDisplay"`
}

type xmlDisplay struct {
	String   string `xml:"ChapterString"`
	Language string `xml:"ChapterLanguage"`
}

// WriteXML writes Matroska chapter XML with one default edition.
func WriteXML(w io.Writer, chapters []Chapter, lang string) error {
	if strings.TrimSpace(lang) == "" {
		lang = "und"
	}
	doc := xmlChapters{Edition: xmlEdition{FlagDefault: 1}}
	for _, ch := range chapters {
		doc.Edition.Atoms = append(doc.Edition.Atoms, xmlAtom{
			TimeStart: FormatTime(ch.Start),
			Display:   xmlDisplay{String: ch.Title, Language: lang},
		})
	}
	if _, err := io.WriteString(w, xml.Header+"<!DOCTYPE Chapters SYSTEM \"matroskachapters.dtd\">\n"); err != nil {
		return fmt.Errorf("write chapters: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode chapters: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write chapters: %w", err)
	}
	return nil
}

// WriteOGM writes the simple CHAPTERxx=/CHAPTERxxNAME= format.
func WriteOGM(w io.Writer, chapters []Chapter) error {
	var b strings.Builder
	for i, ch := range chapters {
		ts := FormatTime(ch.Start)
		fmt.Fprintf(&b, "CHAPTER%02d=%s\n", i+1, ts[:len(ts)-6])
		fmt.Fprintf(&b, "CHAPTER%02dNAME=%s\n", i+1, ch.Title)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write chapters: %w", err)
	}
	return nil
}

// FormatTime renders d as HH:MM:SS.nnnnnnnnn.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ns := int64(d)
	h := ns / int64(time.Hour)
	ns -= h * int64(time.Hour)
	m := ns / int64(time.Minute)
	ns -= m * int64(time.Minute)
	sec := ns / int64(time.Second)
	ns -= sec * int64(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d.%09d", h, m, sec, ns)
}
