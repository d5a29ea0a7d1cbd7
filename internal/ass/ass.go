// Package ass reads and writes Advanced SubStation Alpha (v4+) scripts.
//
// Decoding lifts the metadata subforge interprets (title, canvas, wrap style,
// border scaling) into script.Info and keeps every other [Script Info] key,
// comment and unknown section verbatim so a decode/encode cycle preserves
// them byte for byte.
package ass

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"subforge/internal/fileutil"
	"subforge/internal/script"
)

const (
	sectionInfo   = "Script Info"
	sectionEvents = "Events"
)

// DefaultEventFormat is the v4+ [Events] field order.
var DefaultEventFormat = []string{"Layer", "Start", "End", "Style", "Name", "MarginL", "MarginR", "MarginV", "Effect", "Text"}

// ParseError reports malformed input with its 1-based line number.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ass: line %d: %s", e.Line, e.Msg)
}

// ReadFile decodes the script stored at path.
func ReadFile(path string) (*script.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

// WriteFile encodes s to path. The file is written to a temporary sibling and
// renamed into place so readers never observe a partial script.
func WriteFile(path string, s *script.Script) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, s)
	})
}

// Decode parses a script. A UTF-8 byte order mark and CRLF line endings are
// accepted.
func Decode(r io.Reader) (*script.Script, error) {
	s := script.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		current    string
		section    *script.Section
		seenEvents bool
		lineNo     int
	)
	flush := func() {
		if section != nil {
			s.Sections = append(s.Sections, *section)
			section = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSuffix(line, "\r")

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			flush()
			current = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			switch {
			case strings.EqualFold(current, sectionInfo):
			case strings.EqualFold(current, sectionEvents):
				seenEvents = true
			default:
				section = &script.Section{Name: current, AfterEvents: seenEvents}
			}
			continue
		}
		if trimmed == "" {
			continue
		}

		switch {
		case current == "":
			// Text before the first header carries no meaning.
		case strings.EqualFold(current, sectionInfo):
			decodeInfoLine(&s.Info, line)
		case strings.EqualFold(current, sectionEvents):
			if err := decodeEventLine(s, line); err != nil {
				return nil, &ParseError{Line: lineNo, Msg: err.Error()}
			}
		default:
			section.Lines = append(section.Lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	flush()
	return s, nil
}

func decodeInfoLine(info *script.Info, line string) {
	keyRaw, rest, ok := strings.Cut(line, ":")
	if strings.HasPrefix(line, ";") || !ok || strings.TrimSpace(keyRaw) == "" || keyRaw != strings.TrimLeft(keyRaw, " \t") {
		info.Extra = append(info.Extra, script.Field{Value: line})
		return
	}
	key := strings.TrimRight(keyRaw, " \t")
	value := strings.TrimLeft(rest, " \t")
	sep := keyRaw[len(key):] + ":" + rest[:len(rest)-len(value)]

	if known, ok := knownInfoKey(key); ok && !placed(info, known) && setKnown(info, known, value) {
		info.Placements = append(info.Placements, script.Placement{
			Key:   key,
			Sep:   sep,
			Raw:   value,
			Index: len(info.Extra),
		})
		return
	}
	info.Extra = append(info.Extra, script.Field{Key: key, Sep: sep, Value: value})
}

// Keys lifted into typed script.Info fields, in the order they are written
// when the source did not place them.
var knownInfoKeys = []string{"Title", "PlayResX", "PlayResY", "WrapStyle", "ScaledBorderAndShadow"}

func knownInfoKey(key string) (string, bool) {
	for _, k := range knownInfoKeys {
		if strings.EqualFold(k, key) {
			return k, true
		}
	}
	return "", false
}

// placed reports whether an earlier line already supplied key. Repeats stay
// in Extra verbatim.
func placed(info *script.Info, key string) bool {
	for _, p := range info.Placements {
		if strings.EqualFold(p.Key, key) {
			return true
		}
	}
	return false
}

func setKnown(info *script.Info, key, value string) bool {
	switch key {
	case "Title":
		info.Title = strings.TrimSpace(value)
		return true
	case "PlayResX":
		n, ok := script.ParseInt(value)
		if ok {
			info.PlayResX = n
		}
		return ok
	case "PlayResY":
		n, ok := script.ParseInt(value)
		if ok {
			info.PlayResY = n
		}
		return ok
	case "WrapStyle":
		n, ok := script.ParseInt(value)
		if ok {
			info.WrapStyle = n
		}
		return ok
	case "ScaledBorderAndShadow":
		b, ok := script.ParseBool(value)
		if ok {
			info.ScaledBorderAndShadow = &b
		}
		return ok
	}
	return false
}

func intValue(v int, set bool, raw string) (string, bool) {
	if !set {
		return "", false
	}
	if n, ok := script.ParseInt(raw); ok && n == v {
		return raw, true
	}
	return strconv.Itoa(v), true
}

// knownValue renders the current typed value of key. The raw spelling is
// reused when it still means the same thing.
func knownValue(info script.Info, key, raw string) (string, bool) {
	switch key {
	case "Title":
		if info.Title == "" {
			return "", false
		}
		if strings.TrimSpace(raw) == info.Title {
			return raw, true
		}
		return info.Title, true
	case "PlayResX":
		return intValue(info.PlayResX, info.PlayResX > 0, raw)
	case "PlayResY":
		return intValue(info.PlayResY, info.PlayResY > 0, raw)
	case "WrapStyle":
		return intValue(info.WrapStyle, info.WrapStyle != script.WrapUnset, raw)
	case "ScaledBorderAndShadow":
		if info.ScaledBorderAndShadow == nil {
			return "", false
		}
		if b, ok := script.ParseBool(raw); ok && b == *info.ScaledBorderAndShadow {
			return raw, true
		}
		return script.FormatBool(*info.ScaledBorderAndShadow), true
	}
	return "", false
}

func decodeEventLine(s *script.Script, line string) error {
	kind, rest, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	kind = strings.TrimSpace(kind)
	switch {
	case strings.EqualFold(kind, "Format"):
		fields := strings.Split(rest, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		s.EventFormat = fields
		return nil
	case strings.EqualFold(kind, "Dialogue"), strings.EqualFold(kind, "Comment"):
	default:
		return nil
	}

	format := s.EventFormat
	if len(format) == 0 {
		format = DefaultEventFormat
	}
	values := strings.SplitN(strings.TrimPrefix(rest, " "), ",", len(format))
	if len(values) != len(format) {
		return fmt.Errorf("expected %d fields, found %d", len(format), len(values))
	}

	ev := script.Event{Comment: strings.EqualFold(kind, "Comment")}
	for i, name := range format {
		value := values[i]
		if name != "Text" {
			value = strings.TrimSpace(value)
		}
		var err error
		switch name {
		case "Layer":
			ev.Layer, err = atoiField(name, value)
		case "Start":
			ev.Start, err = ParseTimestamp(value)
		case "End":
			ev.End, err = ParseTimestamp(value)
		case "Style":
			ev.Style = value
		case "Name", "Actor":
			ev.Actor = value
		case "MarginL":
			ev.MarginL, err = atoiField(name, value)
		case "MarginR":
			ev.MarginR, err = atoiField(name, value)
		case "MarginV":
			ev.MarginV, err = atoiField(name, value)
		case "Effect":
			ev.Effect = value
		case "Text":
			ev.Text = value
		}
		if err != nil {
			return err
		}
	}
	s.Events = append(s.Events, ev)
	return nil
}

func atoiField(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return n, nil
}

// Encode writes s as an ASS script with LF line endings.
func Encode(w io.Writer, s *script.Script) error {
	var buf bytes.Buffer
	buf.WriteString("[" + sectionInfo + "]\n")
	encodeInfo(&buf, s.Info)

	for _, sec := range s.Sections {
		if !sec.AfterEvents {
			encodeSection(&buf, sec)
		}
	}

	format := s.EventFormat
	if len(format) == 0 {
		format = DefaultEventFormat
	}
	buf.WriteString("\n[" + sectionEvents + "]\n")
	buf.WriteString("Format: " + strings.Join(format, ", ") + "\n")
	for i, ev := range s.Events {
		if err := encodeEvent(&buf, format, ev); err != nil {
			return fmt.Errorf("encode event %d: %w", i+1, err)
		}
	}

	for _, sec := range s.Sections {
		if sec.AfterEvents {
			encodeSection(&buf, sec)
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}

func encodeInfo(buf *bytes.Buffer, info script.Info) {
	written := make(map[string]bool, len(knownInfoKeys))
	writeKnown := func(key, spelling, sep, raw string) {
		written[key] = true
		if value, ok := knownValue(info, key, raw); ok {
			buf.WriteString(spelling + sep + value + "\n")
		}
	}
	writePlaced := func(index int) {
		for _, p := range info.Placements {
			known, ok := knownInfoKey(p.Key)
			if !ok || written[known] || p.Index != index {
				continue
			}
			writeKnown(known, p.Key, p.Sep, p.Raw)
		}
	}

	if !placed(&info, "Title") {
		writeKnown("Title", "Title", ": ", "")
	}
	for i, f := range info.Extra {
		writePlaced(i)
		switch {
		case f.Key == "":
			buf.WriteString(f.Value + "\n")
		case f.Sep == "":
			buf.WriteString(f.Key + ": " + f.Value + "\n")
		default:
			buf.WriteString(f.Key + f.Sep + f.Value + "\n")
		}
	}
	for _, p := range info.Placements {
		if known, ok := knownInfoKey(p.Key); ok && !written[known] {
			writeKnown(known, p.Key, p.Sep, p.Raw)
		}
	}
	for _, key := range knownInfoKeys {
		if !written[key] {
			writeKnown(key, key, ": ", "")
		}
	}
}

func encodeSection(buf *bytes.Buffer, sec script.Section) {
	buf.WriteString("\n[" + sec.Name + "]\n")
	for _, line := range sec.Lines {
		buf.WriteString(line + "\n")
	}
}

func encodeEvent(buf *bytes.Buffer, format []string, ev script.Event) error {
	if ev.Comment {
		buf.WriteString("Comment: ")
	} else {
		buf.WriteString("Dialogue: ")
	}
	for i, name := range format {
		if i > 0 {
			buf.WriteByte(',')
		}
		switch name {
		case "Layer":
			buf.WriteString(strconv.Itoa(ev.Layer))
		case "Start", "End":
			d := ev.Start
			if name == "End" {
				d = ev.End
			}
			ts, err := FormatTimestamp(d)
			if err != nil {
				return err
			}
			buf.WriteString(ts)
		case "Style":
			buf.WriteString(ev.Style)
		case "Name", "Actor":
			buf.WriteString(ev.Actor)
		case "MarginL":
			buf.WriteString(strconv.Itoa(ev.MarginL))
		case "MarginR":
			buf.WriteString(strconv.Itoa(ev.MarginR))
		case "MarginV":
			buf.WriteString(strconv.Itoa(ev.MarginV))
		case "Effect":
			buf.WriteString(ev.Effect)
		case "Text":
			buf.WriteString(ev.Text)
		case "Marked":
			buf.WriteString("Marked=0")
		}
	}
	buf.WriteByte('\n')
	return nil
}

// ParseTimestamp parses H:MM:SS.cc into a duration.
func ParseTimestamp(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.ParseFloat(parts[2], 64)
	if errH != nil || errM != nil || errS != nil || hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	total += time.Duration(seconds*1000+0.5) * time.Millisecond
	return total, nil
}

// ErrNegativeTimestamp is returned for times before zero, which the format
// cannot express.
var ErrNegativeTimestamp = errors.New("timestamp before zero")

// FormatTimestamp renders d as H:MM:SS.cc rounded to the nearest centisecond.
func FormatTimestamp(d time.Duration) (string, error) {
	if d < 0 {
		return "", fmt.Errorf("%w: %v", ErrNegativeTimestamp, d)
	}
	cs := int64((d + 5*time.Millisecond) / (10 * time.Millisecond))
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	sec := cs / 100
	cs -= sec * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, sec, cs), nil
}
