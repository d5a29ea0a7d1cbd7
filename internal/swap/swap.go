// Package swap produces the alternate rendering of a script from inline swap
// markup.
//
// Inline spans are written as override blocks so the literal track renders
// cleanly as-is:
//
//	Thank you{*}{*, Tanaka-san}.
//	Thank you{*}, Sensei{*-sensei}.
//
// The text between the opening block and the closing block is the literal
// rendering, the closing block carries the alternate. Applying the swap
// rewrites each span as {*}alternate{*literal}, so a second pass restores the
// input. Neither side may contain override blocks; put tags outside the span.
//
// A dialogue line whose effect equals the line marker is replaced wholesale
// by the text of the comment line directly below it that carries the same
// marker.
package swap

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"subforge/internal/script"
)

// Default markup tokens.
const (
	DefaultDelimiter  = '*'
	DefaultLineMarker = "***"
)

// Options scopes and configures a swap pass.
type Options struct {
	// Styles restricts the pass to matching styles. Nil applies it to every
	// line.
	Styles     *regexp.Regexp
	Delimiter  rune
	LineMarker string
}

// DefaultOptions returns the conventional honorifics markup.
func DefaultOptions() Options {
	return Options{Delimiter: DefaultDelimiter, LineMarker: DefaultLineMarker}
}

func (o Options) normalize() Options {
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if strings.TrimSpace(o.LineMarker) == "" {
		o.LineMarker = DefaultLineMarker
	}
	return o
}

// Report summarises a swap pass.
type Report struct {
	Spans      int
	WholeLines int
	// Changed counts lines whose text differs from the input.
	Changed int
}

// MarkupError reports malformed swap markup. Line is the 1-based event index,
// Column the 1-based byte offset within the text (0 for whole-line errors).
type MarkupError struct {
	Line   int
	Column int
	Msg    string
}

func (e *MarkupError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("swap: line %d column %d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("swap: line %d: %s", e.Line, e.Msg)
}

// Apply returns the swapped copy of s. The input is never modified. Comment
// lines pass through untouched.
func Apply(s *script.Script, opts Options) (*script.Script, Report, error) {
	opts = opts.normalize()
	out := s.Clone()
	var report Report
	for i := range out.Events {
		ev := &out.Events[i]
		if ev.Comment || (opts.Styles != nil && !opts.Styles.MatchString(ev.Style)) {
			continue
		}
		if ev.Effect == opts.LineMarker {
			alt, ok := alternateLine(out.Events, i, opts.LineMarker)
			if !ok {
				return nil, Report{}, &MarkupError{Line: i + 1, Msg: fmt.Sprintf("line marked %q has no alternate comment line", opts.LineMarker)}
			}
			if alt != ev.Text {
				report.Changed++
			}
			ev.Text = alt
			ev.Effect = ""
			report.WholeLines++
			continue
		}
		text, spans, err := SwapText(ev.Text, opts.Delimiter)
		if err != nil {
			var merr *MarkupError
			if errors.As(err, &merr) {
				merr.Line = i + 1
			}
			return nil, Report{}, err
		}
		if text != ev.Text {
			report.Changed++
		}
		ev.Text = text
		report.Spans += spans
	}
	return out, report, nil
}

func alternateLine(events []script.Event, i int, marker string) (string, bool) {
	if i+1 >= len(events) {
		return "", false
	}
	next := events[i+1]
	if !next.Comment || next.Effect != marker {
		return "", false
	}
	return next.Text, true
}

// SwapText swaps every span in text and returns the rewritten text with the
// number of spans found. Text outside spans is copied byte for byte.
func SwapText(text string, delim rune) (string, int, error) {
	open := "{" + string(delim)
	if !strings.Contains(text, open) {
		return text, 0, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	spans := 0
	pos := 0
	for {
		rel := strings.Index(text[pos:], open)
		if rel < 0 {
			b.WriteString(text[pos:])
			break
		}
		start := pos + rel
		b.WriteString(text[pos:start])

		bodyStart := start + len(open)
		if !strings.HasPrefix(text[bodyStart:], "}") {
			return "", 0, &MarkupError{Column: start + 1, Msg: "closing swap block without an opening block"}
		}
		literalStart := bodyStart + 1

		closeRel := strings.Index(text[literalStart:], open)
		if closeRel < 0 {
			return "", 0, &MarkupError{Column: start + 1, Msg: "unterminated swap span"}
		}
		closeStart := literalStart + closeRel
		altStart := closeStart + len(open)
		endRel := strings.IndexByte(text[altStart:], '}')
		if endRel < 0 {
			return "", 0, &MarkupError{Column: closeStart + 1, Msg: "unterminated swap block"}
		}
		altEnd := altStart + endRel

		literal := text[literalStart:closeStart]
		alternate := text[altStart:altEnd]
		// Either side ends up inside an override block after the swap, where a
		// brace would end the block early.
		if i := strings.IndexAny(literal, "{}"); i >= 0 {
			return "", 0, &MarkupError{Column: literalStart + i + 1, Msg: "override block inside swap span"}
		}
		if i := strings.IndexByte(alternate, '{'); i >= 0 {
			return "", 0, &MarkupError{Column: altStart + i + 1, Msg: "override block inside swap alternate"}
		}
		b.WriteString(open + "}" + alternate + open + literal + "}")
		spans++
		pos = altEnd + 1
	}
	return b.String(), spans, nil
}
