package tlmemory

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Line is one timed subtitle line with its speaker split off.
type Line struct {
	Start time.Duration
	End   time.Duration
	Text  string
	Actor string
}

// Overlaps reports whether the two lines share any instant, touching ends
// included.
func (l Line) Overlaps(o Line) bool {
	return l.Start <= o.End && o.Start <= l.End
}

var (
	lineBreakPattern     = regexp.MustCompile(`\\[Nn]|[\r\n]+`)
	formattingTagPattern = regexp.MustCompile(`^\{[^}]*\}`)
	parenActorPattern    = regexp.MustCompile(`^[（(]([^\s）)]+)[）)]\s*`)
	colonActorPattern    = regexp.MustCompile(`^(\p{L}[\p{L}\p{M}\p{N}_“”]{0,23}):\s*`)
)

// CleanText folds hard line breaks into spaces.
func CleanText(text string) string {
	return strings.TrimSpace(lineBreakPattern.ReplaceAllString(text, " "))
}

// SplitActor removes a "(Name)" or "Name:" speaker prefix from text. A
// leading override block is kept in place. A non-empty actor wins over the
// one found in the text.
func SplitActor(text, actor string) (string, string) {
	tag := formattingTagPattern.FindString(text)
	body := text
	if tag != "" {
		body = strings.TrimLeftFunc(text[len(tag):], unicode.IsSpace)
	}
	rest := body
	if m := parenActorPattern.FindStringSubmatchIndex(rest); m != nil {
		if actor == "" {
			actor = strings.TrimSpace(rest[m[2]:m[3]])
		}
		rest = strings.TrimLeftFunc(rest[m[1]:], unicode.IsSpace)
	} else if m := colonActorPattern.FindStringSubmatchIndex(rest); m != nil {
		if actor == "" {
			actor = strings.TrimSpace(rest[m[2]:m[3]])
		}
		rest = strings.TrimLeftFunc(rest[m[1]:], unicode.IsSpace)
	}
	if rest == body {
		return text, actor
	}
	return tag + rest, actor
}

// FormatTimestamp renders d as [h:mm:ss], dropping fractions.
func FormatTimestamp(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("[%d:%02d:%02d]", total/3600, total%3600/60, total%60)
}
