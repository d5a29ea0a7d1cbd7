package script

import (
	"regexp"
	"strings"
)

// scaffoldPrefixes mark karaoke-template generation directives. Lines carrying
// them only drive an external template renderer.
var scaffoldPrefixes = []string{"code", "template", "mixin"}

// Kind is the single classification assigned to an event line.
type Kind int

const (
	KindPlain Kind = iota
	KindDialogue
	KindScaffold
	KindBlank
	KindNegativeDuration
	KindBeforeZero
	KindZeroDuration
)

func (k Kind) String() string {
	switch k {
	case KindDialogue:
		return "dialogue"
	case KindScaffold:
		return "scaffold"
	case KindBlank:
		return "blank"
	case KindNegativeDuration:
		return "negative_duration"
	case KindBeforeZero:
		return "before_zero"
	case KindZeroDuration:
		return "zero_duration"
	default:
		return "plain"
	}
}

// IsBlank reports whether text, actor and effect are all empty.
func IsBlank(e Event) bool {
	return e.Text == "" && e.Actor == "" && e.Effect == ""
}

// IsNegativeDuration reports whether the line ends before it starts.
func IsNegativeDuration(e Event) bool {
	return e.End < e.Start
}

// IsBeforeZero reports whether either timestamp lies before the start of the
// timeline, which a sync shift can produce for pre-roll lines.
func IsBeforeZero(e Event) bool {
	return e.Start < 0 || e.End < 0
}

// IsZeroDuration reports whether the line ends exactly when it starts.
func IsZeroDuration(e Event) bool {
	return e.End == e.Start
}

// IsTemplateScaffold reports whether the line is a commented karaoke template
// directive (code, template or mixin lines).
func IsTemplateScaffold(e Event) bool {
	if !e.Comment {
		return false
	}
	for _, prefix := range scaffoldPrefixes {
		if strings.HasPrefix(e.Effect, prefix) {
			return true
		}
	}
	return false
}

// IsDialogueStyle reports whether the line's style matches the dialogue
// pattern. A nil pattern matches nothing.
func IsDialogueStyle(e Event, pattern *regexp.Regexp) bool {
	if pattern == nil {
		return false
	}
	return pattern.MatchString(e.Style)
}

// Classify assigns exactly one Kind. Structural problems win over content:
// scaffold, blank, negative duration, before zero, zero duration, then
// dialogue style.
func Classify(e Event, dialogue *regexp.Regexp) Kind {
	switch {
	case IsTemplateScaffold(e):
		return KindScaffold
	case IsBlank(e):
		return KindBlank
	case IsNegativeDuration(e):
		return KindNegativeDuration
	case IsBeforeZero(e):
		return KindBeforeZero
	case IsZeroDuration(e):
		return KindZeroDuration
	case IsDialogueStyle(e, dialogue):
		return KindDialogue
	default:
		return KindPlain
	}
}
