package script

import "regexp"

// CleanPolicy selects which line kinds the cleaning stage removes.
// DropNegative covers both lines that end before they start and lines with a
// timestamp before zero.
type CleanPolicy struct {
	DropBlank    bool
	DropNegative bool
	// DropZero removes zero-duration lines. Release configurations disagree
	// on this, so it stays a caller decision.
	DropZero     bool
	DropScaffold bool
	// DropComments removes every remaining comment line.
	DropComments bool
}

// DefaultCleanPolicy drops blank, negative-duration, before-zero and template
// scaffold lines and keeps zero-duration lines.
func DefaultCleanPolicy() CleanPolicy {
	return CleanPolicy{DropBlank: true, DropNegative: true, DropScaffold: true}
}

// CleanStats counts removed lines per kind.
type CleanStats struct {
	Blank            int
	NegativeDuration int
	BeforeZero       int
	ZeroDuration     int
	Scaffold         int
	Comments         int
}

// Removed returns the total number of dropped lines.
func (c CleanStats) Removed() int {
	return c.Blank + c.NegativeDuration + c.BeforeZero + c.ZeroDuration + c.Scaffold + c.Comments
}

// Clean removes lines selected by policy in a single pass. Survivors keep
// their relative order and the input script is left untouched. Applying the
// same policy twice yields the same result as applying it once.
func Clean(s *Script, policy CleanPolicy) (*Script, CleanStats) {
	var stats CleanStats
	kept := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		if policy.drop(ev, &stats) {
			continue
		}
		kept = append(kept, ev)
	}
	out := s.Clone()
	out.Events = kept
	return out, stats
}

func (p CleanPolicy) drop(ev Event, stats *CleanStats) bool {
	switch {
	case p.DropScaffold && IsTemplateScaffold(ev):
		stats.Scaffold++
	case p.DropBlank && IsBlank(ev):
		stats.Blank++
	case p.DropNegative && IsNegativeDuration(ev):
		stats.NegativeDuration++
	case p.DropNegative && IsBeforeZero(ev):
		stats.BeforeZero++
	case p.DropZero && IsZeroDuration(ev):
		stats.ZeroDuration++
	case p.DropComments && ev.Comment:
		stats.Comments++
	default:
		return false
	}
	return true
}

// Census counts lines per Kind without removing anything.
func Census(s *Script, dialogue *regexp.Regexp) map[Kind]int {
	counts := make(map[Kind]int)
	for _, ev := range s.Events {
		counts[Classify(ev, dialogue)]++
	}
	return counts
}

// FilterStyles keeps (keep=true) or strips (keep=false) the lines whose style
// matches pattern. Order is preserved.
func FilterStyles(s *Script, pattern *regexp.Regexp, keep bool) *Script {
	out := s.Clone()
	out.Events = out.Events[:0]
	for _, ev := range s.Events {
		if IsDialogueStyle(ev, pattern) == keep {
			out.Events = append(out.Events, ev)
		}
	}
	return out
}
