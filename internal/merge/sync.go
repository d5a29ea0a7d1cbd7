package merge

import (
	"fmt"
	"strings"
	"time"

	"subforge/internal/script"
)

// SyncSpec ties a fragment line to an anchor line: the fragment line at
// SourceIndex plays at the same time as the anchor line at TargetIndex.
type SyncSpec struct {
	SourceIndex int
	TargetIndex int
}

// SyncMarkers names the sync lines instead of indexing them. A line matches
// a marker when its effect or actor equals it.
type SyncMarkers struct {
	Source string
	Target string
}

// SyncError reports a sync reference that does not resolve to a line.
type SyncError struct {
	Source string
	// Role is "source" for the fragment side and "target" for the anchor side.
	Role   string
	Index  int
	Lines  int
	Marker string
}

func (e *SyncError) Error() string {
	if e.Marker != "" {
		return fmt.Sprintf("merge %s: no %s line marked %q among %d lines", e.Source, e.Role, e.Marker, e.Lines)
	}
	return fmt.Sprintf("merge %s: sync %s index %d out of range (%d lines)", e.Source, e.Role, e.Index, e.Lines)
}

// ResolveSync finds the first line carrying each marker and returns the
// matching SyncSpec.
func ResolveSync(name string, anchor, fragment *script.Script, markers SyncMarkers) (SyncSpec, error) {
	src := findMarker(fragment.Events, markers.Source)
	if src < 0 {
		return SyncSpec{}, &SyncError{Source: name, Role: "source", Index: -1, Lines: len(fragment.Events), Marker: markers.Source}
	}
	dst := findMarker(anchor.Events, markers.Target)
	if dst < 0 {
		return SyncSpec{}, &SyncError{Source: name, Role: "target", Index: -1, Lines: len(anchor.Events), Marker: markers.Target}
	}
	return SyncSpec{SourceIndex: src, TargetIndex: dst}, nil
}

func findMarker(events []script.Event, marker string) int {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return -1
	}
	for i, ev := range events {
		if strings.TrimSpace(ev.Effect) == marker || strings.TrimSpace(ev.Actor) == marker {
			return i
		}
	}
	return -1
}

// Offset returns anchor[TargetIndex].Start - fragment[SourceIndex].Start.
func Offset(name string, anchor, fragment []script.Event, spec SyncSpec) (time.Duration, error) {
	if spec.SourceIndex < 0 || spec.SourceIndex >= len(fragment) {
		return 0, &SyncError{Source: name, Role: "source", Index: spec.SourceIndex, Lines: len(fragment)}
	}
	if spec.TargetIndex < 0 || spec.TargetIndex >= len(anchor) {
		return 0, &SyncError{Source: name, Role: "target", Index: spec.TargetIndex, Lines: len(anchor)}
	}
	return anchor[spec.TargetIndex].Start - fragment[spec.SourceIndex].Start, nil
}
