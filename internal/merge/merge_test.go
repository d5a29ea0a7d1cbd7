package merge

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"subforge/internal/ass"
	"subforge/internal/script"
)

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func dialogueScript() *script.Script {
	s := script.New()
	s.Info.Title = "Dialogue"
	s.Info.PlayResX, s.Info.PlayResY = 1920, 1080
	s.Info.Extra = []script.Field{{Value: "; comment"}, {Key: "YCbCr Matrix", Value: "TV.709"}}
	s.Sections = []script.Section{
		{Name: script.SectionProjectGarbage, Lines: []string{"Video File: premux.mkv"}},
		{Name: script.SectionStyles, Lines: []string{"Format: Name, Fontname", "Style: Default,Gandhi Sans"}},
		{Name: script.SectionExtraData, Lines: []string{"Data: 1,x,y"}, AfterEvents: true},
	}
	for i := 0; i < 6; i++ {
		ev := script.Event{Start: secs(10 + float64(i)*8), End: secs(12 + float64(i)*8), Style: "Default", Text: "line"}
		s.Events = append(s.Events, ev)
	}
	s.Events[5].Start = secs(42)
	s.Events[5].End = secs(43)
	s.Events[5].Effect = "opsync"
	return s
}

func openingScript() *script.Script {
	s := script.New()
	s.Sections = []script.Section{
		{Name: script.SectionStyles, Lines: []string{"Format: Name, Fontname", "Style: Default,Other Font", "Style: OP-Romaji,Fancy"}},
	}
	s.Events = []script.Event{
		{Start: 0, End: secs(1), Style: "OP-Romaji", Effect: "sync", Text: "first"},
		{Start: secs(2), End: secs(4.5), Style: "OP-Romaji", Text: "second"},
		{Start: secs(80), End: secs(89), Style: "OP-Romaji", Layer: 1, Text: "last"},
	}
	return s
}

func TestMergeShiftsSyncedFragment(t *testing.T) {
	anchor := dialogueScript()
	op := openingScript()
	merged, err := Merge([]Source{
		{Name: "dialogue", Script: anchor},
		{Name: "OP", Script: op, Sync: &SyncSpec{SourceIndex: 0, TargetIndex: 5}},
	}, Options{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged.Events) != len(anchor.Events)+len(op.Events) {
		t.Fatalf("merged %d lines, want %d", len(merged.Events), len(anchor.Events)+len(op.Events))
	}
	if !reflect.DeepEqual(merged.Events[:6], anchor.Events) {
		t.Fatal("anchor lines changed")
	}
	for i, ev := range merged.Events[6:] {
		orig := op.Events[i]
		if ev.Start != orig.Start+42*time.Second || ev.End != orig.End+42*time.Second {
			t.Errorf("line %d: got %v-%v, want shift of 42s from %v-%v", i, ev.Start, ev.End, orig.Start, orig.End)
		}
		if ev.Text != orig.Text || ev.Layer != orig.Layer {
			t.Errorf("line %d payload changed: %+v", i, ev)
		}
	}
	if op.Events[0].Start != 0 {
		t.Fatal("fragment mutated")
	}
}

func TestMergeResolvesMarkers(t *testing.T) {
	merged, err := Merge([]Source{
		{Name: "dialogue", Script: dialogueScript()},
		{Name: "OP", Script: openingScript(), Markers: &SyncMarkers{Source: "sync", Target: "opsync"}},
	}, Options{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := merged.Events[6].Start; got != 42*time.Second {
		t.Fatalf("first OP line starts at %v, want 42s", got)
	}
}

func TestPreRollShiftedBeforeZeroIsDropped(t *testing.T) {
	anchor := script.New()
	anchor.Events = []script.Event{
		{Start: time.Second, End: 2 * time.Second, Style: "Default", Effect: "opsync", Text: "cue"},
	}
	op := script.New()
	op.Events = []script.Event{
		{Start: 0, End: time.Second, Style: "OP", Text: "pre-roll"},
		{Start: 5 * time.Second, End: 6 * time.Second, Style: "OP", Effect: "sync", Text: "first"},
	}
	merged, err := Merge([]Source{
		{Name: "dialogue", Script: anchor},
		{Name: "OP", Script: op, Markers: &SyncMarkers{Source: "sync", Target: "opsync"}},
	}, Options{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if pre := merged.Events[1]; pre.Start != -4*time.Second || pre.End != -3*time.Second {
		t.Fatalf("pre-roll shifted to %v-%v, want -4s to -3s", pre.Start, pre.End)
	}
	if err := ass.Encode(&bytes.Buffer{}, merged); !errors.Is(err, ass.ErrNegativeTimestamp) {
		t.Fatalf("encoding a line before zero should fail, got %v", err)
	}

	policy := script.DefaultCleanPolicy()
	policy.DropZero = true
	cleaned, stats := script.Clean(merged, policy)
	if stats.BeforeZero != 1 || len(cleaned.Events) != 2 {
		t.Fatalf("stats %+v, %d lines left", stats, len(cleaned.Events))
	}
	var buf bytes.Buffer
	if err := ass.Encode(&buf, cleaned); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(buf.String(), "pre-roll") || !strings.Contains(buf.String(), "0:00:01.00,0:00:02.00,OP,,0,0,0,sync,first") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestMergeAbsoluteSourcesAndLayers(t *testing.T) {
	ts := script.New()
	ts.Events = []script.Event{{Start: secs(30), End: secs(31), Layer: 2, Style: "Sign", Text: "sign"}}
	merged, err := Merge([]Source{
		{Script: dialogueScript(), LayerOffset: 1},
		{Script: ts, LayerOffset: 10},
	}, Options{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Events[0].Layer != 1 {
		t.Fatalf("anchor layer = %d, want 1", merged.Events[0].Layer)
	}
	last := merged.Events[len(merged.Events)-1]
	if last.Start != secs(30) || last.Layer != 12 {
		t.Fatalf("absolute source line = %+v", last)
	}
}

func TestMergeSyncOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		spec SyncSpec
		role string
	}{
		{name: "source", spec: SyncSpec{SourceIndex: 3, TargetIndex: 0}, role: "source"},
		{name: "target", spec: SyncSpec{SourceIndex: 0, TargetIndex: 6}, role: "target"},
		{name: "negative", spec: SyncSpec{SourceIndex: -1, TargetIndex: 0}, role: "source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge([]Source{
				{Name: "dialogue", Script: dialogueScript()},
				{Name: "OP", Script: openingScript(), Sync: &tt.spec},
			}, Options{})
			var serr *SyncError
			if !errors.As(err, &serr) {
				t.Fatalf("expected SyncError, got %v", err)
			}
			if serr.Role != tt.role || serr.Source != "OP" {
				t.Fatalf("unexpected error %+v", serr)
			}
		})
	}
}

func TestMergeMissingMarker(t *testing.T) {
	_, err := Merge([]Source{
		{Name: "dialogue", Script: dialogueScript()},
		{Name: "ED", Script: openingScript(), Markers: &SyncMarkers{Source: "sync", Target: "edsync"}},
	}, Options{})
	var serr *SyncError
	if !errors.As(err, &serr) || serr.Marker != "edsync" || serr.Role != "target" {
		t.Fatalf("expected target marker error, got %v", err)
	}
}

func TestMergeMetadata(t *testing.T) {
	wrap := script.WrapNone
	yes := true
	merged, err := Merge([]Source{
		{Script: dialogueScript()},
		{Script: openingScript()},
	}, Options{
		Title:                 "Group",
		WrapStyle:             &wrap,
		ScaledBorderAndShadow: &yes,
		FallbackResX:          640,
		FallbackResY:          360,
		Fields:                []script.Field{{Key: "Original Script", Value: "Group"}},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	info := merged.Info
	if info.Title != "Group" || info.WrapStyle != script.WrapNone || info.ScaledBorderAndShadow == nil || !*info.ScaledBorderAndShadow {
		t.Fatalf("overrides not applied: %+v", info)
	}
	if info.PlayResX != 1920 || info.PlayResY != 1080 {
		t.Fatalf("anchor canvas replaced by fallback: %dx%d", info.PlayResX, info.PlayResY)
	}
	if v, _ := info.Lookup("YCbCr Matrix"); v != "TV.709" || info.Extra[0].Value != "; comment" {
		t.Fatalf("extension fields lost: %+v", info.Extra)
	}
	if v, _ := info.Lookup("Original Script"); v != "Group" {
		t.Fatalf("field override missing: %+v", info.Extra)
	}
	if _, ok := merged.Section(script.SectionProjectGarbage); ok {
		t.Fatal("project garbage kept")
	}
	if _, ok := merged.Section(script.SectionExtraData); ok {
		t.Fatal("extradata kept")
	}
	if got := merged.StyleNames(); !reflect.DeepEqual(got, []string{"Default", "OP-Romaji"}) {
		t.Fatalf("styles = %v", got)
	}
	styles, _ := merged.Section(script.SectionStyles)
	if styles.Lines[1] != "Style: Default,Gandhi Sans" {
		t.Fatalf("first style definition did not win: %v", styles.Lines)
	}
}

func TestMergeCanvasFallback(t *testing.T) {
	s := script.New()
	merged, err := Merge([]Source{{Script: s}}, Options{FallbackResX: 1280, FallbackResY: 720})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Info.PlayResX != 1280 || merged.Info.PlayResY != 720 {
		t.Fatalf("fallback not applied: %+v", merged.Info)
	}
	forced, _ := Merge([]Source{{Script: dialogueScript()}}, Options{PlayResX: 640, PlayResY: 480})
	if forced.Info.PlayResX != 640 || forced.Info.PlayResY != 480 {
		t.Fatalf("explicit canvas not applied: %+v", forced.Info)
	}
}

func TestMergeExtensionOnlyScriptUnchanged(t *testing.T) {
	s := script.New()
	s.Info.Extra = []script.Field{{Key: "Original Translation", Value: "someone"}, {Key: "Timing", Value: "other"}}
	merged, err := Merge([]Source{{Script: s}}, Options{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !reflect.DeepEqual(merged.Info, s.Info) {
		t.Fatalf("metadata changed: %+v vs %+v", merged.Info, s.Info)
	}
	if len(merged.Events) != 0 {
		t.Fatalf("expected no lines, got %d", len(merged.Events))
	}
}

func TestMergeRejectsEmptyInput(t *testing.T) {
	if _, err := Merge(nil, Options{}); err == nil {
		t.Fatal("expected error for no sources")
	}
	if _, err := Merge([]Source{{Name: "x"}}, Options{}); err == nil {
		t.Fatal("expected error for nil script")
	}
}
