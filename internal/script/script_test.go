package script

import (
	"reflect"
	"regexp"
	"testing"
	"time"
)

func sec(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func TestLinePredicates(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		blank    bool
		negative bool
		zero     bool
		scaffold bool
	}{
		{name: "dialogue", event: Event{Start: sec(1), End: sec(2), Text: "hello"}},
		{name: "blank comment", event: Event{Comment: true, Start: sec(1), End: sec(2)}, blank: true},
		{name: "blank dialogue", event: Event{Start: sec(1), End: sec(2)}, blank: true},
		{name: "actor only", event: Event{Start: sec(1), End: sec(2), Actor: "Ai"}},
		{name: "negative", event: Event{Start: sec(3), End: sec(2), Text: "x"}, negative: true},
		{name: "zero", event: Event{Start: sec(2), End: sec(2), Text: "x"}, zero: true},
		{name: "template comment", event: Event{Comment: true, Effect: "template syl", Text: "{\\k}"}, zero: true, scaffold: true},
		{name: "code comment", event: Event{Comment: true, Effect: "code once", Start: 0, End: sec(1)}, scaffold: true},
		{name: "mixin comment", event: Event{Comment: true, Effect: "mixin line", Start: 0, End: sec(1)}, scaffold: true},
		{name: "template not comment", event: Event{Effect: "template syl", Start: 0, End: sec(1)}},
		{name: "karaoke effect comment", event: Event{Comment: true, Effect: "karaoke", Start: 0, End: sec(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlank(tt.event); got != tt.blank {
				t.Errorf("IsBlank = %v, want %v", got, tt.blank)
			}
			if got := IsNegativeDuration(tt.event); got != tt.negative {
				t.Errorf("IsNegativeDuration = %v, want %v", got, tt.negative)
			}
			if got := IsZeroDuration(tt.event); got != tt.zero {
				t.Errorf("IsZeroDuration = %v, want %v", got, tt.zero)
			}
			if got := IsTemplateScaffold(tt.event); got != tt.scaffold {
				t.Errorf("IsTemplateScaffold = %v, want %v", got, tt.scaffold)
			}
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	dialogue := regexp.MustCompile(`^(Default|Alt)`)
	tests := []struct {
		event Event
		want  Kind
	}{
		{Event{Comment: true, Effect: "template", Start: sec(2), End: sec(1)}, KindScaffold},
		{Event{Style: "Default", Start: sec(1), End: sec(2)}, KindBlank},
		{Event{Style: "Default", Start: sec(2), End: sec(1), Text: "x"}, KindNegativeDuration},
		{Event{Style: "Default", Start: sec(-4), End: sec(-3), Text: "x"}, KindBeforeZero},
		{Event{Style: "Default", Start: sec(-1), End: sec(2), Text: "x"}, KindBeforeZero},
		{Event{Style: "Default", Start: sec(-1), End: sec(-1), Text: "x"}, KindBeforeZero},
		{Event{Style: "Default", Start: sec(1), End: sec(1), Text: "x"}, KindZeroDuration},
		{Event{Style: "Alt", Start: sec(1), End: sec(2), Text: "x"}, KindDialogue},
		{Event{Style: "Sign", Start: sec(1), End: sec(2), Text: "x"}, KindPlain},
	}
	for _, tt := range tests {
		if got := Classify(tt.event, dialogue); got != tt.want {
			t.Errorf("Classify(%+v) = %s, want %s", tt.event, got, tt.want)
		}
	}
}

func TestIsDialogueStyleNilPattern(t *testing.T) {
	if IsDialogueStyle(Event{Style: "Default"}, nil) {
		t.Fatal("nil pattern should match nothing")
	}
}

func sampleScript() *Script {
	s := New()
	s.Info.Title = "Sample"
	s.Info.Extra = []Field{{Key: "YCbCr Matrix", Value: "TV.709"}}
	s.Sections = []Section{{Name: SectionStyles, Lines: []string{"Format: Name, Fontname", "Style: Default,Arial"}}}
	s.Events = []Event{
		{Start: sec(1), End: sec(2), Style: "Default", Text: "one"},
		{Start: sec(2), End: sec(2), Style: "Default"},
		{Start: sec(4), End: sec(3), Style: "Default", Text: "backwards"},
		{Comment: true, Effect: "template line", Style: "Kara"},
		{Start: sec(5), End: sec(5), Style: "Sign", Text: "flash"},
		{Comment: true, Start: sec(6), End: sec(7), Style: "Default", Text: "note"},
		{Start: sec(8), End: sec(9), Style: "Default", Text: "two"},
	}
	return s
}

func TestCleanDefaultPolicy(t *testing.T) {
	in := sampleScript()
	out, stats := Clean(in, DefaultCleanPolicy())

	var texts []string
	for _, ev := range out.Events {
		texts = append(texts, ev.Text)
	}
	want := []string{"one", "flash", "note", "two"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("survivors = %q, want %q", texts, want)
	}
	if stats.Blank != 1 || stats.NegativeDuration != 1 || stats.Scaffold != 1 || stats.ZeroDuration != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Removed() != 3 {
		t.Fatalf("Removed = %d, want 3", stats.Removed())
	}
	if len(in.Events) != 7 {
		t.Fatalf("input mutated: %d events", len(in.Events))
	}
}

func TestCleanZeroDurationFlag(t *testing.T) {
	policy := DefaultCleanPolicy()
	policy.DropZero = true
	out, stats := Clean(sampleScript(), policy)
	for _, ev := range out.Events {
		if ev.End == ev.Start {
			t.Fatalf("zero-duration line survived: %+v", ev)
		}
	}
	if stats.ZeroDuration != 1 {
		t.Fatalf("ZeroDuration = %d, want 1", stats.ZeroDuration)
	}
}

func TestCleanNegativeWithoutBlankDrop(t *testing.T) {
	s := New()
	s.Events = []Event{{Start: sec(3), End: sec(1)}}
	out, _ := Clean(s, CleanPolicy{DropNegative: true})
	if len(out.Events) != 0 {
		t.Fatalf("blank negative-duration line survived")
	}
}

func TestCleanDropsLinesBeforeZero(t *testing.T) {
	s := New()
	s.Events = []Event{
		{Start: sec(-4), End: sec(-3), Style: "OP", Text: "pre-roll"},
		{Start: sec(-0.5), End: sec(1), Style: "OP", Text: "straddles"},
		{Start: 0, End: sec(1), Style: "OP", Text: "kept"},
	}
	policy := DefaultCleanPolicy()
	policy.DropZero = true
	out, stats := Clean(s, policy)
	if len(out.Events) != 1 || out.Events[0].Text != "kept" {
		t.Fatalf("survivors = %+v", out.Events)
	}
	if stats.BeforeZero != 2 || stats.ZeroDuration != 0 || stats.Removed() != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	policies := []CleanPolicy{
		DefaultCleanPolicy(),
		{DropBlank: true, DropNegative: true},
		{DropBlank: true, DropNegative: true, DropZero: true, DropScaffold: true, DropComments: true},
		{},
	}
	for _, policy := range policies {
		once, _ := Clean(sampleScript(), policy)
		twice, stats := Clean(once, policy)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("policy %+v not idempotent", policy)
		}
		if stats.Removed() != 0 {
			t.Fatalf("second pass removed %d lines", stats.Removed())
		}
	}
}

func TestFilterStyles(t *testing.T) {
	dialogue := regexp.MustCompile(`^Default$`)
	signs := FilterStyles(sampleScript(), dialogue, false)
	for _, ev := range signs.Events {
		if ev.Style == "Default" {
			t.Fatalf("dialogue line kept: %+v", ev)
		}
	}
	if len(signs.Events) != 2 {
		t.Fatalf("expected 2 non-dialogue lines, got %d", len(signs.Events))
	}
	only := FilterStyles(sampleScript(), dialogue, true)
	if len(only.Events) != 5 {
		t.Fatalf("expected 5 dialogue lines, got %d", len(only.Events))
	}
}

func TestCloneIsDeep(t *testing.T) {
	in := sampleScript()
	yes := true
	in.Info.ScaledBorderAndShadow = &yes
	cp := in.Clone()
	cp.Events[0].Text = "changed"
	cp.Info.Extra[0].Value = "changed"
	cp.Sections[0].Lines[1] = "changed"
	*cp.Info.ScaledBorderAndShadow = false

	if in.Events[0].Text != "one" || in.Info.Extra[0].Value != "TV.709" || in.Sections[0].Lines[1] != "Style: Default,Arial" || !*in.Info.ScaledBorderAndShadow {
		t.Fatal("clone shares state with the original")
	}
}

func TestStyleNamesAndInfoLookup(t *testing.T) {
	s := sampleScript()
	if got := s.StyleNames(); !reflect.DeepEqual(got, []string{"Default"}) {
		t.Fatalf("StyleNames = %v", got)
	}
	if v, ok := s.Info.Lookup("ycbcr matrix"); !ok || v != "TV.709" {
		t.Fatalf("Lookup = %q, %v", v, ok)
	}
	s.Info.Set("YCbCr Matrix", "None")
	s.Info.Set("Video File", "ep.mkv")
	if len(s.Info.Extra) != 2 || s.Info.Extra[0].Value != "None" {
		t.Fatalf("Set produced %+v", s.Info.Extra)
	}
}

func TestCensus(t *testing.T) {
	counts := Census(sampleScript(), regexp.MustCompile(`^Default$`))
	if counts[KindDialogue] != 3 || counts[KindBlank] != 1 || counts[KindScaffold] != 1 {
		t.Fatalf("unexpected census %v", counts)
	}
}
