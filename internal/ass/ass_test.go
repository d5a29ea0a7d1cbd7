package ass

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subforge/internal/script"
)

const sampleScript = "\ufeff[Script Info]\r\n" +
	"; Script generated by Aegisub\r\n" +
	"Title: Episode 01\r\n" +
	"ScriptType: v4.00+\r\n" +
	"PlayResX: 1920\r\n" +
	"PlayResY: 1080\r\n" +
	"WrapStyle: 0\r\n" +
	"ScaledBorderAndShadow: yes\r\n" +
	"YCbCr Matrix: TV.709\r\n" +
	"\r\n" +
	"[Aegisub Project Garbage]\r\n" +
	"Video File: premux.mkv\r\n" +
	"\r\n" +
	"[V4+ Styles]\r\n" +
	"Format: Name, Fontname, Fontsize\r\n" +
	"Style: Default,Gandhi Sans,72\r\n" +
	"Style: Sign,Arial,40\r\n" +
	"\r\n" +
	"[Events]\r\n" +
	"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\r\n" +
	"Dialogue: 0,0:00:10.00,0:00:12.50,Default,Ai,0,0,0,,Hello, world{*}{*-san}\r\n" +
	"Comment: 1,0:01:00.00,0:01:00.00,Sign,,0,0,0,chapter,Opening\r\n" +
	"Dialogue: 2,1:02:03.04,1:02:05.00,Sign,,10,20,30,, spaced text \r\n" +
	"\r\n" +
	"[Aegisub Extradata]\r\n" +
	"Data: 1,_aegi_perspective,e#0\r\n"

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleScript))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Info.Title != "Episode 01" || s.Info.PlayResX != 1920 || s.Info.PlayResY != 1080 || s.Info.WrapStyle != 0 {
		t.Fatalf("unexpected info %+v", s.Info)
	}
	if s.Info.ScaledBorderAndShadow == nil || !*s.Info.ScaledBorderAndShadow {
		t.Fatal("ScaledBorderAndShadow not decoded")
	}
	if len(s.Info.Extra) != 3 {
		t.Fatalf("expected 3 extension fields, got %+v", s.Info.Extra)
	}
	if v, ok := s.Info.Lookup("YCbCr Matrix"); !ok || v != "TV.709" {
		t.Fatalf("YCbCr Matrix = %q", v)
	}
	if len(s.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(s.Events))
	}

	first := s.Events[0]
	if first.Comment || first.Start != 10*time.Second || first.End != 12500*time.Millisecond {
		t.Fatalf("unexpected first event %+v", first)
	}
	if first.Actor != "Ai" || first.Text != "Hello, world{*}{*-san}" {
		t.Fatalf("text/actor not decoded: %+v", first)
	}
	if !s.Events[1].Comment || s.Events[1].Effect != "chapter" || s.Events[1].Layer != 1 {
		t.Fatalf("unexpected comment event %+v", s.Events[1])
	}
	third := s.Events[2]
	wantStart := time.Hour + 2*time.Minute + 3*time.Second + 40*time.Millisecond
	if third.Start != wantStart || third.MarginL != 10 || third.MarginV != 30 || third.Text != " spaced text " {
		t.Fatalf("unexpected third event %+v", third)
	}

	if names := s.StyleNames(); len(names) != 2 || names[1] != "Sign" {
		t.Fatalf("styles = %v", names)
	}
	extradata, ok := s.Section(script.SectionExtraData)
	if !ok || !extradata.AfterEvents {
		t.Fatalf("extradata section missing or misplaced: %+v", extradata)
	}
}

func TestRoundTripIsStable(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleScript))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var first bytes.Buffer
	if err := Encode(&first, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("Decode encoded: %v", err)
	}
	var second bytes.Buffer
	if err := Encode(&second, again); err != nil {
		t.Fatalf("Encode again: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("round trip unstable:\n%s\n---\n%s", first.String(), second.String())
	}
	for _, want := range []string{
		"; Script generated by Aegisub\n",
		"ScriptType: v4.00+\n",
		"YCbCr Matrix: TV.709\n",
		"[Aegisub Project Garbage]\nVideo File: premux.mkv\n",
		"Dialogue: 2,1:02:03.04,1:02:05.00,Sign,,10,20,30,, spaced text \n",
	} {
		if !strings.Contains(first.String(), want) {
			t.Errorf("encoded output missing %q", want)
		}
	}
	if strings.Index(first.String(), "[Events]") > strings.Index(first.String(), "[Aegisub Extradata]") {
		t.Fatal("extradata written before events")
	}
}

func TestScriptInfoRoundTripsVerbatim(t *testing.T) {
	info := "[Script Info]\n" +
		"; Script generated by Aegisub\n" +
		"ScriptType:v4.00+\n" +
		"PlayResY:  1080\n" +
		"Original Script :Kitsune\n" +
		"title: Episode 01\n" +
		"Collisions:\tNormal\n" +
		"ScaledBorderAndShadow: Yes\n" +
		"PlayResX: 1920\n" +
		"PlayResX: 1280\n" +
		"WrapStyle: 0\n"
	in := info + "\n[Events]\nFormat: " + strings.Join(DefaultEventFormat, ", ") + "\n"

	s, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Info.Title != "Episode 01" || s.Info.PlayResX != 1920 || s.Info.PlayResY != 1080 {
		t.Fatalf("unexpected info %+v", s.Info)
	}
	if v, ok := s.Info.Lookup("Original Script"); !ok || v != "Kitsune" {
		t.Fatalf("Original Script = %q", v)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, info+"\n") {
		t.Fatalf("script info changed:\n%s", got)
	}

	// A changed value is written in place under the source spelling.
	s.Info.Title = "Episode 02"
	s.Info.PlayResY = 720
	buf.Reset()
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := strings.NewReplacer("title: Episode 01", "title: Episode 02", "PlayResY:  1080", "PlayResY:  720").Replace(info)
	if got := buf.String(); !strings.HasPrefix(got, want+"\n") {
		t.Fatalf("updated script info:\n%s\nwant prefix:\n%s", got, want)
	}
}

func TestEncodeRejectsTimesBeforeZero(t *testing.T) {
	s := script.New()
	s.Events = []script.Event{
		{Start: 0, End: time.Second, Style: "OP", Text: "fine"},
		{Start: -4 * time.Second, End: -3 * time.Second, Style: "OP", Text: "pre-roll"},
	}
	err := Encode(&bytes.Buffer{}, s)
	if !errors.Is(err, ErrNegativeTimestamp) || !strings.Contains(err.Error(), "event 2") {
		t.Fatalf("expected negative timestamp error naming event 2, got %v", err)
	}
}

func TestExtensionOnlyScriptRoundTrips(t *testing.T) {
	s := script.New()
	s.Info.Extra = []script.Field{{Key: "Original Translation", Value: "someone"}, {Key: "Update Details", Value: "v2"}}
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(back.Events) != 0 || len(back.Info.Extra) != 2 || back.Info.Extra[1].Value != "v2" {
		t.Fatalf("extension fields lost: %+v", back.Info)
	}
	if back.Info.WrapStyle != script.WrapUnset || back.Info.ScaledBorderAndShadow != nil {
		t.Fatalf("unset fields materialised: %+v", back.Info)
	}
}

func TestDecodeMalformedTimestamp(t *testing.T) {
	input := "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\nDialogue: 0,0:00:xx.00,0:00:01.00,Default,,0,0,0,,text\n"
	_, err := Decode(strings.NewReader(input))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Line != 3 {
		t.Fatalf("line = %d, want 3", perr.Line)
	}
}

func TestDecodeWithoutFormatUsesDefault(t *testing.T) {
	input := "[Events]\nDialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,a,b\n"
	s, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(s.Events) != 1 || s.Events[0].Text != "a,b" {
		t.Fatalf("unexpected events %+v", s.Events)
	}
}

func TestTimestamps(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"0:00:00.00", 0},
		{"0:00:01.50", 1500 * time.Millisecond},
		{"0:01:00.01", time.Minute + 10*time.Millisecond},
		{"10:00:00.99", 10*time.Hour + 990*time.Millisecond},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if back, err := FormatTimestamp(got); err != nil || back != tt.in {
			t.Errorf("FormatTimestamp(%v) = %q, %v, want %q", got, back, err, tt.in)
		}
	}
	if got, err := FormatTimestamp(-time.Second); !errors.Is(err, ErrNegativeTimestamp) {
		t.Errorf("negative formats as %q, err %v", got, err)
	}
	if got, _ := FormatTimestamp(1234 * time.Millisecond); got != "0:00:01.23" {
		t.Errorf("rounding gave %q", got)
	}
	for _, bad := range []string{"", "1:2", "a:00:00.00", "0:00:-1.00"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("ParseTimestamp(%q) succeeded", bad)
		}
	}
}

func TestWriteFileReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.ass")
	s := script.New()
	s.Info.Title = "Out"
	s.Events = []script.Event{{Start: time.Second, End: 2 * time.Second, Style: "Default", Text: "hi"}}
	if err := WriteFile(path, s); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", ".out.ass.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if back.Info.Title != "Out" || len(back.Events) != 1 || back.Events[0].Text != "hi" {
		t.Fatalf("unexpected script %+v", back)
	}
}
