package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "premux.mkv")
	if err := os.WriteFile(path, []byte("mkv"), 0o644); err != nil {
		t.Fatalf("write container: %v", err)
	}
	return path
}

func TestProbeCanonicalOrder(t *testing.T) {
	inspector := InspectorFunc(func(ctx context.Context, path string) ([]Track, error) {
		return []Track{
			{ID: 2, Type: TypeSubtitle},
			{ID: 0, Type: TypeVideo},
			{ID: 1, Type: TypeAudio},
		}, nil
	})
	tracks, err := New(inspector, nil).Probe(context.Background(), touch(t))
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	want := []struct {
		id  int
		typ TrackType
	}{{0, TypeVideo}, {1, TypeAudio}, {2, TypeSubtitle}}
	if len(tracks) != len(want) {
		t.Fatalf("got %d tracks", len(tracks))
	}
	for i, w := range want {
		if tracks[i].ID != w.id || tracks[i].Type != w.typ {
			t.Errorf("track %d = %d:%s, want %d:%s", i, tracks[i].ID, tracks[i].Type, w.id, w.typ)
		}
	}
}

func TestCanonicalSortsWithinType(t *testing.T) {
	in := []Track{
		{ID: 7, Type: TypeOther},
		{ID: 4, Type: TypeAudio},
		{ID: 5, Type: TypeSubtitle},
		{ID: 2, Type: TypeAudio},
		{ID: 3, Type: TypeVideo},
	}
	out := Canonical(in)
	ids := []int{out[0].ID, out[1].ID, out[2].ID, out[3].ID, out[4].ID}
	want := []int{3, 2, 4, 5, 7}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
	if in[0].ID != 7 {
		t.Fatal("input reordered")
	}
}

func TestProbeMissingFile(t *testing.T) {
	called := false
	inspector := InspectorFunc(func(ctx context.Context, path string) ([]Track, error) {
		called = true
		return nil, nil
	})
	tracks, err := New(inspector, nil).Probe(context.Background(), filepath.Join(t.TempDir(), "absent.mkv"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if tracks == nil || len(tracks) != 0 || called {
		t.Fatalf("expected empty list without inspection, got %v (called=%v)", tracks, called)
	}
}

func TestProbeToolFailure(t *testing.T) {
	inspector := InspectorFunc(func(ctx context.Context, path string) ([]Track, error) {
		return nil, &ToolError{Tool: "mkvmerge", ExitCode: 2, Stderr: "unsupported container", Err: errors.New("exit status 2")}
	})
	_, err := New(inspector, nil).Probe(context.Background(), touch(t))
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Stderr != "unsupported container" {
		t.Fatalf("expected ToolError, got %v", err)
	}
}

func TestMkvmergeInspector(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{
  "container": {"recognized": true, "supported": true, "type": "Matroska"},
  "tracks": [
    {"id": 2, "type": "subtitles", "codec": "SubStationAlpha", "properties": {"language": "eng", "forced_track": true}},
    {"id": 0, "type": "video", "codec": "HEVC", "properties": {"pixel_dimensions": "1920x1080", "display_dimensions": "1920x1080"}},
    {"id": 1, "type": "audio", "codec": "Opus", "properties": {"language": "jpn", "audio_channels": 2}}
  ]
}`), nil
	}
	tracks, err := New(MkvmergeInspector{Run: run}, nil).Probe(context.Background(), touch(t))
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if tracks[0].Type != TypeVideo || tracks[2].Type != TypeSubtitle {
		t.Fatalf("unexpected order %+v", tracks)
	}
	if w, ok := tracks[0].Props.PixelWidth.Get(); !ok || w != 1920 {
		t.Fatalf("pixel width = %d, %v", w, ok)
	}
	if ch, _ := tracks[1].Props.Channels.Get(); ch != 2 || !tracks[1].LanguageIs("ja") {
		t.Fatalf("audio props = %+v", tracks[1].Props)
	}
	if forced, ok := tracks[2].Props.Forced.Get(); !ok || !forced {
		t.Fatal("forced flag lost")
	}
	if tracks[1].Props.Forced.Present() || tracks[0].Props.Language.String() != Placeholder {
		t.Fatal("absent properties reported as present")
	}
}

func TestFFprobeInspector(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Fatalf("unexpected binary %s", name)
		}
		return []byte(`{"streams": [
  {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2, "bits_per_raw_sample": "0",
   "disposition": {"default": 0, "forced": 0}, "tags": {"language": "eng"}},
  {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720, "disposition": {"default": 1}},
  {"index": 2, "codec_name": "ttf", "codec_type": "attachment"}
], "format": {"duration": "10"}}`), nil
	}
	tracks, err := FFprobeInspector{Run: run}.Inspect(context.Background(), "premux.mkv")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	tracks = Canonical(tracks)
	if tracks[0].ID != 0 || tracks[1].ID != 1 || tracks[2].Type != TypeOther {
		t.Fatalf("unexpected tracks %+v", tracks)
	}
	audio := tracks[1].Props
	if rate, _ := audio.SampleRate.Get(); rate != 48000 || audio.BitDepth.Present() {
		t.Fatalf("audio props = %+v", audio)
	}
	if def, ok := audio.Default.Get(); !ok || def {
		t.Fatal("default flag should be present and false")
	}
	if !tracks[1].LanguageIs("eng") {
		t.Fatal("language not decoded")
	}
}

func TestNewInspector(t *testing.T) {
	if _, err := NewInspector("mkvmerge", "", "", nil); err != nil {
		t.Fatalf("mkvmerge: %v", err)
	}
	if in, err := NewInspector("FFprobe", "", "/usr/bin/ffprobe", nil); err != nil || in.(FFprobeInspector).Binary != "/usr/bin/ffprobe" {
		t.Fatalf("ffprobe: %v", err)
	}
	if _, err := NewInspector("mediainfo", "", "", nil); err == nil {
		t.Fatal("expected error for unknown prober")
	}
}

func TestOptionalString(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{Optional[string]{}.String(), "-"},
		{Some("").String(), "-"},
		{Some("jpn").String(), "jpn"},
		{Some(true).String(), "yes"},
		{Some(false).String(), "no"},
		{Some(48000).String(), "48000"},
		{Optional[int]{}.String(), "-"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
	if (Optional[int]{}).Or(7) != 7 || Some(3).Or(7) != 3 {
		t.Fatal("Or fallback wrong")
	}
}
