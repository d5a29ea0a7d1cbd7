package mkvmerge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"subforge/internal/media/command"
)

const sampleIdentification = `{
  "container": {"recognized": true, "supported": true, "type": "Matroska"},
  "errors": [],
  "warnings": [],
  "tracks": [
    {"id": 0, "type": "video", "codec": "HEVC/H.265/MPEG-H",
     "properties": {"language": "jpn", "default_track": true, "pixel_dimensions": "1920x1080", "display_dimensions": "1920x1080"}},
    {"id": 1, "type": "audio", "codec": "Opus",
     "properties": {"language": "jpn", "track_name": "Opus 2.0", "audio_channels": 2, "audio_sampling_frequency": 48000, "flag_original": true}},
    {"id": 2, "type": "audio", "codec": "AAC",
     "properties": {"language": "eng", "audio_channels": 2}}
  ]
}`

func TestParse(t *testing.T) {
	id, err := Parse([]byte(sampleIdentification))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(id.Tracks) != 3 || id.Container.Type != "Matroska" {
		t.Fatalf("unexpected identification %+v", id)
	}
	video := id.Tracks[0].Properties
	if w, h, ok := Dimensions(video.PixelDimensions); !ok || w != 1920 || h != 1080 {
		t.Fatalf("pixel dimensions = %dx%d %v", w, h, ok)
	}
	audio := id.Tracks[1].Properties
	if audio.TrackName == nil || *audio.TrackName != "Opus 2.0" || audio.FlagOriginal == nil || !*audio.FlagOriginal {
		t.Fatalf("audio properties not decoded: %+v", audio)
	}
	if audio.ForcedTrack != nil || audio.BitsPerSample != nil {
		t.Fatal("absent properties decoded as present")
	}
}

func TestParseRejectsUnexpectedShape(t *testing.T) {
	tests := map[string]string{
		"missing tracks": `{"container": {"recognized": true}}`,
		"string id":      `{"container": {"recognized": true}, "tracks": [{"id": "0", "type": "video", "codec": "x"}]}`,
		"bad dimensions": `{"container": {"recognized": true}, "tracks": [{"id": 0, "type": "video", "codec": "x", "properties": {"pixel_dimensions": "wide"}}]}`,
		"not recognized": `{"container": {"recognized": false}, "errors": ["unknown format"], "tracks": []}`,
		"not even json":  `mkvmerge v80`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(input)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestIdentify(t *testing.T) {
	var gotName string
	var gotArgs []string
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(sampleIdentification), &command.Error{Tool: name, ExitCode: 1, Err: errors.New("exit status 1")}
	}
	id, err := Identify(context.Background(), run, "", "premux.mkv")
	if err != nil {
		t.Fatalf("warnings exit should succeed: %v", err)
	}
	if gotName != "mkvmerge" || strings.Join(gotArgs, " ") != "-J premux.mkv" {
		t.Fatalf("unexpected invocation %s %v", gotName, gotArgs)
	}
	if len(id.Tracks) != 3 {
		t.Fatalf("tracks = %d", len(id.Tracks))
	}
}

func TestIdentifyToolFailure(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, &command.Error{Tool: name, ExitCode: 2, Stdout: "Error: the file could not be opened", Err: errors.New("exit status 2")}
	}
	_, err := Identify(context.Background(), run, "/opt/mkvmerge", "premux.mkv")
	var toolErr *command.Error
	if !errors.As(err, &toolErr) || toolErr.ExitCode != 2 {
		t.Fatalf("expected tool error, got %v", err)
	}
	if _, err := Identify(context.Background(), run, "", ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDimensions(t *testing.T) {
	bad := "1920"
	if _, _, ok := Dimensions(&bad); ok {
		t.Fatal("expected failure without separator")
	}
	if _, _, ok := Dimensions(nil); ok {
		t.Fatal("expected failure for nil")
	}
}
