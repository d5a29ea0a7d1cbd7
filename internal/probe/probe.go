// Package probe reads the track layout of an existing container and returns
// it in canonical order: video, audio, subtitle, other, each by ascending id.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"subforge/internal/language"
	"subforge/internal/logging"
	"subforge/internal/media/command"
	"subforge/internal/media/ffprobe"
	"subforge/internal/media/mkvmerge"
)

// TrackType is the kind of a track.
type TrackType string

const (
	TypeVideo    TrackType = "video"
	TypeAudio    TrackType = "audio"
	TypeSubtitle TrackType = "subtitle"
	TypeOther    TrackType = "other"
)

func (t TrackType) rank() int {
	switch t {
	case TypeVideo:
		return 0
	case TypeAudio:
		return 1
	case TypeSubtitle:
		return 2
	default:
		return 3
	}
}

// ParseTrackType maps the tool spellings onto a TrackType.
func ParseTrackType(value string) TrackType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "video":
		return TypeVideo
	case "audio":
		return TypeAudio
	case "subtitle", "subtitles":
		return TypeSubtitle
	default:
		return TypeOther
	}
}

// Props are the optional per-track properties.
type Props struct {
	Language        Optional[string]
	Name            Optional[string]
	Default         Optional[bool]
	Forced          Optional[bool]
	Original        Optional[bool]
	HearingImpaired Optional[bool]

	PixelWidth    Optional[int]
	PixelHeight   Optional[int]
	DisplayWidth  Optional[int]
	DisplayHeight Optional[int]

	Channels   Optional[int]
	SampleRate Optional[int]
	BitDepth   Optional[int]
}

// Track is an immutable snapshot of one container track.
type Track struct {
	ID    int
	Type  TrackType
	Codec string
	Props Props
}

// LanguageIs reports whether the track's language matches code in any ISO
// 639 form.
func (t Track) LanguageIs(code string) bool {
	lang, ok := t.Props.Language.Get()
	if !ok {
		return false
	}
	return language.ToISO3(lang) == language.ToISO3(code)
}

// ToolError is an external inspector failure with its diagnostic output.
type ToolError = command.Error

// Inspector returns the tracks of a container in whatever order the tool
// reports them.
type Inspector interface {
	Inspect(ctx context.Context, path string) ([]Track, error)
}

// InspectorFunc adapts a function to Inspector.
type InspectorFunc func(ctx context.Context, path string) ([]Track, error)

// Inspect calls f.
func (f InspectorFunc) Inspect(ctx context.Context, path string) ([]Track, error) {
	return f(ctx, path)
}

// Prober probes containers through an Inspector.
type Prober struct {
	inspector Inspector
	logger    *slog.Logger
}

// New constructs a Prober.
func New(inspector Inspector, logger *slog.Logger) *Prober {
	return &Prober{inspector: inspector, logger: logging.NewComponentLogger(logger, "probe")}
}

// Probe returns the canonical track list. A missing file yields no tracks and
// no error.
func (p *Prober) Probe(ctx context.Context, path string) ([]Track, error) {
	if p == nil || p.inspector == nil {
		return nil, errors.New("probe: no inspector configured")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.logger.Info("container absent, no tracks",
				logging.String(logging.FieldEventType, "probe_container_absent"),
				logging.String("path", path),
			)
			return []Track{}, nil
		}
		return nil, fmt.Errorf("probe: stat %s: %w", path, err)
	}
	tracks, err := p.inspector.Inspect(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	sorted := Canonical(tracks)
	p.logger.Debug("container probed",
		logging.String(logging.FieldEventType, "probe_complete"),
		logging.String("path", path),
		logging.Int("track_count", len(sorted)),
	)
	return sorted, nil
}

// Canonical returns a sorted copy of tracks.
func Canonical(tracks []Track) []Track {
	out := append([]Track(nil), tracks...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Type.rank(), out[j].Type.rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Filter returns the tracks of one type, keeping their order.
func Filter(tracks []Track, typ TrackType) []Track {
	var out []Track
	for _, t := range tracks {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

// MkvmergeInspector identifies containers with `mkvmerge -J`.
type MkvmergeInspector struct {
	Binary string
	Run    command.Runner
}

// Inspect implements Inspector.
func (m MkvmergeInspector) Inspect(ctx context.Context, path string) ([]Track, error) {
	id, err := mkvmerge.Identify(ctx, m.Run, m.Binary, path)
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, 0, len(id.Tracks))
	for _, t := range id.Tracks {
		p := t.Properties
		props := Props{
			Language:        FromPtr(p.Language),
			Name:            FromPtr(p.TrackName),
			Default:         FromPtr(p.DefaultTrack),
			Forced:          FromPtr(p.ForcedTrack),
			Original:        FromPtr(p.FlagOriginal),
			HearingImpaired: FromPtr(p.FlagHearingImpair),
			Channels:        FromPtr(p.AudioChannels),
			SampleRate:      FromPtr(p.SamplingFrequency),
			BitDepth:        FromPtr(p.BitsPerSample),
		}
		if w, h, ok := mkvmerge.Dimensions(p.PixelDimensions); ok {
			props.PixelWidth, props.PixelHeight = Some(w), Some(h)
		}
		if w, h, ok := mkvmerge.Dimensions(p.DisplayDimensions); ok {
			props.DisplayWidth, props.DisplayHeight = Some(w), Some(h)
		}
		tracks = append(tracks, Track{ID: t.ID, Type: ParseTrackType(t.Type), Codec: t.Codec, Props: props})
	}
	return tracks, nil
}

// FFprobeInspector identifies containers with ffprobe. Stream indexes are used
// as track ids, which matches mkvmerge numbering for Matroska files.
type FFprobeInspector struct {
	Binary string
	Run    command.Runner
}

// Inspect implements Inspector.
func (f FFprobeInspector) Inspect(ctx context.Context, path string) ([]Track, error) {
	result, err := ffprobe.Inspect(ctx, f.Run, f.Binary, path)
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, 0, len(result.Streams))
	for _, s := range result.Streams {
		var props Props
		if lang := language.ExtractFromTags(s.Tags); lang != "" {
			props.Language = Some(lang)
		}
		if title, ok := s.Tag("title"); ok {
			props.Name = Some(title)
		}
		props.Default = flag(s, "default")
		props.Forced = flag(s, "forced")
		props.Original = flag(s, "original")
		props.HearingImpaired = flag(s, "hearing_impaired")

		typ := ParseTrackType(s.CodecType)
		switch typ {
		case TypeVideo:
			if s.Width > 0 && s.Height > 0 {
				props.PixelWidth, props.PixelHeight = Some(s.Width), Some(s.Height)
			}
			if w, h, ok := s.DisplaySize(); ok {
				props.DisplayWidth, props.DisplayHeight = Some(w), Some(h)
			}
		case TypeAudio:
			if s.Channels > 0 {
				props.Channels = Some(s.Channels)
			}
			if rate, ok := positiveInt(s.SampleRate); ok {
				props.SampleRate = Some(rate)
			}
			if depth, ok := positiveInt(s.BitsPerRawSample); ok {
				props.BitDepth = Some(depth)
			}
		}
		tracks = append(tracks, Track{ID: s.Index, Type: typ, Codec: s.CodecName, Props: props})
	}
	return tracks, nil
}

func flag(s ffprobe.Stream, name string) Optional[bool] {
	v, ok := s.Flag(name)
	if !ok {
		return Optional[bool]{}
	}
	return Some(v)
}

func positiveInt(value string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NewInspector returns the inspector named by kind ("mkvmerge" or "ffprobe").
func NewInspector(kind, mkvmergeBinary, ffprobeBinary string, run command.Runner) (Inspector, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "mkvmerge":
		return MkvmergeInspector{Binary: mkvmergeBinary, Run: run}, nil
	case "ffprobe":
		return FFprobeInspector{Binary: ffprobeBinary, Run: run}, nil
	}
	return nil, fmt.Errorf("unknown prober %q (want mkvmerge or ffprobe)", kind)
}
