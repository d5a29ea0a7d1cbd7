package mkvmerge

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"subforge/internal/media/command"
)

//go:embed identification.schema.json
var identificationSchema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(identificationSchema))
})

// Identification is the subset of `mkvmerge -J` output subforge reads.
type Identification struct {
	Container Container `json:"container"`
	Errors    []string  `json:"errors"`
	Warnings  []string  `json:"warnings"`
	Tracks    []Track   `json:"tracks"`
}

// Container describes the identified file.
type Container struct {
	Recognized bool   `json:"recognized"`
	Supported  bool   `json:"supported"`
	Type       string `json:"type"`
}

// Track is one identified track. Property pointers are nil when mkvmerge did
// not report the field.
type Track struct {
	ID         int             `json:"id"`
	Type       string          `json:"type"`
	Codec      string          `json:"codec"`
	Properties TrackProperties `json:"properties"`
}

// TrackProperties mirrors the per-track "properties" object.
type TrackProperties struct {
	Language          *string `json:"language"`
	LanguageIETF      *string `json:"language_ietf"`
	TrackName         *string `json:"track_name"`
	DefaultTrack      *bool   `json:"default_track"`
	ForcedTrack       *bool   `json:"forced_track"`
	FlagOriginal      *bool   `json:"flag_original"`
	FlagHearingImpair *bool   `json:"flag_hearing_impaired"`
	PixelDimensions   *string `json:"pixel_dimensions"`
	DisplayDimensions *string `json:"display_dimensions"`
	AudioChannels     *int    `json:"audio_channels"`
	SamplingFrequency *int    `json:"audio_sampling_frequency"`
	BitsPerSample     *int    `json:"audio_bits_per_sample"`
}

// Dimensions splits a "WxH" value.
func Dimensions(value *string) (int, int, bool) {
	if value == nil {
		return 0, 0, false
	}
	w, h, ok := strings.Cut(*value, "x")
	if !ok {
		return 0, 0, false
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return 0, 0, false
	}
	return width, height, true
}

// Identify runs `mkvmerge -J path`. Exit status 1 only signals warnings and
// the report is still used.
func Identify(ctx context.Context, run command.Runner, binary, path string) (Identification, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "mkvmerge"
	}
	if strings.TrimSpace(path) == "" {
		return Identification{}, errors.New("mkvmerge identify: empty path")
	}
	if run == nil {
		run = command.Run
	}
	output, err := run(ctx, binary, "-J", path)
	if err != nil && command.ExitCode(err) != 1 {
		return Identification{}, fmt.Errorf("mkvmerge identify: %w", err)
	}
	return Parse(output)
}

// Parse validates and decodes identification JSON.
func Parse(data []byte) (Identification, error) {
	schema, err := compiledSchema()
	if err != nil {
		return Identification{}, fmt.Errorf("load identification schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Identification{}, fmt.Errorf("mkvmerge identify: invalid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Identification{}, fmt.Errorf("mkvmerge identify: unexpected output: %s", strings.Join(msgs, "; "))
	}
	var id Identification
	if err := json.Unmarshal(data, &id); err != nil {
		return Identification{}, fmt.Errorf("mkvmerge identify: decode: %w", err)
	}
	if !id.Container.Recognized {
		detail := strings.Join(id.Errors, "; ")
		if detail == "" {
			detail = "container not recognized"
		}
		return Identification{}, fmt.Errorf("mkvmerge identify: %s", detail)
	}
	return id, nil
}
