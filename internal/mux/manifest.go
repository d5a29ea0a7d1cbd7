package mux

import (
	"fmt"
	"strconv"
	"strings"

	"subforge/internal/language"
)

// Compression values accepted by mkvmerge for text tracks.
const (
	CompressionNone = "none"
	CompressionZlib = "zlib"
)

// TrackSelection restricts which tracks of an input are taken. Nil id lists
// take every track of that type; empty non-nil lists take none.
type TrackSelection struct {
	VideoIDs    []int
	AudioIDs    []int
	NoVideo     bool
	NoAudio     bool
	NoSubtitles bool
}

// TrackOverride retags one track of an input. TrackID is the id inside that
// input file; subtitle scripts have a single track 0.
type TrackOverride struct {
	TrackID     int
	Language    string
	Name        string
	Default     *bool
	Forced      *bool
	Compression string
}

// Input is one source file of the mux.
type Input struct {
	Path          string
	Tracks        TrackSelection
	Overrides     []TrackOverride
	NoChapters    bool
	NoAttachments bool
}

// Attachment is a file attached to the container, usually a font.
type Attachment struct {
	Path     string
	Name     string
	MimeType string
}

// ChapterFile points at a chapter file and its language.
type ChapterFile struct {
	Path     string
	Language string
}

// Manifest is everything one mkvmerge invocation needs.
type Manifest struct {
	Title       string
	Output      string
	Inputs      []Input
	Attachments []Attachment
	Chapters    *ChapterFile
}

// Validate checks the manifest is complete enough to run.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Output) == "" {
		return fmt.Errorf("mux manifest: output path is required")
	}
	if len(m.Inputs) == 0 {
		return fmt.Errorf("mux manifest: at least one input is required")
	}
	for i, in := range m.Inputs {
		if strings.TrimSpace(in.Path) == "" {
			return fmt.Errorf("mux manifest: input %d has no path", i)
		}
		for _, o := range in.Overrides {
			switch o.Compression {
			case "", CompressionNone, CompressionZlib:
			default:
				return fmt.Errorf("mux manifest: input %s: unsupported compression %q", in.Path, o.Compression)
			}
		}
	}
	if m.Chapters != nil && strings.TrimSpace(m.Chapters.Path) == "" {
		return fmt.Errorf("mux manifest: chapter file has no path")
	}
	return nil
}

// BuildArgs renders the manifest as mkvmerge arguments. Per-input options
// precede the file they apply to.
func BuildArgs(m Manifest) []string {
	args := []string{"--output", m.Output}
	if m.Title != "" {
		args = append(args, "--title", m.Title)
	}

	for _, in := range m.Inputs {
		for _, o := range in.Overrides {
			id := strconv.Itoa(o.TrackID)
			if o.Language != "" {
				args = append(args, "--language", id+":"+language.ToISO3(o.Language))
			}
			if o.Name != "" {
				args = append(args, "--track-name", id+":"+o.Name)
			}
			if o.Default != nil {
				args = append(args, "--default-track-flag", id+":"+flagValue(*o.Default))
			}
			if o.Forced != nil {
				args = append(args, "--forced-display-flag", id+":"+flagValue(*o.Forced))
			}
			if o.Compression != "" {
				args = append(args, "--compression", id+":"+o.Compression)
			}
		}
		sel := in.Tracks
		switch {
		case sel.NoVideo || (sel.VideoIDs != nil && len(sel.VideoIDs) == 0):
			args = append(args, "--no-video")
		case sel.VideoIDs != nil:
			args = append(args, "--video-tracks", joinIDs(sel.VideoIDs))
		}
		switch {
		case sel.NoAudio || (sel.AudioIDs != nil && len(sel.AudioIDs) == 0):
			args = append(args, "--no-audio")
		case sel.AudioIDs != nil:
			args = append(args, "--audio-tracks", joinIDs(sel.AudioIDs))
		}
		if sel.NoSubtitles {
			args = append(args, "--no-subtitles")
		}
		if in.NoChapters {
			args = append(args, "--no-chapters")
		}
		if in.NoAttachments {
			args = append(args, "--no-attachments")
		}
		args = append(args, in.Path)
	}

	if m.Chapters != nil {
		if m.Chapters.Language != "" {
			args = append(args, "--chapter-language", language.ToISO3(m.Chapters.Language))
		}
		args = append(args, "--chapters", m.Chapters.Path)
	}
	for _, a := range m.Attachments {
		if a.Name != "" {
			args = append(args, "--attachment-name", a.Name)
		}
		if a.MimeType != "" {
			args = append(args, "--attachment-mime-type", a.MimeType)
		}
		args = append(args, "--attach-file", a.Path)
	}
	return args
}

func flagValue(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
