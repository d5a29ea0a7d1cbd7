package release

import (
	"slices"

	"subforge/internal/mux"
	"subforge/internal/probe"
	"subforge/internal/project"
	"subforge/internal/selection"
)

// Files are the artifacts a build writes to its work directory. Empty paths
// were not produced.
type Files struct {
	Full       string
	Honorifics string
	Forced     string
	Chapters   string
}

// manifestFor lays out the mux: premux video and audio first, then the full,
// honorifics and forced subtitle tracks, then chapters and fonts.
func manifestFor(p *project.Project, u project.Unit, tracks []probe.Track, files Files, fonts []mux.Attachment, compression string) mux.Manifest {
	m := mux.Manifest{
		Title:       u.Title,
		Output:      u.Output,
		Attachments: fonts,
	}
	if u.Premux != "" && len(tracks) > 0 {
		m.Inputs = append(m.Inputs, premuxInput(p, u, tracks))
	}

	rel := p.Release
	fullName := rel.GroupReg
	if u.Kind == project.KindNC {
		fullName = rel.Group
	}
	m.Inputs = append(m.Inputs, subtitleInput(files.Full, rel.SubtitleLanguage, fullName, true, false, compression))
	if files.Honorifics != "" {
		m.Inputs = append(m.Inputs, subtitleInput(files.Honorifics, rel.HonorificsLang, rel.GroupHono, true, false, compression))
	}
	if files.Forced != "" {
		m.Inputs = append(m.Inputs, subtitleInput(files.Forced, rel.SubtitleLanguage, rel.ForcedName, false, true, compression))
	}
	if files.Chapters != "" {
		m.Chapters = &mux.ChapterFile{Path: files.Chapters, Language: p.Chapters.Language}
	}
	return m
}

// premuxInput takes the premux video and audio. Video is tagged with the
// media language; audio keeps a probed language and is named from the
// project's audio names by position. Only the first audio track is default.
func premuxInput(p *project.Project, u project.Unit, tracks []probe.Track) mux.Input {
	keep := selection.Select(tracks, selection.KeepVideoAudio)
	names := p.AudioNames(u.Kind)
	media := p.Release.MediaLanguage

	in := mux.Input{
		Path: u.Premux,
		Tracks: mux.TrackSelection{
			VideoIDs:    []int{},
			AudioIDs:    []int{},
			NoSubtitles: true,
		},
		NoChapters:    true,
		NoAttachments: true,
	}
	audioIndex := 0
	for _, t := range tracks {
		if !slices.Contains(keep, t.ID) {
			continue
		}
		switch t.Type {
		case probe.TypeVideo:
			in.Tracks.VideoIDs = append(in.Tracks.VideoIDs, t.ID)
			in.Overrides = append(in.Overrides, mux.TrackOverride{
				TrackID:  t.ID,
				Language: media,
				Name:     p.Release.Group,
				Default:  boolPtr(true),
			})
		case probe.TypeAudio:
			name := p.Release.Group
			if audioIndex < len(names) && names[audioIndex] != "" {
				name = names[audioIndex]
			}
			in.Tracks.AudioIDs = append(in.Tracks.AudioIDs, t.ID)
			in.Overrides = append(in.Overrides, mux.TrackOverride{
				TrackID:  t.ID,
				Language: t.Props.Language.Or(media),
				Name:     name,
				Default:  boolPtr(audioIndex == 0),
			})
			audioIndex++
		}
	}
	return in
}

func subtitleInput(path, lang, name string, isDefault, forced bool, compression string) mux.Input {
	return mux.Input{
		Path: path,
		Overrides: []mux.TrackOverride{{
			TrackID:     0,
			Language:    lang,
			Name:        name,
			Default:     boolPtr(isDefault),
			Forced:      boolPtr(forced),
			Compression: compression,
		}},
	}
}

// trackCount is the number of tracks the manifest puts in the output.
func trackCount(m mux.Manifest) int {
	n := 0
	for _, in := range m.Inputs {
		if in.Tracks.VideoIDs != nil || in.Tracks.AudioIDs != nil {
			n += len(in.Tracks.VideoIDs) + len(in.Tracks.AudioIDs)
			continue
		}
		n += len(in.Overrides)
	}
	return n
}

func boolPtr(v bool) *bool { return &v }
