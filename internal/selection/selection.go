// Package selection decides which tracks a release mux takes from probed
// container metadata. Every function here is pure.
package selection

import (
	"subforge/internal/probe"
)

// ForcedLanguage is the audio language that signals an alternate dub.
const ForcedLanguage = "eng"

// IncludeForcedTrack reports whether the container carries a second audio
// track tagged English. A dub conventionally needs a forced signs/songs
// subtitle track alongside it. Tracks must be in canonical order.
func IncludeForcedTrack(tracks []probe.Track) bool {
	audio := probe.Filter(tracks, probe.TypeAudio)
	if len(audio) < 2 {
		return false
	}
	lang, ok := audio[1].Props.Language.Get()
	return ok && lang == ForcedLanguage
}

// KeepVideoAudio selects the premux tracks carried into the release.
func KeepVideoAudio(t probe.Track) bool {
	return t.Type == probe.TypeVideo || t.Type == probe.TypeAudio
}

// Select returns the ids of tracks accepted by keep, in input order.
func Select(tracks []probe.Track, keep func(probe.Track) bool) []int {
	var ids []int
	for _, t := range tracks {
		if keep(t) {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Decision results.
const (
	ResultInclude = "include"
	ResultSkip    = "skip"
)

// ForcedDecision explains whether a forced track is built.
type ForcedDecision struct {
	Include bool
	Result  string
	Reason  string
}

// Decide combines the track policy with the presence of a forced source.
// Without a forced source the forced branch is skipped regardless of audio.
func Decide(tracks []probe.Track, forcedSourcePresent bool) ForcedDecision {
	audio := probe.Filter(tracks, probe.TypeAudio)
	switch {
	case !forcedSourcePresent:
		return ForcedDecision{Result: ResultSkip, Reason: "no forced subtitle source configured"}
	case len(tracks) == 0:
		return ForcedDecision{Result: ResultSkip, Reason: "premux container absent"}
	case len(audio) < 2:
		return ForcedDecision{Result: ResultSkip, Reason: "fewer than two audio tracks"}
	case !IncludeForcedTrack(tracks):
		return ForcedDecision{Result: ResultSkip, Reason: "second audio track is " + audio[1].Props.Language.String() + ", not " + ForcedLanguage}
	}
	return ForcedDecision{Include: true, Result: ResultInclude, Reason: "second audio track is " + ForcedLanguage}
}
