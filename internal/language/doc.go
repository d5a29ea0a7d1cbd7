// Package language normalizes language codes for track tagging.
//
// mkvmerge wants ISO 639-2 codes; release configuration and probed containers
// use a mix of 2-letter codes, 3-letter codes and plain words. A small table
// covers the release languages (including "enm" for the honorifics track) and
// golang.org/x/text resolves the rest.
package language
