// Package mkvmerge provides a typed wrapper around `mkvmerge -J` container
// identification.
//
// The JSON report is checked against an embedded schema before decoding so a
// changed mkvmerge output format fails loudly instead of producing empty
// tracks.
//
// Primary entry points:
//   - Identify: executes mkvmerge and returns the parsed Identification
//   - Parse: validates and decodes a captured report
package mkvmerge
