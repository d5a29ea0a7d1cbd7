// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// It is the fallback container inspector when mkvmerge is unavailable.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: per-stream codec data with tags and disposition flags
//
// Primary entry point:
//   - Inspect: executes ffprobe through a command.Runner and returns the Result
package ffprobe
