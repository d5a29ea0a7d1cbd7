// Package project loads per-show release properties and resolves them into
// concrete build units.
//
// A project file (project.toml, or project.yaml/.yml) names the release
// group and track labels, the episode and creditless (NC) lists, and path
// templates for every subtitle source. Templates expand {episode} and
// {group}, are relative to the project file, and may be globs. Optional
// sources that match nothing are reported as absent rather than failing.
//
// Key types:
//   - Project: the decoded file
//   - Unit: one episode or NC resolved to paths on disk
//
// Primary entry points are Load and Project.Resolve.
package project
