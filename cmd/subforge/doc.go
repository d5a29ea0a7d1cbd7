// Package main hosts the subforge CLI entrypoint and command graph.
//
// Commands resolve the machine configuration and the per-show project file,
// then hand off to the internal packages: release for builds, probe for track
// listings, chapters and swap for single-script operations, tlmemory for
// searching past translations, history for the build log, and workdir for
// intermediate files. Keep commands thin and put behaviour in internal
// packages first.
package main
