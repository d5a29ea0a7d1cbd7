// Package workdir manages the per-unit directories under the configured
// work_dir where builds write intermediate scripts and chapter files.
//
// Directories are named after the unit id, sanitized into a single path
// segment. They are left in place after a build so failed muxes can be
// inspected; List and the Clean helpers reclaim the space.
package workdir
