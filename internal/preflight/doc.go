// Package preflight checks that the filesystem is ready for a build.
//
// These checks run in two contexts:
//   - The release pipeline calls RunAll before building and refuses to start
//     when a check fails, so a long batch does not die halfway on a full disk.
//   - "subforge doctor" prints every result alongside tool availability.
package preflight
