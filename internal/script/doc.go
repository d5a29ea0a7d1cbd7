// Package script models a subtitle script as subforge sees it: script-level
// metadata, the verbatim non-event sections, and an ordered list of timed
// event lines.
//
// Every transformation in this package returns a new Script and leaves its
// input untouched, so the merge, clean, swap and chapter stages can hand
// scripts to each other without sharing mutable state. The line predicates
// (IsBlank, IsTemplateScaffold, ...) are pure and are folded into a single
// Kind classification that the cleaning stage dispatches on.
package script
