package textutil

import "strings"

// segmentReplacer maps characters that cannot appear in a single path
// segment on common filesystems.
var segmentReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", " -",
	"*", "-",
	"?", "",
	"\"", "'",
	"<", "",
	">", "",
	"|", "-",
)

// SanitizeSegment makes value safe to embed in one path segment. Control
// characters become spaces and runs of spaces collapse. Leading and trailing
// dots are trimmed so the result never names a hidden or parent directory.
func SanitizeSegment(value string) string {
	value = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, value)
	value = segmentReplacer.Replace(value)
	value = strings.Join(strings.Fields(value), " ")
	return strings.Trim(value, ". ")
}
