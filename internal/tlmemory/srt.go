package tlmemory

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// srtCue is one numbered SubRip block.
type srtCue struct {
	start time.Duration
	end   time.Duration
	text  string
}

// parseSRT splits SubRip content into cues. Blocks without a usable timing
// line are skipped.
func parseSRT(content string) []srtCue {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var cues []srtCue
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		// The index line is optional in the wild.
		if !strings.Contains(lines[0], "-->") {
			lines = lines[1:]
		}
		start, end, ok := strings.Cut(lines[0], "-->")
		if !ok {
			continue
		}
		from, err := parseSRTTimestamp(start)
		if err != nil {
			continue
		}
		to, err := parseSRTTimestamp(end)
		if err != nil {
			continue
		}
		cues = append(cues, srtCue{
			start: from,
			end:   to,
			text:  strings.Join(lines[1:], "\n"),
		})
	}
	return cues
}

func parseSRTTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	// Position hints may follow the end time.
	if i := strings.IndexByte(value, ' '); i >= 0 {
		value = value[:i]
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}
