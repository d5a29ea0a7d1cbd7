package tlmemory

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"subforge/internal/logging"
)

// Tags naming the two sides of an episode in results.
const (
	TagDialogue = "TL"
	TagCaptions = "CC"
)

// Options controls a search. Zero Episode and MaxEpisode disable those
// filters.
type Options struct {
	Term            string
	Exact           bool
	Episode         int
	MaxEpisode      int
	Context         int
	PreviousSeasons bool
}

// Hit is one matching line with its surrounding context and the lines of the
// other file that overlap any of them.
type Hit struct {
	Episode  string
	Tag      string
	OtherTag string
	At       time.Duration
	Lines    []Line
	Match    int
	Overlaps []Line
}

// Matcher finds the search term in line text, case-insensitively.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles term. Exact limits matches to whole words.
func NewMatcher(term string, exact bool) (*Matcher, error) {
	if strings.TrimSpace(term) == "" {
		return nil, errors.New("search term is required")
	}
	pattern := regexp.QuoteMeta(term)
	if exact {
		pattern = `\b` + pattern + `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	return &Matcher{re: re}, nil
}

// MatchString reports whether text contains the term.
func (m *Matcher) MatchString(text string) bool {
	return m.re.MatchString(text)
}

// Locate returns the byte ranges of every match in text.
func (m *Matcher) Locate(text string) [][]int {
	return m.re.FindAllStringIndex(text, -1)
}

// Searcher runs searches over show directories.
type Searcher struct {
	opts    Options
	matcher *Matcher
	logger  *slog.Logger
}

// NewSearcher validates opts and prepares the matcher.
func NewSearcher(opts Options, logger *slog.Logger) (*Searcher, error) {
	if opts.Context < 0 {
		return nil, errors.New("context must be zero or positive")
	}
	m, err := NewMatcher(opts.Term, opts.Exact)
	if err != nil {
		return nil, err
	}
	return &Searcher{
		opts:    opts,
		matcher: m,
		logger:  logging.NewComponentLogger(logger, "tlmemory"),
	}, nil
}

// Matcher returns the compiled term, for highlighting.
func (s *Searcher) Matcher() *Matcher {
	return s.matcher
}

// Search scans every episode under root. Dialogue hits come before caption
// hits within an episode. Unreadable files are logged and skipped.
func (s *Searcher) Search(ctx context.Context, root string) ([]Hit, error) {
	episodes, err := Discover(root, s.opts.PreviousSeasons)
	if err != nil {
		return nil, err
	}
	var hits []Hit
	searched := 0
	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			return hits, err
		}
		if !s.wants(ep) {
			continue
		}
		dialogue := s.read(ep, ep.Dialogue)
		captions := s.read(ep, ep.Captions)
		searched++
		hits = append(hits, s.SearchEpisode(ep.Label, dialogue, captions)...)
	}
	s.logger.Info("translation memory searched",
		logging.String(logging.FieldEventType, "tlmemory_search"),
		logging.String("term", s.opts.Term),
		logging.Int("episodes", searched),
		logging.Int("hits", len(hits)),
	)
	return hits, nil
}

func (s *Searcher) read(ep Episode, path string) []Line {
	lines, err := ReadLines(path)
	if err != nil {
		logging.WarnWithContext(s.logger, "subtitle file unreadable", "tlmemory_read_failed",
			logging.String("episode", ep.Label),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file skipped in search results"),
		)
		return nil
	}
	return lines
}

// wants applies the episode filters. Labels that are not numbered, such as
// specials, pass unless a single episode was requested.
func (s *Searcher) wants(ep Episode) bool {
	n, ok := ep.Number()
	if !ok {
		return s.opts.Episode == 0
	}
	if s.opts.Episode != 0 && n != s.opts.Episode {
		return false
	}
	if s.opts.MaxEpisode != 0 && n > s.opts.MaxEpisode {
		return false
	}
	return true
}

// SearchEpisode searches both directions of one episode.
func (s *Searcher) SearchEpisode(label string, dialogue, captions []Line) []Hit {
	hits := s.searchSide(label, dialogue, captions, TagDialogue, TagCaptions)
	return append(hits, s.searchSide(label, captions, dialogue, TagCaptions, TagDialogue)...)
}

func (s *Searcher) searchSide(label string, lines, other []Line, tag, otherTag string) []Hit {
	var hits []Hit
	for i, line := range lines {
		if !s.matcher.MatchString(line.Text) {
			continue
		}
		lo := max(0, i-s.opts.Context)
		hi := min(len(lines)-1, i+s.opts.Context)
		window := lines[lo : hi+1]

		var overlaps []Line
		seen := make(map[int]struct{})
		for _, w := range window {
			for j, o := range other {
				if _, dup := seen[j]; dup || !w.Overlaps(o) {
					continue
				}
				seen[j] = struct{}{}
				overlaps = append(overlaps, o)
			}
		}
		hits = append(hits, Hit{
			Episode:  label,
			Tag:      tag,
			OtherTag: otherTag,
			At:       line.Start,
			Lines:    append([]Line(nil), window...),
			Match:    i - lo,
			Overlaps: overlaps,
		})
	}
	return hits
}
