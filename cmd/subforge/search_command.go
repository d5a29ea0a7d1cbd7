package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/tlmemory"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		opts tlmemory.Options
		root string
	)
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search past translations and closed captions",
		Long: "Search every episode directory under --root for the term in the\n" +
			"dialogue script (TL) and the closed captions (CC). Each hit is shown\n" +
			"with the lines of the other file that overlap it in time.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			opts.Term = args[0]
			searcher, err := tlmemory.NewSearcher(opts, logger)
			if err != nil {
				return err
			}
			hits, err := searcher.Search(cmd.Context(), root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintf(out, "No matches for %q\n", opts.Term)
				return nil
			}
			renderHits(out, hits, searcher.Matcher(), shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "Show directory holding the episode directories")
	cmd.Flags().IntVarP(&opts.Episode, "episode", "E", 0, "Only search this episode number")
	cmd.Flags().IntVarP(&opts.MaxEpisode, "max-episode", "m", 0, "Skip episodes numbered above this")
	cmd.Flags().IntVarP(&opts.Context, "context", "C", 0, "Lines of context around each match")
	cmd.Flags().BoolVarP(&opts.PreviousSeasons, "previous-seasons", "p", false, "Also search sibling season directories")
	cmd.Flags().BoolVarP(&opts.Exact, "exact", "x", false, "Match whole words only")
	return cmd
}

func renderHits(w io.Writer, hits []tlmemory.Hit, m *tlmemory.Matcher, colorize bool) {
	episode, tag := "", ""
	for _, h := range hits {
		if h.Episode != episode || h.Tag != tag {
			episode, tag = h.Episode, h.Tag
			fmt.Fprintln(w)
			fmt.Fprintln(w, paint("Episode "+h.Episode+":", ansiBold, colorize))
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, paint(tlmemory.FormatTimestamp(h.At), ansiCyan, colorize))
		for _, line := range h.Lines {
			fmt.Fprintln(w, renderLine(h.Tag, line, m, colorize))
		}
		for _, line := range h.Overlaps {
			fmt.Fprintln(w, renderLine(h.OtherTag, line, m, colorize))
		}
	}
}

func renderLine(tag string, line tlmemory.Line, m *tlmemory.Matcher, colorize bool) string {
	var b strings.Builder
	b.WriteString(paint(tag+": ", ansiGreen, colorize))
	if line.Actor != "" {
		b.WriteString(paint("("+line.Actor+") ", ansiDim, colorize))
	}
	last := 0
	for _, span := range braceSpans(line.Text) {
		b.WriteString(highlight(line.Text[last:span[0]], m, colorize))
		b.WriteString(paint(line.Text[span[0]:span[1]], ansiDim, colorize))
		last = span[1]
	}
	b.WriteString(highlight(line.Text[last:], m, colorize))
	return b.String()
}

func highlight(text string, m *tlmemory.Matcher, colorize bool) string {
	if !colorize || m == nil {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range m.Locate(text) {
		b.WriteString(text[last:loc[0]])
		b.WriteString(paint(text[loc[0]:loc[1]], ansiMatchBg, true))
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// braceSpans finds balanced {...} blocks, nested braces included. An
// unclosed block is left as plain text.
func braceSpans(text string) [][2]int {
	var spans [][2]int
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		depth := 0
		for j := i; j < len(text); j++ {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				spans = append(spans, [2]int{i, j + 1})
				i = j
				break
			}
		}
		if depth != 0 {
			break
		}
	}
	return spans
}
