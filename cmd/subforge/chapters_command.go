package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"subforge/internal/ass"
	"subforge/internal/chapters"
	"subforge/internal/fileutil"
)

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	var (
		marker string
		format string
		lang   string
		order  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "chapters <script.ass>",
		Short: "Extract chapter marks from a script",
		Long: "Lines whose effect field equals the marker become chapters; the line\n" +
			"text is the chapter title. Output is Matroska XML or OGM text.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if order == "" {
				order = cfg.Build.ChapterOrder
			}
			ord, err := chapters.ParseOrder(order)
			if err != nil {
				return err
			}
			var write func(io.Writer, []chapters.Chapter) error
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "xml":
				write = func(w io.Writer, list []chapters.Chapter) error { return chapters.WriteXML(w, list, lang) }
			case "ogm", "txt":
				write = chapters.WriteOGM
			default:
				return fmt.Errorf("unknown chapter format %q (want xml or ogm)", format)
			}

			s, err := ass.ReadFile(args[0])
			if err != nil {
				return err
			}
			list, err := chapters.Extract(s, marker, ord)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No %q markers in %s\n", marker, displayPath(args[0]))
				return nil
			}
			if output == "" || output == "-" {
				return write(cmd.OutOrStdout(), list)
			}
			if err := fileutil.WriteAtomic(output, 0o644, func(w io.Writer) error { return write(w, list) }); err != nil {
				return fmt.Errorf("write chapters: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chapters to %s\n", len(list), displayPath(output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&marker, "marker", "m", "chapter", "Effect field value that marks a chapter")
	cmd.Flags().StringVarP(&format, "format", "f", "xml", "Output format: xml or ogm")
	cmd.Flags().StringVarP(&lang, "language", "l", "eng", "Chapter title language")
	cmd.Flags().StringVar(&order, "order", "", "strict or sort (default build.chapter_order)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
