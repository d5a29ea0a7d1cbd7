package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subforge/internal/ass"
	"subforge/internal/project"
	"subforge/internal/swap"
)

func newSwapCommand(ctx *commandContext) *cobra.Command {
	var (
		settings project.SwapSettings
		output   string
	)
	cmd := &cobra.Command{
		Use:   "swap <script.ass>",
		Short: "Apply honorifics swap markup to a script",
		Long: "Inline {*}{*alt} spans are exchanged and lines marked with the line\n" +
			"marker are replaced by the commented alternate below them.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := settings.Options("swap")
			if err != nil {
				return err
			}
			s, err := ass.ReadFile(args[0])
			if err != nil {
				return err
			}
			swapped, report, err := swap.Apply(s, opts)
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("Swapped %d spans and %d whole lines; %d lines changed\n", report.Spans, report.WholeLines, report.Changed)
			if output == "" || output == "-" {
				fmt.Fprint(cmd.ErrOrStderr(), summary)
				return ass.Encode(cmd.OutOrStdout(), swapped)
			}
			if err := ass.WriteFile(output, swapped); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&settings.Delimiter, "delimiter", "d", "", "Swap delimiter character (default *)")
	cmd.Flags().StringVar(&settings.LineMarker, "line-marker", "", "Whole-line swap marker (default ***)")
	cmd.Flags().StringVar(&settings.Styles, "styles", "", "Only swap lines whose style matches this regexp")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
