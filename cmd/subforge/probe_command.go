package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"subforge/internal/language"
	"subforge/internal/logging"
	"subforge/internal/probe"
	"subforge/internal/selection"
)

type trackView struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Codec    string `json:"codec"`
	Language string `json:"language,omitempty"`
	Name     string `json:"name,omitempty"`
	Default  *bool  `json:"default,omitempty"`
	Forced   *bool  `json:"forced,omitempty"`
	Details  string `json:"details,omitempty"`
}

type probeView struct {
	Path        string      `json:"path"`
	Tracks      []trackView `json:"tracks"`
	ForcedTrack bool        `json:"forced_track"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var prober string
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "List the tracks of a container in canonical order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			kind := cfg.Tools.Prober
			if prober != "" {
				kind = prober
			}
			inspector, err := probe.NewInspector(kind, cfg.Tools.Mkvmerge, cfg.Tools.FFprobe, nil)
			if err != nil {
				return err
			}
			tracks, err := probe.New(inspector, logger).Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logger.Debug("probe listing ready",
				logging.String(logging.FieldEventType, "probe_listing"),
				logging.String("prober", kind),
				logging.Int("track_count", len(tracks)),
			)

			view := probeView{Path: args[0], Tracks: make([]trackView, 0, len(tracks))}
			for _, t := range tracks {
				view.Tracks = append(view.Tracks, newTrackView(t))
			}
			view.ForcedTrack = selection.IncludeForcedTrack(tracks)
			if asJSON {
				return writeJSON(cmd, view)
			}

			rows := make([][]string, 0, len(view.Tracks))
			for i, t := range tracks {
				v := view.Tracks[i]
				rows = append(rows, []string{
					strconv.Itoa(v.ID),
					v.Type,
					v.Codec,
					languageLabel(t),
					t.Props.Name.String(),
					t.Props.Default.String(),
					t.Props.Forced.String(),
					v.Details,
				})
			}
			spec := tableSpec{
				title:   displayPath(args[0]),
				headers: []string{"ID", "Type", "Codec", "Language", "Name", "Default", "Forced", "Details"},
				aligns:  []columnAlignment{alignRight},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, spec.render(rows))
			fmt.Fprintf(out, "Forced track: %s\n", yesNo(view.ForcedTrack))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().StringVar(&prober, "prober", "", "Override tools.prober (mkvmerge or ffprobe)")
	return cmd
}

func newTrackView(t probe.Track) trackView {
	v := trackView{ID: t.ID, Type: string(t.Type), Codec: t.Codec}
	v.Language, _ = t.Props.Language.Get()
	v.Name, _ = t.Props.Name.Get()
	if d, ok := t.Props.Default.Get(); ok {
		v.Default = &d
	}
	if f, ok := t.Props.Forced.Get(); ok {
		v.Forced = &f
	}
	switch t.Type {
	case probe.TypeVideo:
		w, okW := t.Props.PixelWidth.Get()
		h, okH := t.Props.PixelHeight.Get()
		if okW && okH {
			v.Details = fmt.Sprintf("%dx%d", w, h)
		}
	case probe.TypeAudio:
		if ch, ok := t.Props.Channels.Get(); ok {
			v.Details = fmt.Sprintf("%d ch", ch)
		}
		if rate, ok := t.Props.SampleRate.Get(); ok {
			if v.Details != "" {
				v.Details += ", "
			}
			v.Details += fmt.Sprintf("%d Hz", rate)
		}
	}
	return v
}

func languageLabel(t probe.Track) string {
	code, ok := t.Props.Language.Get()
	if !ok || code == "" {
		return probe.Placeholder
	}
	return fmt.Sprintf("%s (%s)", language.DisplayName(code), code)
}
