package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/roadmap/pkg/printers"
	"github.com/harrisonrobin/roadmap/pkg/progress"
)

func addProgress(topLevel *cobra.Command) {
	fo := &filterOptions{}
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Print overall milestone progress, and filtered progress when a filter is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fo.filter()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			printers.Progress(color.Output, "Overall", progress.Compute(snap.Tasks, snap.Ticks))
			if f != progress.NoFilter {
				printers.Progress(color.Output, "Filtered ("+f.String()+")", progress.Filtered(snap.Tasks, snap.Ticks, f, a.cfg.Lanes))
			}
			return nil
		},
	}
	fo.addFlags(cmd)

	topLevel.AddCommand(cmd)
}
