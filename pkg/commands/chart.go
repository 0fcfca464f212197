package commands

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/roadmap/pkg/printers"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

func addChart(topLevel *cobra.Command) {
	offline := false
	width := 78
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print the Gantt chart.",
		Example: `
roadmap chart
roadmap chart --offline --width 120
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{offline: offline})
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			chart := timeline.Layout(snap.Tasks, a.cfg.Window, a.cfg.Lanes, a.cfg.Geometry, time.Now())
			printers.Chart(color.Output, chart, a.palette, width)
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the snapshot cache instead of the remote store.")
	cmd.Flags().IntVarP(&width, "width", "w", width, "Number of columns for the window.")

	topLevel.AddCommand(cmd)
}
