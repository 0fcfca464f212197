package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/overdue"
	"github.com/harrisonrobin/roadmap/pkg/printers"
	"github.com/harrisonrobin/roadmap/pkg/progress"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

func addExport(topLevel *cobra.Command) {
	output := printers.FormatJSON
	offline := false
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export chart geometry, progress and ticks.",
		Example: `
roadmap export -o yaml > roadmap.yaml
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
			now := time.Now()
			report := printers.Report{
				GeneratedAt: now.UTC(),
				Chart:       timeline.Layout(snap.Tasks, a.cfg.Window, a.cfg.Lanes, a.cfg.Geometry, now),
				Progress:    progress.Compute(snap.Tasks, snap.Ticks),
				Overdue:     overdue.Sweep(snap.Tasks, snap.Ticks, now, a.cfg.Window.Location),
			}
			seen := make(map[string]bool)
			for _, t := range snap.Tasks {
				if key := t.Key(); !seen[key] {
					seen[key] = true
					report.Ticks = append(report.Ticks, model.NewTickRow(key, snap.Ticks[key]))
				}
			}
			return printers.Export(cmd.OutOrStdout(), output, report)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", output, "Output format. One of 'yaml' or 'json'.")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the snapshot cache instead of the remote store.")

	topLevel.AddCommand(cmd)
}
