package commands

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/roadmap/pkg/overdue"
	"github.com/harrisonrobin/roadmap/pkg/printers"
	"github.com/harrisonrobin/roadmap/pkg/progress"
)

// filterOptions are the checklist filter flags.
type filterOptions struct {
	lane     string
	category string
	status   string
}

func (fo *filterOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fo.lane, "lane", progress.All, "Only tasks in this lane.")
	cmd.Flags().StringVar(&fo.category, "category", progress.All, "Only tasks of this category.")
	cmd.Flags().StringVar(&fo.status, "status", string(progress.StatusAll), "One of all, open or done.")
}

func (fo *filterOptions) filter() (progress.Filter, error) {
	status, err := progress.ParseStatus(fo.status)
	if err != nil {
		return progress.Filter{}, err
	}
	return progress.Filter{Lane: fo.lane, Category: fo.category, Status: status}, nil
}

func addChecklist(topLevel *cobra.Command) {
	fo := &filterOptions{}
	offline := false
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Print the milestone checklist.",
		Example: `
roadmap checklist --status open
roadmap checklist --lane "Data / ETL" --category BUILD
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fo.filter()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), appOptions{offline: offline})
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			late := overdue.NewTable(snap.Tasks, snap.Ticks, time.Now(), a.cfg.Window.Location)
			printers.Checklist(color.Output, snap.Tasks, snap.Ticks, a.cfg.Lanes, f, late)
			return nil
		},
	}
	fo.addFlags(cmd)
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the snapshot cache instead of the remote store.")

	topLevel.AddCommand(cmd)
}
