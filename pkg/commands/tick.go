package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

func addTick(topLevel *cobra.Command) {
	set, unset, noSave := false, false, false
	cmd := &cobra.Command{
		Use:   "tick KEY MILESTONE",
		Short: "Toggle a milestone of a task and save.",
		Long: `Toggle one of Spec, Dev, Test or Ship for the task identified by KEY
(its TaskID, or its name when it has none) and save the tick state.
With --no-save the edit is kept as a draft until the next save.`,
		Example: `
roadmap tick 42 ship
roadmap tick "Ingest pipeline" spec --set
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if set && unset {
				return fmt.Errorf("--set and --clear are mutually exclusive")
			}
			m, err := model.ParseMilestone(args[1])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.engine.Refresh(ctx); err != nil {
				return err
			}

			key := args[0]
			ticks := a.engine.Snapshot().Ticks[key]
			switch {
			case set:
				err = a.engine.Set(key, ticks.With(m, true))
			case unset:
				err = a.engine.Set(key, ticks.With(m, false))
			default:
				_, err = a.engine.Toggle(key, m)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}

			after := a.engine.Snapshot().Ticks[key]
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s=%d\n", key, m, model.Flag(after.Get(m)).Int())
			if noSave {
				return nil
			}
			return a.engine.Save(ctx)
		},
	}
	cmd.Flags().BoolVar(&set, "set", false, "Set the milestone instead of toggling it.")
	cmd.Flags().BoolVar(&unset, "clear", false, "Clear the milestone instead of toggling it.")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Keep the edit as a draft.")

	topLevel.AddCommand(cmd)
}
