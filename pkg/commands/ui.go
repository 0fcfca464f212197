package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/roadmap/pkg/tui"
)

func addUI(topLevel *cobra.Command) {
	offline := false
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive chart and checklist.",
		Example: `
roadmap ui
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// The terminal belongs to the UI; logs go to a file.
			f, err := logFile(cfg)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, appOptions{offline: offline, logOutput: f})
			if err != nil {
				return err
			}
			done := make(chan struct{})
			defer func() {
				cancel()
				<-done
				a.close()
			}()

			go func() {
				defer close(done)
				a.engine.Run(ctx)
			}()

			m := tui.New(ctx, a.engine, tui.Options{
				Window:   a.cfg.Window,
				Lanes:    a.cfg.Lanes,
				Geometry: a.cfg.Geometry,
				Palette:  a.palette,
			})
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the snapshot cache instead of the remote store.")

	topLevel.AddCommand(cmd)
}
