// Package commands is the roadmap command line.
package commands

import (
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configFile string
	logLevel   string
}

var ro = &rootOptions{}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Gantt timeline and milestone checklist for a shared project plan.",
		Long: `roadmap draws the project plan kept in a remote task store as a Gantt
chart, tracks the Spec/Dev/Test/Ship milestones of each task, and saves
milestone ticks back to the store.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&ro.configFile, "config", "", "Config file (default ~/.config/roadmap/config.yaml).")
	cmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "Override log.level (trace, debug, info, warn, error).")

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addUI(topLevel)
	addChart(topLevel)
	addChecklist(topLevel)
	addProgress(topLevel)
	addTick(topLevel)
	addExport(topLevel)
	addServe(topLevel)
	addAuth(topLevel)
	addConfig(topLevel)
	addVersion(topLevel)
}
