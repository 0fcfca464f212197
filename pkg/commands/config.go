package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/roadmap/pkg/config"
)

func addConfig(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Persist a setting in the config file.",
		Example: `
roadmap config set base_url https://script.google.com/macros/s/XXXX/exec
roadmap config set lanes "Data / ETL,Model / Analytics,Platform / Infra"
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Set(ro.configFile, args[0], args[1])
			if err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set in %s\n", args[0], path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"file":         cfg.File,
				"backend":      cfg.Backend,
				"base_url":     cfg.BaseURL,
				"poll":         cfg.PollInterval.String(),
				"timeout":      cfg.Timeout.String(),
				"save_action":  cfg.SaveAction,
				"window_start": cfg.Window.Start.String(),
				"window_weeks": cfg.Window.Weeks,
				"timezone":     cfg.Window.Location.String(),
				"lanes":        cfg.Lanes,
				"geometry":     cfg.Geometry,
				"sheet":        strings.TrimSpace(cfg.SheetID + " " + cfg.SheetRange),
				"auth":         cfg.AuthEnabled,
				"cache":        cfg.CachePath,
				"drafts":       cfg.DraftsPath,
				"serve_addr":   cfg.ServeAddr,
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(out)
		},
	})

	topLevel.AddCommand(cmd)
}
