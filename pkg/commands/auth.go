package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addAuth(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google and cache the token.",
		Long: `Run the browser OAuth flow using credentials.json from the config
directory and store the resulting token next to it. The redirect is served on
localhost; an existing token is discarded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, nil)
			flow := authFlow(cfg, log)
			if err := flow.Authorize(cmd.Context()); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			log.Info("authentication successful", "token", flow.TokenPath())
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
