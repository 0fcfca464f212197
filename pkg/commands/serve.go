package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/roadmap/pkg/web"
)

func addServe(topLevel *cobra.Command) {
	addr := ""
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the remote store and serve the roadmap as a JSON API.",
		Example: `
roadmap serve --addr 127.0.0.1:8080
curl localhost:8080/api/progress?status=open
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			done := make(chan struct{})
			defer func() {
				stop()
				<-done
				a.close()
			}()
			if addr == "" {
				addr = a.cfg.ServeAddr
			}

			go func() {
				defer close(done)
				a.engine.Run(ctx)
			}()

			srv := web.NewServer(a.engine, web.Options{
				Window:   a.cfg.Window,
				Lanes:    a.cfg.Lanes,
				Geometry: a.cfg.Geometry,
				Logger:   a.log,
			})
			if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default serve.addr).")

	topLevel.AddCommand(cmd)
}
