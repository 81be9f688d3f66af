package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/panelkit/panelkit/internal/app"
	"github.com/panelkit/panelkit/internal/server"
)

// newServeCmd creates the serve command: bootstrap the dashboard core, run
// the initial prioritized load, start the health monitor and expose the
// HTTP API.
func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard core with its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			p := newProgress(logger)
			a, err := app.Bootstrap(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			p.done("Bootstrapped services")

			p = newProgress(logger)
			a.LoadAndRender(ctx)
			p.done("Initial load complete")

			go a.Monitor.Run(ctx)

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           server.New(a, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			printSuccess("Serving on %s", cfg.Server.Addr)
			printDetail("charts: %d, resources: %d", len(cfg.Charts), len(cfg.Resources))

			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
