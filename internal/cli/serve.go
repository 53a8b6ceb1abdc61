package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/typetools/ttxdiff/internal/server"
)

// serveCommand creates the serve command exposing the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
		noCache    bool
		redisURL   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison pipeline over HTTP",
		Long: `Run a long-lived daemon exposing the comparison pipeline:

  POST /compare    run a comparison, body is the pipeline options JSON
  GET  /runs       list recent runs
  GET  /runs/{id}  fetch one run's full report
  GET  /health     liveness probe

Sources are paths visible to the daemon process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runner, cleanup, err := c.newRunner(ctx, runnerOpts{
				configPath: configPath,
				noCache:    noCache,
				redisURL:   redisURL,
			})
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.NewServer(addr, runner, runner.Store, c.Logger)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()
			c.Logger.Info("listening", "addr", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8745", "listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML config file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the build cache")
	cmd.Flags().StringVar(&redisURL, "cache-redis", "", "redis URL for a shared build cache")

	return cmd
}
