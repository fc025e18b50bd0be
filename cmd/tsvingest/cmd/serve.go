package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tsvingest/internal/web"
)

// Start the HTTP API and block until interrupted.
func serveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the ingestion HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ing, err := app.Ingestor(cmd.Context())
			if err != nil {
				return err
			}

			logger := app.Logger
			logger.Info("mapping loaded",
				"source", ing.Mapping().Source,
				"files", len(ing.Mapping().Files),
				"store", app.Config.Store.Backend,
			)

			server := web.NewServer(ing, app.Config)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-sigCh:
			}

			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", "error", err)
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
}
