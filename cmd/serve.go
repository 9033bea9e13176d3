package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/handlers"
	"github.com/lehigh-university-libraries/solarlabel/internal/images"
	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		bind     string
		noImport bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the labeling API",
		Long: `Starts the HTTP API a display front end drives while a user labels images.

Images are registered with POST /api/images or uploaded with
POST /api/images/upload into the download directory. Downloaded images that
have an info file there are registered at startup. A minimal labeling page is
served at /.`,
		Example: `  # Listen on the configured address (default 127.0.0.1:8888)
  solarlabel serve

  # Listen on all interfaces
  solarlabel serve --bind :8888`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if bind == "" {
				bind = cfg.Server.Bind
			}

			registry := storage.NewImageRegistry()
			if !noImport {
				found, err := images.ScanInfoFiles(cfg.Paths.DownloadDir)
				if err != nil {
					slog.Warn("Unable to scan download directory", "dir", cfg.Paths.DownloadDir, "err", err)
				}
				for _, img := range found {
					registry.Add(img)
				}
				slog.Info("Registered downloaded images", "dir", cfg.Paths.DownloadDir, "count", len(found))
			}

			handler := handlers.New(label.NewRecorder(cfg.Paths.LabelLog), registry, cfg.Paths.DownloadDir)
			server := &http.Server{
				Addr:              bind,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Labeling API available", "addr", bind, "label_log", cfg.Paths.LabelLog)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&bind, "bind", "b", "", "Address to listen on (default server.bind)")
	cmd.Flags().BoolVar(&noImport, "no-import", false, "Do not register images found in the download directory")

	return cmd
}
