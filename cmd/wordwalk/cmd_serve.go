package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the corpus and walk API on the configured address until SIGINT or
SIGTERM, then shuts down gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openStoreApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	server := NewServer(a.config, a.store, a.logger)
	httpServer := &http.Server{
		Addr:              a.config.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting wordwalk API server", "address", httpServer.Addr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-cmd.Context().Done():
		a.logger.Info("OS signal received, initiating shutdown.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("API server shutdown failed", "error", err)
	}
	a.logger.Info("wordwalk has shut down.")
	return nil
}
