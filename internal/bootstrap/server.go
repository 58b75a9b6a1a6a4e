// Package bootstrap owns HTTP server lifecycle: start, serve, and
// graceful shutdown on context cancellation.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/skyvia/flightcore/config"
)

const shutdownTimeout = 5 * time.Second

// Run serves the handler until the context is cancelled or the server
// fails, then drains in-flight requests.
func Run(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("address", cfg.Address))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("http server stopped")
		return nil
	}
}
