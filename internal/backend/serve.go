package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/logger"
)

// Start runs the archive's background flusher. The returned stop cancels it
// and waits for the final flush. It is a no-op for archives without one.
func (a *Archive) Start() (stop func()) {
	if a == nil || a.Run == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Serve runs server until ctx is done or the listener fails. On ctx done it
// shuts the server down, allowing timeout for in-flight requests.
func Serve(ctx context.Context, server *http.Server, timeout time.Duration, log *logger.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
