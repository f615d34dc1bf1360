package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// App is the HTTP API process
type App struct {
	server *http.Server
	core   *Core
}

// Run serves until SIGINT/SIGTERM or a server error
func (a *App) Run() error {
	log := a.core.Logger

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("Server error", zap.Error(err))
		a.core.Close()
		return err
	case sig := <-sigChan:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log := a.core.Logger
	log.Info("Shutting down server gracefully")

	err := a.server.Shutdown(ctx)
	if err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Closing state store")
	a.core.Close()

	return err
}
