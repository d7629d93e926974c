package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
)

const serviceName = "pickup-service"

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), loadConfig(), appDependencies{}, signalCh); err != nil {
		os.Exit(1)
	}
}

// run serves the pickup API until a signal arrives or ctx is cancelled
func run(ctx context.Context, config *Config, deps appDependencies, signalCh <-chan os.Signal) error {
	if config == nil {
		config = loadConfig()
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(config.LogLevel)
	logger := logging.New(logConfig)
	logger.SetDefault()
	logger.Info("Starting pickup-service API", "addr", config.ServerAddr)

	a := newApp(config, deps, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		a.shutdown(shutdownCtx)
		logger.Info("Server stopped")
	}()

	handler, err := a.start(ctx)
	if err != nil {
		logger.WithError(err).Error("Startup failed")
		return err
	}

	srv := a.deps.newHTTPServer(config.ServerAddr, handler)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()

	select {
	case <-signalCh:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	return nil
}
