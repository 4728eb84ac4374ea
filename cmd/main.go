package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/barrier_reports/config"
	deps "github.com/bwise1/barrier_reports/internal/debs"
	api "github.com/bwise1/barrier_reports/internal/http/rest"
	"github.com/bwise1/barrier_reports/internal/logger"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
	closeTimeout                  = 10 * time.Second
)

func main() {
	cfg := config.New()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dependencies, err := deps.New(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to assemble dependencies")
	}

	a := &api.API{
		Config: cfg,
		Deps:   dependencies,
	}
	go dependencies.Feed.Run(ctx)
	go func() {
		logger.Log.WithField("port", cfg.Port).Info("server running")
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Fatal("server stopped")
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	logger.Log.WithField("wait", allowConnectionsAfterShutdown).Info("request to shutdown server")
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	logger.Log.Info("shutting down server")
	if err := a.Shutdown(); err != nil {
		logger.Log.WithError(err).Error("server shutdown")
	}
	stop()

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := dependencies.Close(closeCtx); err != nil {
		logger.Log.WithError(err).Error("closing store")
	}
	logger.Log.Info("store connections closed")
}
