package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaimegago/toolrouter/internal/config"
	"github.com/jaimegago/toolrouter/internal/logging"
	"github.com/jaimegago/toolrouter/internal/remote"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	addr := flag.String("addr", "", "listen address (overrides worker.address)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	listen := cfg.Worker.Address
	if *addr != "" {
		listen = *addr
	}

	server := &http.Server{
		Addr:         listen,
		Handler:      remote.NewWorker(remote.Local{}, logger).Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("multiplyd starting", "addr", listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("multiplyd stopped")
}
