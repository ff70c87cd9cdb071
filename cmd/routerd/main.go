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

	"github.com/jaimegago/toolrouter/internal/api"
	"github.com/jaimegago/toolrouter/internal/config"
	"github.com/jaimegago/toolrouter/internal/core"
	"github.com/jaimegago/toolrouter/internal/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	mc, err := cfg.LLM.CurrentModel()
	if err != nil {
		logger.Error("invalid model selection", "error", err)
		os.Exit(1)
	}
	if err := config.ValidateAPIKeysWithUserMessage(mc); err != nil {
		logger.Error("missing credentials", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := core.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start services", "error", err)
		os.Exit(1)
	}
	defer services.Close()

	apiOpts := []api.Option{
		api.WithLogger(logger),
		api.WithPipelines(services.Translator, services.Summarizer),
		api.WithStats(services.Stats),
		api.WithMaxHistory(cfg.Router.MaxHistory),
	}
	if h := services.MetricsHandler(); h != nil {
		apiOpts = append(apiOpts, api.WithMetricsHandler(h))
	}
	apiServer := api.New(services.Router, apiOpts...)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("routerd starting", "addr", cfg.Server.Address, "model", cfg.LLM.Current)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
		services.Close()
		os.Exit(1)
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("routerd stopped")
}
