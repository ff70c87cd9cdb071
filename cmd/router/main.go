package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaimegago/toolrouter/internal/client"
	"github.com/jaimegago/toolrouter/internal/config"
	"github.com/jaimegago/toolrouter/internal/core"
	"github.com/jaimegago/toolrouter/internal/logging"
	"github.com/jaimegago/toolrouter/internal/repl"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	serverURL := flag.String("server", "", "routerd URL; empty runs the router in-process")
	flag.Parse()

	if err := run(*configPath, *serverURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, serverURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Keep the terminal for the conversation; logs go to logging.file if set
	logger, cleanup := logging.SetupLoggerWithFile(cfg.Logging.Level, cfg.Logging.File)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend repl.Backend
	if serverURL != "" {
		c := client.New(serverURL)
		if err := c.Ping(ctx); err != nil {
			return fmt.Errorf("routerd not reachable at %s: %w", serverURL, err)
		}
		backend = repl.NewRemoteBackend(c)
	} else {
		mc, err := cfg.LLM.CurrentModel()
		if err != nil {
			return err
		}
		if err := config.ValidateAPIKeysWithUserMessage(mc); err != nil {
			return err
		}
		// Terminal sessions have no scrape endpoint
		cfg.Telemetry.MetricsEnabled = false

		services, err := core.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer services.Close()
		backend = repl.NewLocalBackend(services.Router, cfg)
	}

	return repl.New(backend).Run(ctx)
}
