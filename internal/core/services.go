package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jaimegago/toolrouter/internal/config"
	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/llmfactory"
	"github.com/jaimegago/toolrouter/internal/observability"
	"github.com/jaimegago/toolrouter/internal/pipeline"
	"github.com/jaimegago/toolrouter/internal/remote"
	"github.com/jaimegago/toolrouter/internal/router"
	"github.com/jaimegago/toolrouter/internal/tools"
	"github.com/jaimegago/toolrouter/internal/tools/mathtools"
)

// Services provides access to all core functionality
// Used by both the HTTP daemon and the local REPL
type Services struct {
	Config     *config.Config
	Logger     *slog.Logger
	Router     *router.Router
	Multiplier remote.Multiplier
	Translator *pipeline.Translator
	Summarizer *pipeline.Summarizer

	shutdown observability.ShutdownFunc

	mu      sync.Mutex
	stats   *llm.InstrumentedAdapter
	closers []io.Closer
}

// Option configures New
type Option func(*options)

type options struct {
	adapterFactory router.AdapterFactory
	multiplier     remote.Multiplier
}

// WithAdapterFactory replaces the provider factory, mostly for tests
func WithAdapterFactory(f router.AdapterFactory) Option {
	return func(o *options) { o.adapterFactory = f }
}

// WithMultiplier overrides the multiplier chosen from the worker config
func WithMultiplier(m remote.Multiplier) Option {
	return func(o *options) { o.multiplier = m }
}

// New wires config into a ready router. The caller must Close the result.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{
		adapterFactory: func(ctx context.Context, provider, model string) (llm.LLMAdapter, error) {
			return llmfactory.NewAdapter(ctx, config.ModelConfig{Provider: provider, Model: model, BaseURL: baseURLFor(cfg, provider, model)})
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	shutdown, err := observability.Setup(ctx, observability.Config{
		Enabled:        cfg.Telemetry.Enabled,
		TracesEnabled:  cfg.Telemetry.TracesEnabled,
		TracesExporter: cfg.Telemetry.TracesExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		MetricsEnabled: cfg.Telemetry.MetricsEnabled,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	s := &Services{Config: cfg, Logger: logger, shutdown: shutdown}

	mc, err := cfg.LLM.CurrentModel()
	if err != nil {
		s.Close()
		return nil, err
	}
	factory := s.instrumented(o.adapterFactory)
	adapter, err := factory(ctx, mc.Provider, mc.Model)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create LLM adapter: %w", err)
	}

	s.Multiplier = o.multiplier
	if s.Multiplier == nil {
		s.Multiplier = multiplierFor(cfg.Worker, logger)
	}
	// An unreachable worker is not fatal; multiply calls report remote_unavailable
	if c, ok := s.Multiplier.(*remote.Client); ok {
		if err := c.Health(ctx); err != nil {
			logger.Warn("worker_unreachable", "url", c.BaseURL(), "error", err)
		}
	}

	registry := mathtools.NewDefaultRegistry(s.Multiplier)
	registry.Wrap(observability.NewToolInstrumentation(logger).Wrap)
	executor := tools.NewExecutor(registry,
		tools.WithTimeout(cfg.Router.ToolTimeout),
		tools.WithLogger(logger),
	)

	s.Router = router.New(adapter, executor, registry, cfg.Router.SystemPrompt,
		router.WithAdapterFactory(factory),
		router.WithCurrentModelName(cfg.LLM.Current),
		router.WithMaxIterations(cfg.Router.MaxIterations),
		router.WithLogger(logger),
	)

	// Pipelines share the startup adapter; they do not follow /model switches
	s.Translator = pipeline.NewTranslator(adapter, cfg.Pipeline.SourceLanguage, cfg.Pipeline.TargetLanguage)
	s.Summarizer = pipeline.NewSummarizer(adapter, cfg.Pipeline.SummaryMaxWords, s.Translator)

	logger.Info("services ready",
		"model", cfg.LLM.Current,
		"provider", mc.Provider,
		"tools", registry.Names(),
		"worker", workerTarget(cfg.Worker),
	)
	return s, nil
}

// instrumented decorates adapters from f with metrics and tracing and keeps
// the latest one for Stats
func (s *Services) instrumented(f router.AdapterFactory) router.AdapterFactory {
	return func(ctx context.Context, provider, model string) (llm.LLMAdapter, error) {
		raw, err := f(ctx, provider, model)
		if err != nil {
			return nil, err
		}
		inst := llm.NewInstrumentedAdapter(raw, s.Logger, provider, model)

		s.mu.Lock()
		s.stats = inst
		if c, ok := raw.(io.Closer); ok {
			s.closers = append(s.closers, c)
		}
		s.mu.Unlock()

		return observability.NewLLMMiddleware(inst, provider, model), nil
	}
}

// Stats reports counters for the active adapter
func (s *Services) Stats() llm.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats == nil {
		return llm.Stats{}
	}
	return s.stats.GetStats()
}

// MetricsHandler returns the Prometheus handler, or nil when metrics are off
func (s *Services) MetricsHandler() http.Handler {
	t := s.Config.Telemetry
	if !t.Enabled || !t.MetricsEnabled {
		return nil
	}
	return observability.MetricsHandler()
}

// Close releases provider clients and flushes telemetry
func (s *Services) Close() error {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.shutdown != nil {
		if err := s.shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func multiplierFor(w config.WorkerConfig, logger *slog.Logger) remote.Multiplier {
	if w.URL == "" {
		return remote.Local{}
	}
	return remote.NewClient(w.URL, w.Timeout, remote.WithClientLogger(logger))
}

func workerTarget(w config.WorkerConfig) string {
	if w.URL == "" {
		return "in-process"
	}
	return w.URL
}

// baseURLFor finds the configured base URL for a provider/model pair
func baseURLFor(cfg *config.Config, provider, model string) string {
	for _, mc := range cfg.LLM.Available {
		if mc.Provider == provider && mc.Model == model {
			return mc.BaseURL
		}
	}
	return ""
}
