package llm

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jaimegago/toolrouter/internal/llm"

// APIErrorDetails interface for errors that carry API error details
type APIErrorDetails interface {
	error
	APICode() int
	APIMessage() string
}

// InstrumentedAdapter wraps an LLMAdapter with call, token, latency and error metrics.
// In-memory counters back GetStats, which the status endpoint reports.
type InstrumentedAdapter struct {
	adapter  LLMAdapter
	logger   *slog.Logger
	provider string
	model    string

	totalCalls        atomic.Int64
	totalErrors       atomic.Int64
	totalToolCalls    atomic.Int64
	totalInputTokens  atomic.Int64
	totalOutputTokens atomic.Int64

	requestCounter     metric.Int64Counter
	errorCounter       metric.Int64Counter
	toolCallCounter    metric.Int64Counter
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	latencyHistogram   metric.Float64Histogram
}

// NewInstrumentedAdapter wraps an LLM adapter with instrumentation
func NewInstrumentedAdapter(adapter LLMAdapter, logger *slog.Logger, provider, model string) *InstrumentedAdapter {
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(meterName)

	// Metrics stay nil on creation failure; the safe* helpers skip them
	requestCounter, err := meter.Int64Counter("llm.requests",
		metric.WithDescription("Total number of LLM API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("failed to create llm.requests metric", "error", err)
	}

	errorCounter, err := meter.Int64Counter("llm.errors",
		metric.WithDescription("Total number of LLM API errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Warn("failed to create llm.errors metric", "error", err)
	}

	toolCallCounter, err := meter.Int64Counter("llm.tool_calls",
		metric.WithDescription("Tool calls requested by the model"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		logger.Warn("failed to create llm.tool_calls metric", "error", err)
	}

	inputTokenCounter, err := meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		logger.Warn("failed to create llm.tokens.input metric", "error", err)
	}

	outputTokenCounter, err := meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total output tokens consumed"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		logger.Warn("failed to create llm.tokens.output metric", "error", err)
	}

	latencyHistogram, err := meter.Float64Histogram("llm.request.duration",
		metric.WithDescription("LLM request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create llm.request.duration metric", "error", err)
	}

	return &InstrumentedAdapter{
		adapter:            adapter,
		logger:             logger,
		provider:           provider,
		model:              model,
		requestCounter:     requestCounter,
		errorCounter:       errorCounter,
		toolCallCounter:    toolCallCounter,
		inputTokenCounter:  inputTokenCounter,
		outputTokenCounter: outputTokenCounter,
		latencyHistogram:   latencyHistogram,
	}
}

func safeAddCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter != nil {
		counter.Add(ctx, value, metric.WithAttributes(attrs...))
	}
}

func safeRecordHistogram(ctx context.Context, hist metric.Float64Histogram, value float64, attrs ...attribute.KeyValue) {
	if hist != nil {
		hist.Record(ctx, value, metric.WithAttributes(attrs...))
	}
}

// Chat implements LLMAdapter with instrumentation
func (i *InstrumentedAdapter) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	i.totalCalls.Add(1)

	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", i.provider),
		attribute.String("llm.model", i.model),
	}
	safeAddCounter(ctx, i.requestCounter, 1, attrs...)

	resp, err := i.adapter.Chat(ctx, req)
	duration := time.Since(start)

	latencyAttrs := append(attrs, attribute.Bool("error", err != nil))
	safeRecordHistogram(ctx, i.latencyHistogram, float64(duration.Milliseconds()), latencyAttrs...)

	if err != nil {
		i.totalErrors.Add(1)

		logArgs := []any{
			"error", err,
			"provider", i.provider,
			"model", i.model,
			"duration_ms", duration.Milliseconds(),
		}
		var apiErr APIErrorDetails
		if errors.As(err, &apiErr) {
			safeAddCounter(ctx, i.errorCounter, 1, append(attrs, attribute.Int("api_error_code", apiErr.APICode()))...)
			logArgs = append(logArgs, "api_error_code", apiErr.APICode(), "api_error_msg", apiErr.APIMessage())
		} else {
			safeAddCounter(ctx, i.errorCounter, 1, attrs...)
		}
		i.logger.Error("llm_error", logArgs...)
		return nil, err
	}

	i.totalInputTokens.Add(int64(resp.Usage.InputTokens))
	i.totalOutputTokens.Add(int64(resp.Usage.OutputTokens))
	i.totalToolCalls.Add(int64(len(resp.ToolCalls)))

	safeAddCounter(ctx, i.inputTokenCounter, int64(resp.Usage.InputTokens), attrs...)
	safeAddCounter(ctx, i.outputTokenCounter, int64(resp.Usage.OutputTokens), attrs...)
	if len(resp.ToolCalls) > 0 {
		safeAddCounter(ctx, i.toolCallCounter, int64(len(resp.ToolCalls)), attrs...)
	}

	i.logger.Debug("llm_response",
		"provider", i.provider,
		"model", i.model,
		"tool_calls", len(resp.ToolCalls),
		"duration_ms", duration.Milliseconds(),
	)

	return resp, nil
}

// Stats holds instrumentation statistics
type Stats struct {
	Provider          string `json:"provider"`
	Model             string `json:"model"`
	TotalCalls        int64  `json:"total_calls"`
	TotalErrors       int64  `json:"total_errors"`
	TotalToolCalls    int64  `json:"total_tool_calls"`
	TotalInputTokens  int64  `json:"total_input_tokens"`
	TotalOutputTokens int64  `json:"total_output_tokens"`
	TotalTokens       int64  `json:"total_tokens"`
}

// GetStats returns the current instrumentation statistics
func (i *InstrumentedAdapter) GetStats() Stats {
	input := i.totalInputTokens.Load()
	output := i.totalOutputTokens.Load()

	return Stats{
		Provider:          i.provider,
		Model:             i.model,
		TotalCalls:        i.totalCalls.Load(),
		TotalErrors:       i.totalErrors.Load(),
		TotalToolCalls:    i.totalToolCalls.Load(),
		TotalInputTokens:  input,
		TotalOutputTokens: output,
		TotalTokens:       input + output,
	}
}
