package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaimegago/toolrouter/internal/llm"
)

const llmInstrumentationName = "toolrouter/llm"

// LLMMiddleware wraps an LLM adapter with a span per model call.
// Counters live in llm.InstrumentedAdapter.
type LLMMiddleware struct {
	adapter  llm.LLMAdapter
	provider string
	model    string
	tracer   trace.Tracer
}

// NewLLMMiddleware creates a tracing LLM middleware
func NewLLMMiddleware(adapter llm.LLMAdapter, provider, model string) *LLMMiddleware {
	return &LLMMiddleware{
		adapter:  adapter,
		provider: provider,
		model:    model,
		tracer:   Tracer(llmInstrumentationName),
	}
}

// Chat implements llm.LLMAdapter
func (m *LLMMiddleware) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	attrs := append(LLMAttributes(m.provider, m.model),
		attribute.Int("llm.messages.count", len(req.Messages)),
		attribute.Int("llm.tools.count", len(req.Tools)),
	)
	ctx, span := m.tracer.Start(ctx, "llm.chat", trace.WithAttributes(attrs...))
	defer span.End()

	resp, err := m.adapter.Chat(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens.input", resp.Usage.InputTokens),
		attribute.Int("llm.tokens.output", resp.Usage.OutputTokens),
		attribute.Int("llm.tokens.total", resp.Usage.TotalTokens),
		attribute.Int("llm.tool_calls.count", len(resp.ToolCalls)),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}
