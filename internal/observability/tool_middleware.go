package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaimegago/toolrouter/internal/tools"
)

const toolInstrumentationName = "toolrouter/tools"

// ToolInstrumentation creates tracing wrappers that share one set of metrics
type ToolInstrumentation struct {
	tracer     trace.Tracer
	dispatches metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewToolInstrumentation creates the tool metrics. Creation failures leave a
// metric nil, and nil metrics are skipped.
func NewToolInstrumentation(logger *slog.Logger) *ToolInstrumentation {
	if logger == nil {
		logger = slog.Default()
	}
	meter := Meter(toolInstrumentationName)

	dispatches, err := meter.Int64Counter("tool.dispatches",
		metric.WithDescription("Tool executions by tool and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		logger.Warn("failed to create tool.dispatches metric", "error", err)
	}

	duration, err := meter.Float64Histogram("tool.duration",
		metric.WithDescription("Tool execution duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create tool.duration metric", "error", err)
	}

	return &ToolInstrumentation{
		tracer:     Tracer(toolInstrumentationName),
		dispatches: dispatches,
		duration:   duration,
	}
}

// Wrap returns tool instrumented with a span and metrics. It matches the
// signature of tools.Registry.Wrap.
func (ti *ToolInstrumentation) Wrap(tool tools.Tool) tools.Tool {
	return &tracedTool{Tool: tool, ti: ti}
}

type tracedTool struct {
	tools.Tool
	ti *ToolInstrumentation
}

func (t *tracedTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	ctx, span := t.ti.tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(attribute.String("tool.name", t.Name())),
	)
	defer span.End()

	start := time.Now()
	result, err := t.Tool.Execute(ctx, args)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(tools.Classify(err))
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	attrs := metric.WithAttributes(
		attribute.String("tool", t.Name()),
		attribute.String("outcome", outcome),
	)
	if t.ti.dispatches != nil {
		t.ti.dispatches.Add(ctx, 1, attrs)
	}
	if t.ti.duration != nil {
		t.ti.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}

	return result, err
}
