package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaimegago/toolrouter/internal/llm"
)

// Executor executes tool calls from the LLM
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// ExecutorOption configures optional Executor settings.
type ExecutorOption func(*Executor)

// WithTimeout bounds each single tool execution. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger sets the logger used for dispatch records.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates a new tool executor
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor dispatches against
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute executes a single tool call.
// Errors wrap ErrUnknownTool, ErrInvalidArguments or ErrToolFault.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, err := e.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool %s: %w", name, err)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := ValidateArgs(tool.Parameters(), args); err != nil {
		return nil, fmt.Errorf("failed to validate arguments for %s: %w", name, err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := safeExecute(ctx, tool, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrToolFault, name, err)
	}

	return result, nil
}

// safeExecute turns a panicking tool into an ordinary fault
func safeExecute(ctx context.Context, tool Tool, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Execute(ctx, args)
}

// ExecuteBatch executes multiple tool calls one after another, in order.
// Returns results for all tools (successful or not) and an error only if ALL tools failed.
// Individual tool errors are stored in each ToolCallResult.Error field.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []ToolCallRequest) ([]ToolCallResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	results := make([]ToolCallResult, len(calls))
	errorCount := 0

	for i, call := range calls {
		start := time.Now()
		result, err := e.Execute(ctx, call.Name, call.Args)
		results[i] = ToolCallResult{
			ID:     call.ID,
			Name:   call.Name,
			Args:   call.Args,
			Result: result,
			Error:  err,
			Kind:   Classify(err),
		}
		if err != nil {
			errorCount++
			e.logger.Warn("tool_dispatch_failed",
				"tool", call.Name,
				"kind", results[i].Kind,
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		} else {
			e.logger.Debug("tool_dispatched",
				"tool", call.Name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}

	if errorCount == len(calls) {
		return results, fmt.Errorf("%w: %d tool(s) failed", ErrAllToolsFailed, errorCount)
	}

	return results, nil
}

// ResultsToMessages converts tool call results to LLM messages
func (e *Executor) ResultsToMessages(results []ToolCallResult) []llm.Message {
	messages := make([]llm.Message, len(results))
	for i, result := range results {
		messages[i] = ResultToMessage(result)
	}
	return messages
}

// ResultToMessage converts a single tool call result to a tool-role message.
// Successful results are JSON encoded, so add(3,4) reads "7" and divide(14,5) reads "2.8".
func ResultToMessage(result ToolCallResult) llm.Message {
	msg := llm.Message{
		Role:         llm.RoleTool,
		ToolResultID: result.ID,
		ToolName:     result.Name,
	}

	if result.Error != nil {
		msg.Content = fmt.Sprintf("Error executing tool: %v", result.Error)
		msg.IsError = true
		return msg
	}

	jsonBytes, err := json.Marshal(result.Result)
	if err != nil {
		msg.Content = fmt.Sprintf("Error marshaling result: %v", err)
		msg.IsError = true
		return msg
	}
	msg.Content = string(jsonBytes)
	return msg
}

// ToolCallRequest represents a request to execute a tool
type ToolCallRequest struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolCallResult represents the result of executing a tool
type ToolCallResult struct {
	ID     string
	Name   string
	Args   map[string]any
	Result any
	Error  error
	Kind   ErrorKind
}
