// Package router drives the tool-calling loop between a language model and
// the tool registry.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/tools"
)

// DefaultMaxIterations bounds model queries per run
const DefaultMaxIterations = 10

var (
	// ErrNoUserMessage is returned when a run starts without any user input
	ErrNoUserMessage = errors.New("conversation has no user message")

	// ErrMaxIterations is returned when the model keeps requesting tools past the loop bound
	ErrMaxIterations = errors.New("max iterations reached without final response")

	// ErrModel wraps failures of the language model call
	ErrModel = errors.New("llm chat failed")
)

// AdapterFactory creates a new LLM adapter for the given provider and model.
// Used by SwitchModel to hot-swap the underlying LLM without restarting.
type AdapterFactory func(ctx context.Context, provider, model string) (llm.LLMAdapter, error)

// Option configures optional Router settings.
type Option func(*Router)

// WithAdapterFactory sets the adapter factory for hot-swapping models.
func WithAdapterFactory(f AdapterFactory) Option {
	return func(r *Router) { r.adapterFactory = f }
}

// WithCurrentModelName sets the display name of the active model.
func WithCurrentModelName(name string) Option {
	return func(r *Router) { r.currentModel = name }
}

// WithMaxIterations overrides DefaultMaxIterations. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// DispatchHook observes each tool dispatch as soon as it completes
type DispatchHook func(Dispatch)

// RunOption configures a single Invoke
type RunOption func(*runConfig)

type runConfig struct {
	onDispatch DispatchHook
}

// WithDispatchHook reports dispatches of this run to h
func WithDispatchHook(h DispatchHook) RunOption {
	return func(c *runConfig) { c.onDispatch = h }
}

// Router runs the routing loop: model -> tool calls -> model -> ...
// One Router is shared by all conversations; each run is sequential.
type Router struct {
	mu             sync.RWMutex // protects llm and currentModel
	llm            llm.LLMAdapter
	executor       *tools.Executor
	registry       *tools.Registry
	systemPrompt   string
	maxIterations  int
	adapterFactory AdapterFactory
	currentModel   string
	logger         *slog.Logger
}

// New creates a router. Options are applied after defaults.
func New(llmAdapter llm.LLMAdapter, executor *tools.Executor, registry *tools.Registry, systemPrompt string, opts ...Option) *Router {
	r := &Router{
		llm:           llmAdapter,
		executor:      executor,
		registry:      registry,
		systemPrompt:  systemPrompt,
		maxIterations: DefaultMaxIterations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SwitchModel hot-swaps the LLM adapter to a different provider/model.
// Requires an AdapterFactory to have been set via WithAdapterFactory.
func (r *Router) SwitchModel(ctx context.Context, provider, model, displayName string) error {
	if r.adapterFactory == nil {
		return fmt.Errorf("no adapter factory configured; cannot switch models")
	}
	newAdapter, err := r.adapterFactory(ctx, provider, model)
	if err != nil {
		return fmt.Errorf("failed to create adapter for %s/%s: %w", provider, model, err)
	}
	r.mu.Lock()
	r.llm = newAdapter
	r.currentModel = displayName
	r.mu.Unlock()
	r.logger.Info("model_switched", "provider", provider, "model", model)
	return nil
}

// CurrentModelName returns the display name of the active model.
func (r *Router) CurrentModelName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentModel
}

// Registry returns the tool registry offered to the model
func (r *Router) Registry() *tools.Registry {
	return r.registry
}

// MaxIterations returns the loop bound
func (r *Router) MaxIterations() int {
	return r.maxIterations
}

// Run appends userMessage to conv, invokes the loop and returns the final text.
func (r *Router) Run(ctx context.Context, conv *Conversation, userMessage string) (string, error) {
	conv.AddUserText(userMessage)
	res, err := r.Invoke(ctx, conv)
	if err != nil {
		return "", err
	}
	return res.Answer(), nil
}

// Invoke runs the loop over conv until the model answers without a tool call.
//
// Each iteration submits the whole conversation plus the tool definitions and
// appends the assistant reply. Tool calls in the reply are dispatched in order
// and their results appended as tool messages. Tool failures do not end the
// run; they are fed back to the model and recorded in Result.Dispatches.
// Model errors and context cancellation end the run.
func (r *Router) Invoke(ctx context.Context, conv *Conversation, opts ...RunOption) (*Result, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	conv.trimHistory()
	if !conv.HasUserMessage() {
		return nil, ErrNoUserMessage
	}
	conv.ResetRunStats()

	toolDefs := r.registry.ToDefinitions()
	result := &Result{}

	for i := 0; i < r.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.logger.Debug("router_state", "state", StateAwaitingModel, "iteration", i+1)
		req := llm.ChatRequest{
			SystemPrompt: r.systemPrompt,
			Messages:     conv.Messages,
			Tools:        toolDefs,
		}

		// Read lock so SwitchModel can't swap mid-call
		r.mu.RLock()
		resp, err := r.llm.Chat(ctx, req)
		r.mu.RUnlock()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModel, err)
		}

		result.Iterations = i + 1
		conv.AddTokenUsage(resp.Usage)
		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens
		result.Usage.TotalTokens += resp.Usage.TotalTokens

		if !resp.HasToolCalls() {
			final := llm.Message{Role: llm.RoleAssistant, Content: resp.Content}
			// Empty assistant turns are rejected by some providers on the next request
			if final.Content != "" {
				conv.AddMessage(final)
			}
			result.Final = final
			r.logger.Debug("router_done",
				"iterations", result.Iterations,
				"dispatches", len(result.Dispatches),
			)
			return result, nil
		}

		// The tool calls must be preserved so the model sees them on the next iteration
		conv.AddMessage(llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		r.logger.Debug("router_state", "state", StateDispatchingTool, "iteration", i+1, "calls", len(resp.ToolCalls))
		requests := make([]tools.ToolCallRequest, len(resp.ToolCalls))
		for j, tc := range resp.ToolCalls {
			requests[j] = tools.ToolCallRequest{
				ID:   tc.ID,
				Name: tc.Name,
				Args: tc.Args,
			}
		}

		results, err := r.executor.ExecuteBatch(ctx, requests)
		if err != nil && !errors.Is(err, tools.ErrAllToolsFailed) {
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}

		for _, res := range results {
			d := newDispatch(i+1, res)
			result.Dispatches = append(result.Dispatches, d)
			if cfg.onDispatch != nil {
				cfg.onDispatch(d)
			}
		}

		// Failed tools are included so the model can respond to them
		conv.AddMessages(r.executor.ResultsToMessages(results))

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, r.maxIterations)
}
