package repl

import (
	"context"
	"fmt"

	"github.com/jaimegago/toolrouter/internal/client"
	"github.com/jaimegago/toolrouter/internal/config"
	"github.com/jaimegago/toolrouter/internal/router"
)

// Reply is one answered turn
type Reply struct {
	Answer     string
	Dispatches []DispatchLine
	Iterations int
}

// DispatchLine summarizes a tool call for display
type DispatchLine struct {
	Tool   string
	Args   map[string]any
	Result any
	Error  string
	Kind   string
}

// Backend is where the REPL sends user turns
type Backend interface {
	Send(ctx context.Context, text string) (*Reply, error)
	Reset()
	Tools(ctx context.Context) ([]string, error)
}

// ModelSwitcher is implemented by backends that can change model at runtime
type ModelSwitcher interface {
	Models() ([]ModelChoice, string)
	SwitchModel(ctx context.Context, key string) error
}

// LocalBackend runs the router in-process and keeps one conversation
type LocalBackend struct {
	router *router.Router
	conv   *router.Conversation
	cfg    *config.Config
}

// NewLocalBackend creates a backend over r. cfg supplies the model list for /model.
func NewLocalBackend(r *router.Router, cfg *config.Config) *LocalBackend {
	conv := router.NewConversation()
	if cfg != nil {
		conv.MaxMessages = cfg.Router.MaxHistory
	}
	return &LocalBackend{router: r, conv: conv, cfg: cfg}
}

// Send runs one turn. A failed turn leaves the history unchanged.
func (b *LocalBackend) Send(ctx context.Context, text string) (*Reply, error) {
	cp := b.conv.Checkpoint()
	b.conv.AddUserText(text)
	res, err := b.router.Invoke(ctx, b.conv)
	if err != nil {
		b.conv.Rollback(cp)
		return nil, err
	}

	reply := &Reply{Answer: res.Answer(), Iterations: res.Iterations}
	for _, d := range res.Dispatches {
		reply.Dispatches = append(reply.Dispatches, DispatchLine{
			Tool:   d.Tool,
			Args:   d.Args,
			Result: d.Result,
			Error:  d.Error,
			Kind:   string(d.Kind),
		})
	}
	return reply, nil
}

// Reset clears the conversation
func (b *LocalBackend) Reset() {
	b.conv.Clear()
}

// Tools lists the registered tools
func (b *LocalBackend) Tools(ctx context.Context) ([]string, error) {
	return b.router.Registry().Names(), nil
}

// Conversation exposes the history, mostly for tests
func (b *LocalBackend) Conversation() *router.Conversation {
	return b.conv
}

// Models implements ModelSwitcher
func (b *LocalBackend) Models() ([]ModelChoice, string) {
	if b.cfg == nil {
		return nil, ""
	}
	var choices []ModelChoice
	for _, key := range b.cfg.LLM.ModelNames() {
		mc := b.cfg.LLM.Available[key]
		choices = append(choices, ModelChoice{Key: key, Label: mc.Provider + "/" + mc.Model})
	}
	return choices, b.cfg.LLM.Current
}

// SwitchModel implements ModelSwitcher
func (b *LocalBackend) SwitchModel(ctx context.Context, key string) error {
	if b.cfg == nil {
		return fmt.Errorf("no model configuration")
	}
	mc, ok := b.cfg.LLM.Available[key]
	if !ok {
		return fmt.Errorf("model %s not found in config", key)
	}
	if err := b.router.SwitchModel(ctx, mc.Provider, mc.Model, key); err != nil {
		return err
	}
	b.cfg.LLM.Current = key
	return nil
}

// RemoteBackend talks to a running routerd. The daemon's chat endpoint is
// stateless, so every turn is a fresh conversation.
type RemoteBackend struct {
	client *client.Client
}

// NewRemoteBackend creates a backend over c
func NewRemoteBackend(c *client.Client) *RemoteBackend {
	return &RemoteBackend{client: c}
}

// Send implements Backend
func (b *RemoteBackend) Send(ctx context.Context, text string) (*Reply, error) {
	res, err := b.client.Chat(ctx, text)
	if err != nil {
		return nil, err
	}
	reply := &Reply{Answer: res.Answer, Iterations: res.Iterations}
	for _, d := range res.Dispatches {
		reply.Dispatches = append(reply.Dispatches, DispatchLine(d))
	}
	return reply, nil
}

// Reset implements Backend; there is no remote history to clear
func (b *RemoteBackend) Reset() {}

// Tools implements Backend
func (b *RemoteBackend) Tools(ctx context.Context) ([]string, error) {
	st, err := b.client.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	return st.Tools, nil
}
