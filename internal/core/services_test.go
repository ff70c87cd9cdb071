package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaimegago/toolrouter/internal/config"
	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/remote"
	"github.com/jaimegago/toolrouter/internal/router"
)

// multiplyLLM asks for multiply(3,4) once, then answers with the tool result
type multiplyLLM struct {
	closed bool
}

func (m *multiplyLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	last := req.Messages[len(req.Messages)-1]
	if last.Role == llm.RoleTool {
		return &llm.ChatResponse{Content: "product " + last.Content, Usage: llm.TokenUsage{InputTokens: 3, OutputTokens: 2}}, nil
	}
	return &llm.ChatResponse{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "multiply", Args: map[string]any{"a": 3.0, "b": 4.0}}}}, nil
}

func (m *multiplyLLM) Close() error {
	m.closed = true
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Telemetry.Enabled = false
	return cfg
}

func factoryFor(adapter llm.LLMAdapter, seen *[]string) router.AdapterFactory {
	return func(ctx context.Context, provider, model string) (llm.LLMAdapter, error) {
		*seen = append(*seen, provider+"/"+model)
		return adapter, nil
	}
}

func TestNew_LocalMultiplier(t *testing.T) {
	var seen []string
	adapter := &multiplyLLM{}
	s, err := New(context.Background(), testConfig(t), nil, WithAdapterFactory(factoryFor(adapter, &seen)))
	require.NoError(t, err)

	assert.IsType(t, remote.Local{}, s.Multiplier)
	assert.Equal(t, []string{"claude/claude-sonnet-4-20250514"}, seen)
	assert.Equal(t, "claude-sonnet", s.Router.CurrentModelName())
	assert.Equal(t, []string{"add", "divide", "multiply"}, s.Router.Registry().Names())
	assert.NotNil(t, s.Translator)
	assert.NotNil(t, s.Summarizer)
	assert.Nil(t, s.MetricsHandler())

	answer, err := s.Router.Run(context.Background(), router.NewConversation(), "multiply 3 and 4")
	require.NoError(t, err)
	assert.Equal(t, "product 12", answer)

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.TotalToolCalls)

	require.NoError(t, s.Close())
	assert.True(t, adapter.closed)
}

func TestNew_RemoteWorker(t *testing.T) {
	worker := httptest.NewServer(remote.NewWorker(nil, nil).Handler())
	defer worker.Close()

	cfg := testConfig(t)
	cfg.Worker.URL = worker.URL

	var seen []string
	s, err := New(context.Background(), cfg, nil, WithAdapterFactory(factoryFor(&multiplyLLM{}, &seen)))
	require.NoError(t, err)
	defer s.Close()

	client, ok := s.Multiplier.(*remote.Client)
	require.True(t, ok, "multiplier = %T", s.Multiplier)
	assert.Equal(t, worker.URL, client.BaseURL())

	answer, err := s.Router.Run(context.Background(), router.NewConversation(), "multiply 3 and 4")
	require.NoError(t, err)
	assert.Equal(t, "product 12", answer)
}

func TestNew_UnreachableWorkerWarns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.URL = "http://127.0.0.1:1"

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	var seen []string
	s, err := New(context.Background(), cfg, logger, WithAdapterFactory(factoryFor(&multiplyLLM{}, &seen)))
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, logs.String(), "worker_unreachable")

	res, err := s.Router.Invoke(context.Background(), conversationWith("multiply 3 and 4"))
	require.NoError(t, err)
	require.Len(t, res.Dispatches, 1)
	assert.Equal(t, "remote_unavailable", string(res.Dispatches[0].Kind))
}

func TestNew_HealthyWorkerDoesNotWarn(t *testing.T) {
	worker := httptest.NewServer(remote.NewWorker(nil, nil).Handler())
	defer worker.Close()

	cfg := testConfig(t)
	cfg.Worker.URL = worker.URL

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	var seen []string
	s, err := New(context.Background(), cfg, logger, WithAdapterFactory(factoryFor(&multiplyLLM{}, &seen)))
	require.NoError(t, err)
	defer s.Close()

	assert.NotContains(t, logs.String(), "worker_unreachable")
}

func conversationWith(text string) *router.Conversation {
	conv := router.NewConversation()
	conv.AddUserText(text)
	return conv
}

func TestNew_SwitchModelUsesFactory(t *testing.T) {
	var seen []string
	s, err := New(context.Background(), testConfig(t), nil, WithAdapterFactory(factoryFor(&multiplyLLM{}, &seen)))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Router.SwitchModel(context.Background(), "ollama", "llama3.1", "llama"))
	assert.Equal(t, "llama", s.Router.CurrentModelName())
	assert.Equal(t, []string{"claude/claude-sonnet-4-20250514", "ollama/llama3.1"}, seen)
	assert.Equal(t, int64(0), s.Stats().TotalCalls, "stats follow the new adapter")
}

func TestNew_Errors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Router.MaxIterations = 0
		_, err := New(context.Background(), cfg, nil)
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("adapter failure", func(t *testing.T) {
		failing := func(ctx context.Context, provider, model string) (llm.LLMAdapter, error) {
			return nil, errors.New("no key")
		}
		_, err := New(context.Background(), testConfig(t), nil, WithAdapterFactory(failing))
		assert.ErrorContains(t, err, "no key")
	})
}

func TestBaseURLFor(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Available["local"] = config.ModelConfig{Provider: "ollama", Model: "qwen", BaseURL: "http://gpu:11434"}

	assert.Equal(t, "http://gpu:11434", baseURLFor(cfg, "ollama", "qwen"))
	assert.Empty(t, baseURLFor(cfg, "claude", "claude-sonnet-4-20250514"))
}
