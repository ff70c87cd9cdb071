package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")

	c, err := NewClient("", "")
	require.NoError(t, err)
	assert.Equal(t, defaultModel, c.model)
}

func TestChat_ToolCall(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"add","arguments":{"a":3,"b":4}}}]},"done":true,"prompt_eval_count":20,"eval_count":7}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewClient("llama3.1", srv.URL)
	require.NoError(t, err)

	resp, err := c.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "Use tools.",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "3+4"}},
		Tools: []llm.ToolDefinition{{
			Name:        "add",
			Description: "Adds a and b.",
			Parameters: llm.ParameterSchema{
				Type:       "object",
				Properties: map[string]llm.Property{"a": {Type: "integer"}, "b": {Type: "integer"}},
				Required:   []string{"a", "b"},
			},
		}},
	})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add", resp.ToolCalls[0].Name)
	assert.Equal(t, float64(3), resp.ToolCalls[0].Args["a"])
	assert.Equal(t, 27, resp.Usage.TotalTokens)

	assert.Equal(t, false, got["stream"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	require.Len(t, got["tools"].([]any), 1)
}

func TestConvertMessages_ToolResult(t *testing.T) {
	out, err := convertMessages("", []llm.Message{
		{Role: llm.RoleUser, Content: "3+4"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{Name: "add", Args: map[string]any{"a": 3, "b": 4}}}},
		{Role: llm.RoleTool, ToolName: "add", Content: "7"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "tool", out[2].Role)
	assert.Equal(t, "7", out[2].Content)
	assert.Len(t, out[1].ToolCalls, 1)
}
