package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jaimegago/toolrouter/internal/llm"
	ollama "github.com/ollama/ollama/api"
)

const (
	defaultModel = "llama3.1"
	defaultHost  = "http://localhost:11434"
)

// Client implements the LLMAdapter interface against a local Ollama server
type Client struct {
	client *ollama.Client
	model  string
}

// NewClient creates a new Ollama client. host falls back to OLLAMA_HOST and then
// to the default local address.
func NewClient(model, host string) (*Client, error) {
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultHost
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: ollama.NewClient(u, &http.Client{Timeout: 120 * time.Second}),
		model:  model,
	}, nil
}

// wire shapes of the Ollama chat API; the typed api structs are filled from
// these through JSON so the adapter does not depend on their Go field layout
type wireToolCall struct {
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

// Chat sends a non-streaming chat request and returns a response
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	messages, err := convertMessages(req.SystemPrompt, req.Messages)
	if err != nil {
		return nil, err
	}
	tools, err := convertTools(req.Tools)
	if err != nil {
		return nil, err
	}

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   &stream,
	}
	if req.MaxTokens > 0 {
		chatReq.Options = map[string]any{"num_predict": req.MaxTokens}
	}

	var final ollama.ChatResponse
	var content string
	if err := c.client.Chat(ctx, chatReq, func(resp ollama.ChatResponse) error {
		content += resp.Message.Content
		final = resp
		return nil
	}); err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	return convertResponse(final, content)
}

func convertMessages(systemPrompt string, msgs []llm.Message) ([]ollama.Message, error) {
	wire := make([]wireMessage, 0, len(msgs)+1)
	if systemPrompt != "" {
		wire = append(wire, wireMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range msgs {
		wm := wireMessage{Role: msg.Role, Content: msg.Content}
		switch msg.Role {
		case llm.RoleAssistant:
			for _, tc := range msg.ToolCalls {
				wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
					Function: wireFunction{Name: tc.Name, Arguments: tc.Args},
				})
			}
		case llm.RoleTool:
			wm.ToolName = msg.ToolName
		default:
			wm.Role = llm.RoleUser
		}
		wire = append(wire, wm)
	}

	var out []ollama.Message
	if err := reencode(wire, &out); err != nil {
		return nil, fmt.Errorf("encode ollama messages: %w", err)
	}
	return out, nil
}

func convertTools(defs []llm.ToolDefinition) (ollama.Tools, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	wire := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		wire = append(wire, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  def.Parameters.JSONSchema(),
			},
		})
	}

	var out ollama.Tools
	if err := reencode(wire, &out); err != nil {
		return nil, fmt.Errorf("encode ollama tools: %w", err)
	}
	return out, nil
}

func convertResponse(resp ollama.ChatResponse, content string) (*llm.ChatResponse, error) {
	var msg wireMessage
	if err := reencode(resp.Message, &msg); err != nil {
		return nil, fmt.Errorf("decode ollama message: %w", err)
	}

	result := &llm.ChatResponse{
		Content: content,
		Usage: llm.TokenUsage{
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
			TotalTokens:  resp.PromptEvalCount + resp.EvalCount,
		},
	}
	for i, tc := range msg.ToolCalls {
		args := tc.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:   fmt.Sprintf("%s-%d", tc.Function.Name, i),
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return result, nil
}

func reencode(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
