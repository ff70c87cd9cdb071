package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jaimegago/toolrouter/internal/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

// Client implements the LLMAdapter interface on the OpenAI chat completions API.
// Any OpenAI-compatible endpoint works through a custom base URL.
type Client struct {
	client *goopenai.Client
	model  string
}

// APIError carries the status code of a failed OpenAI request
type APIError struct {
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Err.Error() }

func (e *APIError) Unwrap() error { return e.Err }

// APICode returns the HTTP status code from the API
func (e *APIError) APICode() int { return e.Code }

// APIMessage returns the raw error message from the API
func (e *APIError) APIMessage() string { return e.Message }

// NewClient creates a new OpenAI client.
// API key is read from OPENAI_API_KEY; baseURL may be empty for the public API.
func NewClient(model, baseURL string) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Chat sends a chat request and returns a response
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	messages, err := convertMessages(req.SystemPrompt, req.Messages)
	if err != nil {
		return nil, err
	}

	params := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = req.MaxTokens
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, convertToolDefinition(tool))
	}

	resp, err := c.client.CreateChatCompletion(ctx, params)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{
				Code:    apiErr.HTTPStatusCode,
				Message: apiErr.Message,
				Err:     fmt.Errorf("openai API error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message),
			}
		}
		return nil, fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	return convertResponse(resp), nil
}

func convertMessages(systemPrompt string, msgs []llm.Message) ([]goopenai.ChatCompletionMessage, error) {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleAssistant:
			m := goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Args)
				if err != nil {
					return nil, fmt.Errorf("encode arguments of %s: %w", tc.Name, err)
				}
				m.ToolCalls = append(m.ToolCalls, goopenai.ToolCall{
					ID:   tc.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, m)
		case llm.RoleTool:
			out = append(out, goopenai.ChatCompletionMessage{
				Role:       goopenai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolResultID,
				Name:       msg.ToolName,
			})
		default:
			out = append(out, goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		}
	}

	return out, nil
}

func convertToolDefinition(tool llm.ToolDefinition) goopenai.Tool {
	return goopenai.Tool{
		Type: goopenai.ToolTypeFunction,
		Function: &goopenai.FunctionDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters.JSONSchema(),
		},
	}
}

func convertResponse(resp goopenai.ChatCompletionResponse) *llm.ChatResponse {
	choice := resp.Choices[0].Message
	result := &llm.ChatResponse{
		Content: choice.Content,
		Usage: llm.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.ToolCalls {
		args := make(map[string]any)
		if tc.Function.Arguments != "" {
			// Malformed arguments surface later as invalid tool arguments
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	return result
}
