package llm

import "context"

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// LLMAdapter is the interface for language model providers (Claude, Gemini, OpenAI, Ollama).
// The router only ever talks to a model through this interface.
type LLMAdapter interface {
	// Chat submits the whole conversation and returns exactly one assistant reply
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest represents a request to the LLM
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	MaxTokens    int
}

// ChatResponse represents a response from the LLM
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     TokenUsage
}

// HasToolCalls reports whether the reply requests at least one tool invocation.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Message represents a message in the conversation
type Message struct {
	Role         string     // "user", "assistant", "tool"
	Content      string     // Text content
	ToolCalls    []ToolCall // For assistant messages: the tool calls made
	ToolResultID string     // For tool messages: references the tool call ID
	ToolName     string     // For tool messages: the tool name (needed by Gemini and Ollama)
	IsError      bool       // For tool messages: whether the result is an error
}

// ToolDefinition describes a tool available to the LLM
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  ParameterSchema
}

// ParameterSchema defines the structure of tool parameters
type ParameterSchema struct {
	Type       string
	Properties map[string]Property
	Required   []string
}

// JSONSchema renders the schema as a plain JSON Schema object.
// Providers that accept raw schemas (OpenAI, Ollama) send this map as-is.
func (p ParameterSchema) JSONSchema() map[string]any {
	typ := p.Type
	if typ == "" {
		typ = "object"
	}
	props := make(map[string]any, len(p.Properties))
	for name, prop := range p.Properties {
		props[name] = prop.jsonSchema()
	}
	required := p.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       typ,
		"properties": props,
		"required":   required,
	}
}

// Property defines a single parameter property
type Property struct {
	Type        string
	Description string
	Items       *Property // For array types: describes array items
}

func (p Property) jsonSchema() map[string]any {
	out := map[string]any{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Items != nil {
		out["items"] = p.Items.jsonSchema()
	}
	return out
}

// ToolCall represents a tool call from the LLM
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
