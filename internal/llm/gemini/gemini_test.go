package gemini

import (
	"context"
	"os"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/jaimegago/toolrouter/internal/llm"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		geminiKey string
		googleKey string
		wantErr   bool
		wantModel string
	}{
		{
			name:      "creates client with GEMINI_API_KEY",
			model:     "gemini-2.0-flash-exp",
			geminiKey: "test-gemini-key",
			wantModel: "gemini-2.0-flash-exp",
		},
		{
			name:      "creates client with GOOGLE_API_KEY fallback",
			model:     "gemini-2.0-flash-exp",
			googleKey: "test-google-key",
			wantModel: "gemini-2.0-flash-exp",
		},
		{
			name:      "uses default model when empty",
			geminiKey: "test-key",
			wantModel: defaultModel,
		},
		{
			name:    "returns error when no API key",
			model:   "gemini-2.0-flash-exp",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("GEMINI_API_KEY")
			os.Unsetenv("GOOGLE_API_KEY")

			if tt.geminiKey != "" {
				os.Setenv("GEMINI_API_KEY", tt.geminiKey)
				defer os.Unsetenv("GEMINI_API_KEY")
			}
			if tt.googleKey != "" {
				os.Setenv("GOOGLE_API_KEY", tt.googleKey)
				defer os.Unsetenv("GOOGLE_API_KEY")
			}

			client, err := NewClient(context.Background(), tt.model)

			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if client == nil {
					t.Fatal("NewClient() returned nil client")
				}
				if client.model != tt.wantModel {
					t.Errorf("NewClient() model = %v, want %v", client.model, tt.wantModel)
				}
				client.Close()
			}
		})
	}
}

func TestConvertToolDefinition(t *testing.T) {
	os.Setenv("GEMINI_API_KEY", "test-key")
	defer os.Unsetenv("GEMINI_API_KEY")

	client, err := NewClient(context.Background(), "")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	tool := llm.ToolDefinition{
		Name:        "divide",
		Description: "Divide a by b.",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"a": {Type: "number", Description: "dividend"},
				"b": {Type: "number", Description: "divisor"},
			},
			Required: []string{"a", "b"},
		},
	}

	result := client.convertToolDefinition(tool)
	if result == nil || len(result.FunctionDeclarations) == 0 {
		t.Fatal("convertToolDefinition() returned no function declarations")
	}

	funcDecl := result.FunctionDeclarations[0]
	if funcDecl.Name != tool.Name {
		t.Errorf("Function name = %v, want %v", funcDecl.Name, tool.Name)
	}
	if funcDecl.Parameters == nil {
		t.Fatal("Function parameters is nil")
	}
	if got := funcDecl.Parameters.Properties["a"].Type; got != genai.TypeNumber {
		t.Errorf("property a type = %v, want TypeNumber", got)
	}
}

func TestConvertMessages(t *testing.T) {
	tests := []struct {
		name        string
		msgs        []llm.Message
		wantHistory int
		wantLast    int
	}{
		{
			name:        "single user message",
			msgs:        []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
			wantHistory: 0,
			wantLast:    1,
		},
		{
			name: "tool results merge into the trailing turn",
			msgs: []llm.Message{
				{Role: llm.RoleUser, Content: "3*4 and 1+2"},
				{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
					{Name: "multiply", Args: map[string]any{"a": 3, "b": 4}},
					{Name: "add", Args: map[string]any{"a": 1, "b": 2}},
				}},
				{Role: llm.RoleTool, ToolName: "multiply", Content: "12"},
				{Role: llm.RoleTool, ToolName: "add", Content: "3"},
			},
			wantHistory: 2,
			wantLast:    2,
		},
		{
			name: "trailing model turn leaves no last parts",
			msgs: []llm.Message{
				{Role: llm.RoleUser, Content: "hi"},
				{Role: llm.RoleAssistant, Content: "hello"},
			},
			wantHistory: 2,
			wantLast:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, last := convertMessages(tt.msgs)
			if len(history) != tt.wantHistory {
				t.Errorf("history = %d contents, want %d", len(history), tt.wantHistory)
			}
			if len(last) != tt.wantLast {
				t.Errorf("last parts = %d, want %d", len(last), tt.wantLast)
			}
		})
	}
}

func TestConvertResponse_ToolCallIDs(t *testing.T) {
	c := &Client{model: defaultModel}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.FunctionCall{Name: "add", Args: map[string]any{"a": 1.0, "b": 2.0}},
				genai.FunctionCall{Name: "add", Args: map[string]any{"a": 3.0, "b": 4.0}},
			}},
		}},
	}

	out := c.convertResponse(resp)
	if len(out.ToolCalls) != 2 {
		t.Fatalf("ToolCalls = %d, want 2", len(out.ToolCalls))
	}
	if out.ToolCalls[0].ID == out.ToolCalls[1].ID {
		t.Errorf("repeated calls share ID %q", out.ToolCalls[0].ID)
	}
}
