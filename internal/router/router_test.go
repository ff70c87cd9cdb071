package router

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/remote"
	"github.com/jaimegago/toolrouter/internal/tools"
	"github.com/jaimegago/toolrouter/internal/tools/mathtools"
)

// mockLLM replays scripted responses
type mockLLM struct {
	responses []*llm.ChatResponse
	callCount int
	lastReq   *llm.ChatRequest
}

func (m *mockLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.lastReq = &req

	if m.callCount >= len(m.responses) {
		return nil, errors.New("no more mock responses")
	}

	resp := m.responses[m.callCount]
	m.callCount++
	return resp, nil
}

// arithmeticLLM is a deterministic model: it asks for the tool named in the
// user text, then answers with the last tool result.
type arithmeticLLM struct{}

func (arithmeticLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	last := req.Messages[len(req.Messages)-1]
	if last.Role == llm.RoleTool {
		return &llm.ChatResponse{Content: "The answer is " + last.Content}, nil
	}
	var name string
	var a, b float64
	if _, err := fmt.Sscanf(last.Content, "%s %g %g", &name, &a, &b); err != nil {
		return &llm.ChatResponse{Content: "I can only do arithmetic."}, nil
	}
	return &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{{ID: "call-" + name, Name: name, Args: map[string]any{"a": a, "b": b}}},
		Usage:     llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}, nil
}

func newTestRouter(adapter llm.LLMAdapter, opts ...Option) *Router {
	registry := mathtools.NewDefaultRegistry(remote.Local{})
	executor := tools.NewExecutor(registry)
	return New(adapter, executor, registry, "You are a calculator", opts...)
}

func TestNew(t *testing.T) {
	mock := &mockLLM{}
	registry := tools.NewRegistry()
	executor := tools.NewExecutor(registry)

	r := New(mock, executor, registry, "You are a helpful assistant")

	if r.llm != mock {
		t.Error("New() llm not set correctly")
	}
	if r.executor != executor || r.registry != registry {
		t.Error("New() executor or registry not set correctly")
	}
	if r.maxIterations != DefaultMaxIterations {
		t.Errorf("New() maxIterations = %d, want %d", r.maxIterations, DefaultMaxIterations)
	}

	r = New(mock, executor, registry, "", WithMaxIterations(3), WithMaxIterations(0))
	if r.MaxIterations() != 3 {
		t.Errorf("MaxIterations() = %d, want 3", r.MaxIterations())
	}
}

func TestRouter_Run_NoToolCalls(t *testing.T) {
	mock := &mockLLM{
		responses: []*llm.ChatResponse{
			{Content: "Hello! How can I help you?"},
		},
	}
	r := newTestRouter(mock)

	conv := NewConversation()
	response, err := r.Run(context.Background(), conv, "Hello")
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if response != "Hello! How can I help you?" {
		t.Errorf("Run() response = %q", response)
	}
	if mock.callCount != 1 {
		t.Errorf("LLM was called %d times, want exactly 1", mock.callCount)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("Conversation has %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Role != llm.RoleUser || conv.Messages[1].Role != llm.RoleAssistant {
		t.Errorf("Conversation roles = %s,%s, want user,assistant", conv.Messages[0].Role, conv.Messages[1].Role)
	}
	if mock.lastReq.SystemPrompt != "You are a calculator" {
		t.Errorf("LLM called with system prompt %q", mock.lastReq.SystemPrompt)
	}
}

func TestRouter_Invoke_FinalMessageUnchanged(t *testing.T) {
	mock := &mockLLM{
		responses: []*llm.ChatResponse{
			{Content: "  exact text\n", Usage: llm.TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}},
		},
	}
	r := newTestRouter(mock)

	conv := NewConversation()
	conv.AddUserText("hi")
	res, err := r.Invoke(context.Background(), conv)
	if err != nil {
		t.Fatalf("Invoke() returned error: %v", err)
	}

	if res.Final.Content != "  exact text\n" || res.Final.Role != llm.RoleAssistant {
		t.Errorf("Final = %+v, want the model message unchanged", res.Final)
	}
	if res.Iterations != 1 || len(res.Dispatches) != 0 {
		t.Errorf("Iterations = %d, Dispatches = %d; want 1, 0", res.Iterations, len(res.Dispatches))
	}
	if res.Usage.TotalTokens != 5 || conv.RunLLMCalls != 1 {
		t.Errorf("usage = %+v, run calls = %d", res.Usage, conv.RunLLMCalls)
	}
}

func TestRouter_ToolResults(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "add 3 4", want: "7"},
		{input: "multiply 7 2", want: "14"},
		{input: "divide 14 5", want: "2.8"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := newTestRouter(arithmeticLLM{})
			conv := NewConversation()

			answer, err := r.Run(context.Background(), conv, tt.input)
			if err != nil {
				t.Fatalf("Run() returned error: %v", err)
			}

			// user, assistant(tool call), tool, assistant
			if len(conv.Messages) != 4 {
				t.Fatalf("Conversation has %d messages, want 4", len(conv.Messages))
			}
			toolMsg := conv.Messages[2]
			if toolMsg.Role != llm.RoleTool || toolMsg.IsError {
				t.Fatalf("tool message = %+v", toolMsg)
			}
			if toolMsg.Content != tt.want {
				t.Errorf("tool result = %q, want %q", toolMsg.Content, tt.want)
			}
			if toolMsg.ToolResultID != conv.Messages[1].ToolCalls[0].ID {
				t.Error("tool result does not reference the requesting call")
			}
			if answer != "The answer is "+tt.want {
				t.Errorf("Run() = %q", answer)
			}
		})
	}
}

func TestRouter_DivideByZeroIsReported(t *testing.T) {
	r := newTestRouter(arithmeticLLM{})
	conv := NewConversation()
	conv.AddUserText("divide 14 0")

	res, err := r.Invoke(context.Background(), conv)
	if err != nil {
		t.Fatalf("Invoke() returned error: %v", err)
	}

	if len(res.Dispatches) != 1 {
		t.Fatalf("got %d dispatches, want 1", len(res.Dispatches))
	}
	d := res.Dispatches[0]
	if !d.Failed() || d.Kind != tools.KindToolFault {
		t.Errorf("dispatch = %+v, want tool_fault", d)
	}
	if !strings.Contains(d.Error, "division by zero") {
		t.Errorf("dispatch error = %q", d.Error)
	}
	if !conv.Messages[2].IsError {
		t.Error("tool message should be flagged as an error")
	}
}

func TestRouter_Run_ToolNotFound(t *testing.T) {
	mock := &mockLLM{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "nonexistent_tool", Args: map[string]any{}}}},
			{Content: "Sorry, that tool doesn't exist"},
		},
	}
	r := newTestRouter(mock)
	conv := NewConversation()
	conv.AddUserText("Test")

	res, err := r.Invoke(context.Background(), conv)
	if err != nil {
		t.Fatalf("Invoke() returned unexpected error: %v", err)
	}

	if res.Answer() != "Sorry, that tool doesn't exist" {
		t.Errorf("Answer() = %q", res.Answer())
	}
	if len(res.Dispatches) != 1 || res.Dispatches[0].Kind != tools.KindUnknownTool {
		t.Errorf("Dispatches = %+v, want one unknown_tool", res.Dispatches)
	}

	hasErrorMessage := false
	for _, msg := range conv.Messages {
		if msg.Role == llm.RoleTool && msg.IsError && strings.Contains(msg.Content, "failed to get tool") {
			hasErrorMessage = true
		}
	}
	if !hasErrorMessage {
		t.Error("Conversation should contain tool error message")
	}
	if mock.callCount != 2 {
		t.Errorf("LLM was called %d times, want 2", mock.callCount)
	}
}

func TestRouter_Run_MultipleToolCalls(t *testing.T) {
	mock := &mockLLM{
		responses: []*llm.ChatResponse{
			{ToolCalls: []llm.ToolCall{
				{ID: "call-1", Name: "add", Args: map[string]any{"a": 1.0, "b": 2.0}},
				{ID: "call-2", Name: "multiply", Args: map[string]any{"a": 3.0, "b": 4.0}},
			}},
			{Content: "Done!"},
		},
	}
	r := newTestRouter(mock)
	conv := NewConversation()
	conv.AddUserText("Test")

	var hooked []string
	res, err := r.Invoke(context.Background(), conv, WithDispatchHook(func(d Dispatch) {
		hooked = append(hooked, d.Tool)
	}))
	if err != nil {
		t.Fatalf("Invoke() returned error: %v", err)
	}

	if got := strings.Join(hooked, ","); got != "add,multiply" {
		t.Errorf("hook saw %q, want add,multiply", got)
	}
	if res.Dispatches[0].Result != int64(3) || res.Dispatches[1].Result != int64(12) {
		t.Errorf("results = %v, %v", res.Dispatches[0].Result, res.Dispatches[1].Result)
	}

	toolResults := 0
	for _, msg := range conv.Messages {
		if msg.Role == llm.RoleTool {
			toolResults++
		}
	}
	if toolResults != 2 {
		t.Errorf("Conversation has %d tool results, want 2", toolResults)
	}
}

func TestRouter_Run_RemoteUnavailable(t *testing.T) {
	registry := mathtools.NewDefaultRegistry(remote.NewClient("http://127.0.0.1:1", 0))
	r := New(arithmeticLLM{}, tools.NewExecutor(registry), registry, "")
	conv := NewConversation()
	conv.AddUserText("multiply 3 4")

	res, err := r.Invoke(context.Background(), conv)
	if err != nil {
		t.Fatalf("Invoke() returned error: %v", err)
	}
	if res.Dispatches[0].Kind != tools.KindRemoteUnavailable {
		t.Errorf("Kind = %q, want remote_unavailable", res.Dispatches[0].Kind)
	}
}

func TestRouter_Run_LLMError(t *testing.T) {
	r := newTestRouter(&mockLLM{})

	_, err := r.Run(context.Background(), NewConversation(), "Hello")
	if !errors.Is(err, ErrModel) {
		t.Fatalf("Run() error = %v, want ErrModel", err)
	}
	if !strings.Contains(err.Error(), "llm chat failed") {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRouter_Invoke_NoUserMessage(t *testing.T) {
	mock := &mockLLM{responses: []*llm.ChatResponse{{Content: "hi"}}}
	r := newTestRouter(mock)

	_, err := r.Invoke(context.Background(), NewConversation())
	if !errors.Is(err, ErrNoUserMessage) {
		t.Errorf("Invoke() error = %v, want ErrNoUserMessage", err)
	}
	if mock.callCount != 0 {
		t.Errorf("LLM was called %d times, want 0", mock.callCount)
	}
}

func TestRouter_Run_MaxIterations(t *testing.T) {
	responses := make([]*llm.ChatResponse, 15)
	for i := range responses {
		responses[i] = &llm.ChatResponse{
			ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "add", Args: map[string]any{"a": 1.0, "b": 1.0}}},
		}
	}
	mock := &mockLLM{responses: responses}
	r := newTestRouter(mock, WithMaxIterations(4))

	_, err := r.Run(context.Background(), NewConversation(), "Test")
	if !errors.Is(err, ErrMaxIterations) {
		t.Fatalf("Run() error = %v, want ErrMaxIterations", err)
	}
	if mock.callCount != 4 {
		t.Errorf("LLM was called %d times, want 4", mock.callCount)
	}
}

func TestRouter_Run_ContextCancellation(t *testing.T) {
	mock := &mockLLM{responses: []*llm.ChatResponse{{Content: "Response"}}}
	r := newTestRouter(mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, NewConversation(), "Test")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRouter_Run_ToolDefinitionsIncluded(t *testing.T) {
	mock := &mockLLM{responses: []*llm.ChatResponse{{Content: "Done"}}}
	r := newTestRouter(mock)

	if _, err := r.Run(context.Background(), NewConversation(), "Test"); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	var names []string
	for _, def := range mock.lastReq.Tools {
		names = append(names, def.Name)
	}
	if got := strings.Join(names, ","); got != "add,divide,multiply" {
		t.Errorf("LLM received tools %q, want add,divide,multiply", got)
	}
}

func TestRouter_Deterministic(t *testing.T) {
	run := func() []Dispatch {
		r := newTestRouter(arithmeticLLM{})
		conv := NewConversation()
		conv.AddUserText("multiply 7 2")
		res, err := r.Invoke(context.Background(), conv)
		if err != nil {
			t.Fatalf("Invoke() returned error: %v", err)
		}
		return res.Dispatches
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("dispatch sequences differ:\n%+v\n%+v", first, second)
	}
}

func TestRouter_SwitchModel(t *testing.T) {
	r := newTestRouter(&mockLLM{}, WithCurrentModelName("old"))

	if err := r.SwitchModel(context.Background(), "claude", "x", "new"); err == nil {
		t.Fatal("SwitchModel() without factory should fail")
	}

	replacement := &mockLLM{responses: []*llm.ChatResponse{{Content: "from new model"}}}
	r = newTestRouter(&mockLLM{}, WithAdapterFactory(func(ctx context.Context, provider, model string) (llm.LLMAdapter, error) {
		return replacement, nil
	}))
	if err := r.SwitchModel(context.Background(), "ollama", "llama3.1", "local"); err != nil {
		t.Fatalf("SwitchModel() error: %v", err)
	}
	if r.CurrentModelName() != "local" {
		t.Errorf("CurrentModelName() = %q", r.CurrentModelName())
	}
	answer, err := r.Run(context.Background(), NewConversation(), "hi")
	if err != nil || answer != "from new model" {
		t.Errorf("Run() = %q, %v", answer, err)
	}
}

func TestRouter_ConcurrentConversations(t *testing.T) {
	r := newTestRouter(arithmeticLLM{})
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			answer, err := r.Run(context.Background(), NewConversation(), fmt.Sprintf("add %d 1", i))
			if err == nil && answer != fmt.Sprintf("The answer is %d", i+1) {
				err = fmt.Errorf("got %q", answer)
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
