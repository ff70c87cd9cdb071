package router

import "github.com/jaimegago/toolrouter/internal/llm"

// Conversation holds the ordered message history of one chat.
// Messages are only ever appended while a run is in progress.
type Conversation struct {
	Messages []llm.Message

	// Token usage tracking
	TotalInputTokens  int
	TotalOutputTokens int
	TotalTokens       int

	// Per-run token tracking (reset at start of each Invoke)
	RunInputTokens  int
	RunOutputTokens int
	RunTokens       int
	RunLLMCalls     int

	// MaxMessages limits history kept between runs. 0 means unlimited.
	// Trimming only happens before a run starts, never during one.
	MaxMessages int
}

// NewConversation creates a conversation with empty history
func NewConversation() *Conversation {
	return &Conversation{
		Messages: make([]llm.Message, 0),
	}
}

// AddMessage appends a message to the history
func (c *Conversation) AddMessage(message llm.Message) {
	c.Messages = append(c.Messages, message)
}

// AddMessages appends messages to the history
func (c *Conversation) AddMessages(messages []llm.Message) {
	c.Messages = append(c.Messages, messages...)
}

// AddUserText appends a user message
func (c *Conversation) AddUserText(text string) {
	c.AddMessage(llm.Message{Role: llm.RoleUser, Content: text})
}

// HasUserMessage reports whether any message was sent by the user
func (c *Conversation) HasUserMessage() bool {
	for _, m := range c.Messages {
		if m.Role == llm.RoleUser {
			return true
		}
	}
	return false
}

// Last returns the most recent message, if any
func (c *Conversation) Last() (llm.Message, bool) {
	if len(c.Messages) == 0 {
		return llm.Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Checkpoint is a saved history, restored with Rollback
type Checkpoint struct {
	messages []llm.Message
}

// Checkpoint saves the history before a turn. Invoke may trim the history
// into a new slice, so callers undo a failed turn with Rollback rather than
// by truncating to a saved length.
func (c *Conversation) Checkpoint() Checkpoint {
	return Checkpoint{messages: c.Messages}
}

// Rollback restores the history saved by cp. Later appends only ever write
// past the saved length, so the saved messages are intact.
func (c *Conversation) Rollback(cp Checkpoint) {
	c.Messages = cp.messages
}

// Clear starts a fresh history. Token totals are kept.
func (c *Conversation) Clear() {
	c.Messages = make([]llm.Message, 0)
}

// ResetRunStats resets per-run token tracking
func (c *Conversation) ResetRunStats() {
	c.RunInputTokens = 0
	c.RunOutputTokens = 0
	c.RunTokens = 0
	c.RunLLMCalls = 0
}

// AddTokenUsage records usage from one model response
func (c *Conversation) AddTokenUsage(usage llm.TokenUsage) {
	c.RunInputTokens += usage.InputTokens
	c.RunOutputTokens += usage.OutputTokens
	c.RunTokens += usage.TotalTokens
	c.RunLLMCalls++

	c.TotalInputTokens += usage.InputTokens
	c.TotalOutputTokens += usage.OutputTokens
	c.TotalTokens += usage.TotalTokens
}

// trimHistory drops the oldest messages beyond MaxMessages. The cut is moved
// forward to the next user message so no tool result loses the assistant turn
// that requested it.
func (c *Conversation) trimHistory() {
	if c.MaxMessages <= 0 || len(c.Messages) <= c.MaxMessages {
		return
	}
	cut := len(c.Messages) - c.MaxMessages
	for cut < len(c.Messages) && c.Messages[cut].Role != llm.RoleUser {
		cut++
	}
	c.Messages = append([]llm.Message(nil), c.Messages[cut:]...)
}
