// Package pipeline holds single-shot text pipelines run on the language model:
// translation and summarization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jaimegago/toolrouter/internal/llm"
)

// ErrEmptyInput is returned when there is no text to process
var ErrEmptyInput = errors.New("empty input")

// complete sends one user turn without tools and returns the trimmed reply
func complete(ctx context.Context, adapter llm.LLMAdapter, system, text string) (string, error) {
	resp, err := adapter.Chat(ctx, llm.ChatRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
	})
	if err != nil {
		return "", fmt.Errorf("llm chat failed: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Translator translates text between two fixed languages
type Translator struct {
	adapter llm.LLMAdapter
	source  string
	target  string
}

// NewTranslator creates a translator. Empty languages default to English and French.
func NewTranslator(adapter llm.LLMAdapter, source, target string) *Translator {
	if source == "" {
		source = "English"
	}
	if target == "" {
		target = "French"
	}
	return &Translator{adapter: adapter, source: source, target: target}
}

// Languages returns the source and target language
func (t *Translator) Languages() (string, string) {
	return t.source, t.target
}

// Translate returns text translated into the target language
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	system := fmt.Sprintf(
		"Translate the user's text from %s to %s. Reply with the translation only.",
		t.source, t.target,
	)
	return complete(ctx, t.adapter, system, text)
}

// Summarizer condenses text, optionally handing the summary to a Translator
type Summarizer struct {
	adapter    llm.LLMAdapter
	maxWords   int
	translator *Translator
}

// NewSummarizer creates a summarizer. translator may be nil; maxWords <= 0 means no cap.
func NewSummarizer(adapter llm.LLMAdapter, maxWords int, translator *Translator) *Summarizer {
	return &Summarizer{adapter: adapter, maxWords: maxWords, translator: translator}
}

// Summary is the output of Summarize
type Summary struct {
	Summary     string `json:"summary"`
	Translation string `json:"translation,omitempty"`
}

// Summarize condenses text and, when a translator is set, translates the summary
func (s *Summarizer) Summarize(ctx context.Context, text string) (*Summary, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	system := "Summarize the user's text. Reply with the summary only."
	if s.maxWords > 0 {
		system = fmt.Sprintf("Summarize the user's text in at most %d words. Reply with the summary only.", s.maxWords)
	}
	summary, err := complete(ctx, s.adapter, system, text)
	if err != nil {
		return nil, err
	}
	if s.maxWords > 0 {
		summary = truncateWords(summary, s.maxWords)
	}

	out := &Summary{Summary: summary}
	if s.translator != nil && summary != "" {
		translated, err := s.translator.Translate(ctx, summary)
		if err != nil {
			return nil, fmt.Errorf("translate summary: %w", err)
		}
		out.Translation = translated
	}
	return out, nil
}

// truncateWords keeps the first n words; models do not always honor the cap
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
