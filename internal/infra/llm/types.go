// Package llm defines the model-agnostic chat-completion abstraction.
// All types here are shared between the client interface and adapters.
package llm

import "strings"

// Role identifies the author of a conversation turn.
// It is mapped to the vendor vocabulary only inside an adapter's wire encoder.
type Role int

const (
	RoleUser Role = iota
	RoleSystem
	RoleAssistant
)

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is the input for a chat completion.
// The stream flag is not part of the request: it is chosen by the method called.
type ChatRequest struct {
	// Model overrides the client default when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is one decoded completion record as returned by an
// OpenAI-compatible endpoint (a full completion or a single stream chunk).
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is a single completion alternative.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChoiceDelta `json:"message,omitempty"`
	Delta        *ChoiceDelta `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// ChoiceDelta carries the assistant text of a choice.
type ChoiceDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content returns the concatenated assistant text of all choices,
// preferring the full message over a delta.
func (r *ChatResponse) Content() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range r.Choices {
		switch {
		case c.Message != nil:
			b.WriteString(c.Message.Content)
		case c.Delta != nil:
			b.WriteString(c.Delta.Content)
		}
	}
	return b.String()
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID       string // e.g. "gpt-4o-mini", "llama3.2:3b"
	Provider string // e.g. "openai", "ollama"
	BaseURL  string
}
