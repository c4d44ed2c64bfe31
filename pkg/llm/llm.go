// Package llm talks to the chat-completion models that resolve locations and
// extract tool arguments from a user prompt. Backends share one Client
// interface; which one a model uses is decided by its configuration.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition declares a callable function. Parameters is a JSON schema
// object.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a function invocation emitted by the model. Arguments is the
// JSON-encoded argument object.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response is the model output of one completion.
type Response struct {
	Text        string
	ToolCalls   []ToolCall
	TotalTokens int
}

// Tool choice values.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// DefaultMaxTokens bounds the completion length when Options.MaxTokens is 0.
const DefaultMaxTokens = 300

// Options tune one completion. Temperature defaults to 0 for deterministic
// answers.
type Options struct {
	Tools       []ToolDefinition
	ToolChoice  string
	Temperature float32
	MaxTokens   int
}

func (o Options) maxTokens() int {
	if o.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return o.MaxTokens
}

// Client completes a conversation.
type Client interface {
	Complete(ctx context.Context, msgs []Message, opts Options) (*Response, error)
}

// ConfigurationError reports an unusable model configuration: unknown model
// name, unknown provider, missing credentials, or a tool the registry does
// not declare.
type ConfigurationError struct {
	Model   string
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("llm configuration")
	if e.Model != "" {
		fmt.Fprintf(&b, " for model %q", e.Model)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// APIError is a non-2xx answer from a model endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api: HTTP %d: %s", e.Status, e.Message)
}
