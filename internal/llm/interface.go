package llm

import (
	"context"
	"time"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// OptionsValidator is implemented by providers that cannot send every
// query option. ValidateOptions returns CONFIG_INVALID for options the
// provider would otherwise have to drop.
type OptionsValidator interface {
	ValidateOptions(opts Options) error
}

// Role tags a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request holds one completion call: the model id, the full transcript and
// pass-through options.
type Request struct {
	Model    string
	Messages []Message
	Options  Options
}

// Completion holds the response from the LLM
type Completion struct {
	Content      string
	Usage        Usage
	FinishReason string
	// Created is the provider's creation time for the completion, or the
	// receipt time when the provider does not report one.
	Created time.Time
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}
