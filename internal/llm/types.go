package llm

import "github.com/ziadkadry99/drift/pkg/drift"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for an LLM completion request.
// System is sent through the provider's dedicated channel for system text.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// RequestFromPrompt turns an assembled drift prompt into a completion request.
func RequestFromPrompt(p *drift.Prompt) CompletionRequest {
	msgs := make([]Message, 0, len(p.Messages))
	for _, m := range p.Messages {
		msgs = append(msgs, Message{Role: Role(m.Role), Content: m.Content})
	}
	return CompletionRequest{
		System:   p.System,
		Messages: msgs,
	}
}
