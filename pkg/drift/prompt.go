package drift

import (
	"context"
	"strings"
)

// DefaultSystemPrompt opens the system prompt when no preamble is given.
const DefaultSystemPrompt = "You are a helpful assistant."

const noFactsPlaceholder = "(none yet)"

type promptOptions struct {
	systemPrompt *string
}

// PromptOption customizes prompt assembly.
type PromptOption func(*promptOptions)

// WithSystemPrompt replaces the default preamble. An empty string is used as is.
func WithSystemPrompt(s string) PromptOption {
	return func(o *promptOptions) {
		o.systemPrompt = &s
	}
}

// BuildPrompt fetches the context of a branch and renders it into LLM input.
// It makes exactly one network call and returns GetContext's error unchanged.
func (c *Client) BuildPrompt(ctx context.Context, branchID string, opts ...PromptOption) (*Prompt, error) {
	bctx, err := c.GetContext(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return RenderPrompt(bctx, opts...), nil
}

// RenderPrompt turns a branch context into a system prompt and a message list.
//
// The system prompt is the preamble, the current topic, the facts of the
// current branch (or a placeholder) and, when other branches exist, their
// topics. Messages keep their order with ids and timestamps dropped.
func RenderPrompt(c *Context, opts ...PromptOption) *Prompt {
	o := promptOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	preamble := DefaultSystemPrompt
	if o.systemPrompt != nil {
		preamble = *o.systemPrompt
	}

	var factLines []string
	var otherTopics []string
	for _, group := range c.AllFacts {
		if !group.IsCurrent {
			otherTopics = append(otherTopics, group.BranchTopic)
			continue
		}
		for _, f := range group.Facts {
			factLines = append(factLines, "- "+f.Key+": "+f.Value)
		}
	}

	factsBlock := strings.Join(factLines, "\n")
	if factsBlock == "" {
		factsBlock = noFactsPlaceholder
	}

	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n\nCurrent topic: ")
	sb.WriteString(c.BranchTopic)
	sb.WriteString("\n\nKnown facts:\n")
	sb.WriteString(factsBlock)
	sb.WriteString("\n\n")
	if summary := strings.Join(otherTopics, ", "); summary != "" {
		sb.WriteString("Other topics discussed: ")
		sb.WriteString(summary)
	}

	messages := make([]PromptMessage, 0, len(c.Messages))
	for _, m := range c.Messages {
		messages = append(messages, PromptMessage{Role: m.Role, Content: m.Content})
	}

	return &Prompt{
		System:   strings.TrimSpace(sb.String()),
		Messages: messages,
	}
}
