// Package chat runs a conversation through a drift backend and a language
// model: every user turn is routed, answered from the context of the branch
// it landed on, and the answer is routed back.
package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/drift/internal/llm"
	"github.com/ziadkadry99/drift/pkg/drift"
)

// Drift is the part of the drift client a Session needs.
type Drift interface {
	Route(ctx context.Context, req drift.RouteRequest) (*drift.RouteResult, error)
	BuildPrompt(ctx context.Context, branchID string, opts ...drift.PromptOption) (*drift.Prompt, error)
	ExtractFacts(ctx context.Context, branchID string) (*drift.FactsResult, error)
	GetBranches(ctx context.Context, conversationID string) ([]drift.Branch, error)
	GetFacts(ctx context.Context, branchID string) ([]drift.Fact, error)
}

// Options tune a Session.
type Options struct {
	// ConversationID continues an existing conversation; a new id is
	// generated when empty.
	ConversationID string
	// SystemPrompt replaces the default preamble when non-empty.
	SystemPrompt string
	// AutoExtract runs fact extraction after every turn.
	AutoExtract bool
	MaxTokens   int
	Temperature float64
	Logger      *zap.Logger
}

// Turn is the outcome of one exchange.
type Turn struct {
	UserRoute      *drift.RouteResult
	Reply          string
	AssistantRoute *drift.RouteResult
	// Facts is set only when AutoExtract is on.
	Facts *drift.FactsResult
	Usage Usage
}

// Usage reports token counts of the completion behind a turn.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Session is one conversation. It is not safe for concurrent use: turns
// must be sent one at a time so the backend sees them in order.
type Session struct {
	drift    Drift
	provider llm.Provider
	opts     Options
	logger   *zap.Logger
}

// NewSession creates a session over the given client and provider.
func NewSession(d Drift, provider llm.Provider, opts Options) *Session {
	if opts.ConversationID == "" {
		opts.ConversationID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		drift:    d,
		provider: provider,
		opts:     opts,
		logger:   logger.With(zap.String("conversation", opts.ConversationID)),
	}
}

// ConversationID returns the id the session routes messages under.
func (s *Session) ConversationID() string {
	return s.opts.ConversationID
}

// Send routes input, asks the model for a reply using the context of the
// branch the input landed on, and routes the reply back.
func (s *Session) Send(ctx context.Context, input string) (*Turn, error) {
	userRoute, err := s.drift.Route(ctx, drift.RouteRequest{
		ConversationID: s.opts.ConversationID,
		Content:        input,
		Role:           drift.RoleUser,
	})
	if err != nil {
		return nil, fmt.Errorf("routing message: %w", err)
	}
	s.logger.Debug("message routed",
		zap.String("action", string(userRoute.Action)),
		zap.String("branch", userRoute.BranchID),
		zap.String("topic", userRoute.BranchTopic),
		zap.Float64("confidence", userRoute.Confidence),
	)

	var promptOpts []drift.PromptOption
	if s.opts.SystemPrompt != "" {
		promptOpts = append(promptOpts, drift.WithSystemPrompt(s.opts.SystemPrompt))
	}
	prompt, err := s.drift.BuildPrompt(ctx, userRoute.BranchID, promptOpts...)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	req := llm.RequestFromPrompt(prompt)
	req.MaxTokens = s.opts.MaxTokens
	req.Temperature = s.opts.Temperature
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", s.provider.Name(), err)
	}

	assistantRoute, err := s.drift.Route(ctx, drift.RouteRequest{
		ConversationID: s.opts.ConversationID,
		Content:        resp.Content,
		Role:           drift.RoleAssistant,
	})
	if err != nil {
		return nil, fmt.Errorf("routing reply: %w", err)
	}

	turn := &Turn{
		UserRoute:      userRoute,
		Reply:          resp.Content,
		AssistantRoute: assistantRoute,
		Usage:          usageOf(req, resp),
	}

	if s.opts.AutoExtract {
		facts, err := s.drift.ExtractFacts(ctx, assistantRoute.BranchID)
		if err != nil {
			return nil, fmt.Errorf("extracting facts: %w", err)
		}
		s.logger.Debug("facts extracted",
			zap.String("branch", facts.BranchID),
			zap.Int("new", facts.ExtractedCount),
			zap.Int("total", len(facts.Facts)),
		)
		turn.Facts = facts
	}

	return turn, nil
}

// Branches lists the branches of the session's conversation.
func (s *Session) Branches(ctx context.Context) ([]drift.Branch, error) {
	branches, err := s.drift.GetBranches(ctx, s.opts.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return branches, nil
}

// Facts lists the facts known for a branch of the conversation.
func (s *Session) Facts(ctx context.Context, branchID string) ([]drift.Fact, error) {
	facts, err := s.drift.GetFacts(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("listing facts: %w", err)
	}
	return facts, nil
}

// usageOf fills in token estimates for providers that report no usage.
func usageOf(req llm.CompletionRequest, resp *llm.CompletionResponse) Usage {
	u := Usage{
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}
	if u.InputTokens == 0 {
		n := llm.EstimateTokens(req.System)
		for _, m := range req.Messages {
			n += llm.EstimateTokens(m.Content)
		}
		u.InputTokens = n
	}
	if u.OutputTokens == 0 {
		u.OutputTokens = llm.EstimateTokens(resp.Content)
	}
	u.CostUSD = llm.EstimateCost(u.Model, u.InputTokens, u.OutputTokens)
	return u
}
