package drift

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to a drift backend. It keeps no state between calls, so a
// single Client may be shared by concurrent goroutines.
type Client struct {
	baseURL   string
	apiKey    string
	timeout   time.Duration
	http      *http.Client
	logger    *zap.Logger
	metrics   *Metrics
	userAgent string
}

// NewClient validates cfg and returns a ready Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		timeout:   timeout,
		http:      &http.Client{},
		logger:    zap.NewNop(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// New is a shorthand for NewClient with the default timeout.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	return NewClient(Config{BaseURL: baseURL, APIKey: apiKey}, opts...)
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-call timeout in effect.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Route sends a message to the backend, which decides whether it stays in the
// current branch, moves to another one or starts a new branch.
func (c *Client) Route(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	if req.Role == "" {
		req.Role = RoleUser
	}
	return do[*RouteResult](ctx, c, "route", http.MethodPost, "/api/v1/drift/route", req)
}

// GetBranches lists the branches of a conversation.
func (c *Client) GetBranches(ctx context.Context, conversationID string) ([]Branch, error) {
	return do[[]Branch](ctx, c, "get_branches", http.MethodGet,
		"/api/v1/drift/branches/"+url.PathEscape(conversationID), nil)
}

// GetContext returns the messages of a branch together with the facts of
// every branch touched by its conversation.
func (c *Client) GetContext(ctx context.Context, branchID string) (*Context, error) {
	return do[*Context](ctx, c, "get_context", http.MethodGet,
		"/api/v1/context/"+url.PathEscape(branchID), nil)
}

// ExtractFacts asks the backend to extract facts from a branch.
func (c *Client) ExtractFacts(ctx context.Context, branchID string) (*FactsResult, error) {
	return do[*FactsResult](ctx, c, "extract_facts", http.MethodPost,
		"/api/v1/facts/"+url.PathEscape(branchID)+"/extract", nil)
}

// GetFacts returns the facts already known for a branch.
func (c *Client) GetFacts(ctx context.Context, branchID string) ([]Fact, error) {
	return do[[]Fact](ctx, c, "get_facts", http.MethodGet,
		"/api/v1/facts/"+url.PathEscape(branchID), nil)
}
