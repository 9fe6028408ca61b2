package drift

import "time"

// RouteAction is the backend's decision for a routed message.
type RouteAction string

const (
	ActionStay   RouteAction = "STAY"
	ActionRoute  RouteAction = "ROUTE"
	ActionBranch RouteAction = "BRANCH"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RouteRequest is the body of a route call. An empty Role is sent as "user".
type RouteRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Role           Role   `json:"role"`
}

// RouteResult is the outcome of routing one message.
type RouteResult struct {
	Action           RouteAction `json:"action"`
	BranchID         string      `json:"branchId"`
	BranchTopic      string      `json:"branchTopic"`
	MessageID        string      `json:"messageId"`
	PreviousBranchID string      `json:"previousBranchId,omitempty"`
	IsNewBranch      bool        `json:"isNewBranch"`
	Reason           string      `json:"reason"`
	Confidence       float64     `json:"confidence"`
}

// Moved reports whether the message left the branch it was previously in.
func (r *RouteResult) Moved() bool {
	return r.PreviousBranchID != ""
}

// Branch is a topic thread within a conversation. Branches may nest via ParentID.
type Branch struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	MessageCount int       `json:"messageCount"`
	FactCount    int       `json:"factCount"`
	ParentID     string    `json:"parentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is a single chat message stored on a branch.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Fact is a key/value assertion extracted from conversation content.
// Keys are not unique: the backend supersedes facts rather than overwriting them.
type Fact struct {
	ID         string  `json:"id"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	MessageID  string  `json:"messageId,omitempty"`
}

// BranchFacts groups the facts of one branch.
type BranchFacts struct {
	BranchID    string `json:"branchId"`
	BranchTopic string `json:"branchTopic"`
	Facts       []Fact `json:"facts"`
	IsCurrent   bool   `json:"isCurrent"`
}

// Context is everything the backend knows that is relevant to one branch:
// its messages in chronological order plus facts from every branch touched.
type Context struct {
	BranchID    string        `json:"branchId"`
	BranchTopic string        `json:"branchTopic"`
	Messages    []Message     `json:"messages"`
	AllFacts    []BranchFacts `json:"allFacts"`
}

// FactsResult is the outcome of an extraction call. ExtractedCount counts only
// facts added by that call and may be smaller than len(Facts).
type FactsResult struct {
	BranchID       string `json:"branchId"`
	Facts          []Fact `json:"facts"`
	ExtractedCount int    `json:"extractedCount"`
}

// PromptMessage is a message stripped down to what a language model consumes.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is LLM-ready input assembled from a branch context.
type Prompt struct {
	System   string          `json:"system"`
	Messages []PromptMessage `json:"messages"`
}
