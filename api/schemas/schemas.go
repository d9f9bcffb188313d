// File: api/schemas/schemas.go
// Description: Shared types crossing package boundaries. Kept free of
// internal imports so any component (and external embedders) can depend on it.

package schemas

import "context"

// Role identifies one of the three LLM collaborators driving a task run.
type Role string

const (
	RolePlanner Role = "planner"
	RoleActor   Role = "actor"
	RoleCritic  Role = "critic"
)

// Roles lists every collaborator role in loop order.
func Roles() []Role {
	return []Role{RolePlanner, RoleActor, RoleCritic}
}

// Message is a single turn in a role's conversation history.
// Role is the wire-level speaker ("user" or "model"), not a schemas.Role.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage tracks the token cost of one or more LLM invocations.
type TokenUsage struct {
	TotalTokens    int `json:"total_tokens"`
	RequestTokens  int `json:"request_tokens"`
	ResponseTokens int `json:"response_tokens"`
}

// Add accumulates another usage record into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.TotalTokens += other.TotalTokens
	u.RequestTokens += other.RequestTokens
	u.ResponseTokens += other.ResponseTokens
}

// ModelTier selects which configured model a generation request is routed to.
type ModelTier string

const (
	// TierFast is the cheap, low-latency model used for tool execution.
	TierFast ModelTier = "fast"
	// TierPowerful is the stronger model used for planning and critique.
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions carries per-request generation parameters.
type GenerationOptions struct {
	Temperature     float64
	ForceJSONFormat bool
}

// GenerationRequest is the provider-agnostic payload for one LLM invocation.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	History      []Message
	Options      GenerationOptions
	Tier         ModelTier
}

// Generation is the result of a successful LLM invocation.
type Generation struct {
	Text  string
	Usage TokenUsage
}

// LLMClient is the minimal contract every model backend must satisfy.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (Generation, error)
}

// PlannerOutput is the structured response expected from the planner role.
type PlannerOutput struct {
	Plan     string `json:"plan"`
	NextStep string `json:"next_step"`
}

// TerminationDecision is the structured response expected from the critique
// role. Terminate true must be accompanied by a usable FinalResponse; the
// orchestrator synthesizes a fallback when it is not.
type TerminationDecision struct {
	Feedback           string `json:"feedback"`
	Terminate          bool   `json:"terminate"`
	FinalResponse      string `json:"final_response"`
	MissingInformation string `json:"missing_information"`
}
