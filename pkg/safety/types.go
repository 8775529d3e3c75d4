// Package safety implements the two-stage content gate that runs before
// any LLM call (§4.6): rule-based AI moderation, then optional
// guardrails. Both stages fail open on transport error.
package safety

import "github.com/agentrt/runtime/pkg/config"

// Rule is one moderation rule, scoped to the whole deployment, to one
// agent, or to one user (§4.6 "global rules, agent-scoped rules, and
// user-scoped rules").
type Rule struct {
	ID            string
	Scope         string // "global", "agent", or "user"
	Enabled       bool
	ParentEnabled bool
}

// applies reports whether r should be included in the assembled rule
// set: both its own and its parent's enabled flags must be true (§4.6
// "whose individual and parent enabled flags are true").
func (r Rule) applies() bool {
	return r.Enabled && r.ParentEnabled
}

// Result is the outcome of one gate stage (§4.6).
type Result struct {
	Approved     bool     `json:"approved"`
	Reason       string   `json:"reason,omitempty"`
	MatchedRules []string `json:"matched_rules,omitempty"`
	Checks       []string `json:"checks,omitempty"`
	RiskScore    float64  `json:"risk_score,omitempty"`
	FailedOpen   bool     `json:"-"`
}

// CheckRequest is the request sent to the caller of Gate.Check; it
// carries everything needed to assemble and submit both stages.
type CheckRequest struct {
	Content      string
	AgentID      string
	UserID       string
	Moderation   config.ModerationConfig
	Guardrails   config.GuardrailsConfig
	GlobalRules  []Rule
	AgentRules   []Rule
	UserRules    []Rule
}

// moderationRequest is the wire body POSTed to the moderation peer
// (§4.6 / §6.3).
type moderationRequest struct {
	Content string   `json:"content"`
	Rules   []string `json:"rules"`
	AgentID string   `json:"agent_id"`
	UserID  string   `json:"user_id"`
}

type moderationResponse struct {
	Approved     bool     `json:"approved"`
	Reason       string   `json:"reason"`
	MatchedRules []string `json:"matched_rules"`
}

// guardrailsRequest is the wire body POSTed to the guardrails peer
// (§4.6 / §6.3).
type guardrailsRequest struct {
	Content       string                  `json:"content"`
	GuardrailType string                  `json:"guardrail_type"`
	Config        config.GuardrailsConfig `json:"config"`
	Context       map[string]string       `json:"context"`
}

type guardrailsResponse struct {
	Approved      bool     `json:"approved"`
	BlockedReason string   `json:"blocked_reason"`
	Checks        []string `json:"checks"`
	RiskScore     float64  `json:"risk_score"`
}
