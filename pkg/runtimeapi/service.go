package runtimeapi

import (
	"context"
	"fmt"
	"time"

	"github.com/agentrt/runtime/pkg/agentloader"
	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/safety"
	"github.com/agentrt/runtime/pkg/session"
	"github.com/agentrt/runtime/pkg/toolmanager"
	"github.com/agentrt/runtime/pkg/workflow"
)

// ErrAgentNotFound is returned when an id_or_slug resolves to nothing
// (§7 "AgentNotFound -- unknown id or slug").
var ErrAgentNotFound = fmt.Errorf("runtimeapi: agent not found")

// Service is the bridge between the HTTP surface (§6.2) and the
// orchestration substrate. It owns no state of its own beyond the
// guardrails snapshot loaded at startup; everything else is a reference
// to a service singleton created once in cmd/agentrt (§5 "Service
// singletons ... are created at startup under a lock; callers never
// construct their own").
type Service struct {
	Agents   *agentloader.Loader
	Executor *workflow.Executor
	Sessions *session.Manager
	Gate     *safety.Gate
	Tools    *toolmanager.Manager
	Rules    *safety.RuleStore

	Guardrails config.GuardrailsConfig
}

// ListAgents returns every active (active or beta) agent (§6.2 "GET
// /agents -- list active agents").
func (s *Service) ListAgents() []AgentSummary {
	active := s.Agents.Registry().ListActive()
	out := make([]AgentSummary, 0, len(active))
	for _, a := range active {
		out = append(out, toSummary(a))
	}
	return out
}

func toSummary(a config.Agent) AgentSummary {
	return AgentSummary{
		ID:          a.ID,
		Slug:        a.Slug,
		Name:        a.Name,
		Description: a.Description,
		Category:    a.Category,
		Status:      string(a.Status),
		Icon:        a.Icon,
	}
}

// GetAgent resolves an agent by id or slug (§6.2 "GET /agents/{id_or_slug}").
func (s *Service) GetAgent(idOrSlug string) (config.Agent, error) {
	a, ok := s.Agents.Registry().GetByIDOrSlug(idOrSlug)
	if !ok {
		return config.Agent{}, ErrAgentNotFound
	}
	return a, nil
}

// GetDefinition returns the full ADL document behind an agent (§6.2
// "GET /agents/{id_or_slug}/definition").
func (s *Service) GetDefinition(idOrSlug string) (config.Document, error) {
	a, err := s.GetAgent(idOrSlug)
	if err != nil {
		return config.Document{}, err
	}
	return a.Source(), nil
}

// GetUI returns the opaque UI descriptor (§6.2 "GET /agents/{id_or_slug}/ui").
func (s *Service) GetUI(idOrSlug string) (map[string]any, error) {
	a, err := s.GetAgent(idOrSlug)
	if err != nil {
		return nil, err
	}
	return a.UI, nil
}

// Execute drives §6.2's "POST /agents/{id_or_slug}/execute": it resolves
// the agent and workflow, runs the safety gate on any user-originated
// content, then hands off to the Workflow Executor.
func (s *Service) Execute(ctx context.Context, idOrSlug string, req ExecuteRequest) (ExecuteResponse, error) {
	agent, err := s.GetAgent(idOrSlug)
	if err != nil {
		return ExecuteResponse{}, err
	}

	wf, warnings, err := selectWorkflow(agent, req.WorkflowID, req.Trigger)
	if err != nil {
		return ExecuteResponse{}, err
	}

	resp := ExecuteResponse{
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Outputs:   map[string]any{},
		Warnings:  warnings,
	}

	sessionID := req.SessionID
	if sessionID != "" || req.Message != "" {
		snap := s.Sessions.GetOrCreate(sessionID, agent.ID, agent.Name, req.UserID)
		sessionID = snap.SessionID
	}
	resp.SessionID = sessionID

	content := req.Message
	if content != "" {
		blocked, reason, err := s.checkSafety(ctx, agent, req.UserID, content)
		if err != nil {
			return ExecuteResponse{}, err
		}
		if blocked {
			resp.Success = false
			resp.Status = string(workflow.StatusFailed)
			resp.BlockedReason = reason
			resp.Error = reason
			return resp, nil
		}
	}

	if wf == nil {
		resp.Success = false
		resp.Status = string(workflow.StatusFailed)
		resp.Error = "no workflow matched the request"
		return resp, nil
	}
	resp.WorkflowExecuted = wf.ID

	inputs := map[string]any{}
	for k, v := range req.Inputs {
		inputs[k] = v
	}
	if req.Message != "" {
		inputs["message"] = req.Message
	}

	started := time.Now()
	ec, err := s.Executor.Execute(ctx, &agent, wf, inputs, toUploadFiles(req.Files), sessionID)
	if err != nil {
		return ExecuteResponse{}, err
	}

	snap := ec.Snapshot()
	resp.ExecutionID = snap.WorkflowID
	resp.Status = string(snap.Status)
	resp.Success = snap.Status == workflow.StatusCompleted
	resp.StepsExecuted = len(snap.StepResults)
	resp.DurationMs = time.Since(started).Milliseconds()
	resp.Error = snap.Error
	usage := snap.Usage
	resp.Usage = &usage
	resp.Outputs = snap.Variables

	if len(snap.StepResults) > 0 {
		last := snap.StepResults[len(snap.StepResults)-1]
		resp.Output = last.Output
		if s, ok := last.Output.(string); ok {
			resp.Message = s
		}
	}

	return resp, nil
}

// Chat is the §6.2 "POST /agents/{id_or_slug}/chat" shorthand: the same
// execution path as Execute, triggered by user_message with no explicit
// workflow_id.
func (s *Service) Chat(ctx context.Context, idOrSlug string, req ChatRequest) (ExecuteResponse, error) {
	return s.Execute(ctx, idOrSlug, ExecuteRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Trigger:   string(config.TriggerUserMessage),
	})
}

// checkSafety runs the two-stage gate (§4.6) over one piece of
// user-originated content.
func (s *Service) checkSafety(ctx context.Context, agent config.Agent, userID, content string) (blocked bool, reason string, err error) {
	if s.Gate == nil {
		return false, "", nil
	}
	global, agentRules, userRules := s.Rules.RulesFor(agent.ID, userID)
	result, err := s.Gate.Check(ctx, safety.CheckRequest{
		Content:     content,
		AgentID:     agent.ID,
		UserID:      userID,
		Moderation:  agent.Moderation,
		Guardrails:  s.Guardrails,
		GlobalRules: global,
		AgentRules:  agentRules,
		UserRules:   userRules,
	})
	if err != nil {
		return false, "", err
	}
	if !result.Approved {
		return true, result.Reason, nil
	}
	return false, "", nil
}

// Reload re-scans the agents directory (§6.2 "POST /reload").
func (s *Service) Reload() error {
	return s.Agents.Reload()
}

// Stats reports §6.2 "GET /stats".
func (s *Service) Stats() StatsResponse {
	return StatsResponse{
		Agents:       s.Agents.Registry().Count(),
		ActiveAgents: len(s.Agents.Registry().ListActive()),
		Sessions:     s.Sessions.Count(),
	}
}

// Health reports §6.2 "GET /health".
func (s *Service) Health() HealthResponse {
	return HealthResponse{
		Status: "ok",
		Agents: s.Agents.Registry().Count(),
	}
}

// GetSession returns a session by id (§6.2 "GET /sessions/{id}").
func (s *Service) GetSession(id string) (SessionResponse, error) {
	snap, err := s.Sessions.Get(id)
	if err != nil {
		return SessionResponse{}, err
	}
	return toSessionResponse(snap), nil
}

func toSessionResponse(snap session.Snapshot) SessionResponse {
	return SessionResponse{
		SessionID:    snap.SessionID,
		AgentID:      snap.AgentID,
		AgentName:    snap.AgentName,
		UserID:       snap.UserID,
		Messages:     snap.Messages,
		Variables:    snap.Variables,
		CreatedAt:    snap.CreatedAt,
		LastActivity: snap.LastActivity,
	}
}

// DeleteSession removes a session (§6.2 "DELETE /sessions/{id}").
func (s *Service) DeleteSession(id string) error {
	return s.Sessions.Delete(id)
}

// GetSessionMessages returns a session's message tail (§6.2 "GET
// /sessions/{id}/messages").
func (s *Service) GetSessionMessages(id string, limit int) ([]session.Message, error) {
	return s.Sessions.GetMessages(id, limit)
}

// ClearSession truncates a session's message history (§6.2 "POST
// /sessions/{id}/clear").
func (s *Service) ClearSession(id string) error {
	return s.Sessions.ClearMessages(id)
}
