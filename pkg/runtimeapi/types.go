// Package runtimeapi bridges an HTTP execution request into a Workflow
// Executor invocation and serialises the returned ExecutionContext back
// into a response (§1 "the public API ... translates an HTTP execution
// request into an executor invocation"; §6.2). It is the "Public API
// surface" component named in §2's share table — everything here is
// transport-agnostic; pkg/server wires it to chi routes.
package runtimeapi

import (
	"time"

	"github.com/agentrt/runtime/pkg/llmmanager"
	"github.com/agentrt/runtime/pkg/session"
	"github.com/agentrt/runtime/pkg/toolmanager"
	"github.com/agentrt/runtime/pkg/workflow"
)

// ExecuteRequest is the body of POST /agents/{id_or_slug}/execute (§6.2).
type ExecuteRequest struct {
	Inputs      map[string]any          `json:"inputs"`
	Files       map[string][]UploadFile `json:"files,omitempty"`
	Message     string                  `json:"message,omitempty"`
	SessionID   string                  `json:"session_id,omitempty"`
	WorkflowID  string                  `json:"workflow_id,omitempty"`
	Trigger     string                  `json:"trigger,omitempty"`
	Stream      bool                    `json:"stream,omitempty"`
	UserID      string                  `json:"user_id,omitempty"`
}

// UploadFile is one file attachment carried in an ExecuteRequest's JSON
// body (base64 content). The multipart endpoint (§6.2 "/execute/upload")
// builds the same UploadFile values from its form file parts.
type UploadFile struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// ChatRequest is the body of POST /agents/{id_or_slug}/chat (§6.2).
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// ExecuteResponse is the uniform result shape for execute/chat (§6.2).
type ExecuteResponse struct {
	Success          bool               `json:"success"`
	AgentID          string             `json:"agent_id"`
	AgentName        string             `json:"agent_name"`
	ExecutionID      string             `json:"execution_id"`
	Status           string             `json:"status"`
	Output           any                `json:"output,omitempty"`
	Outputs          map[string]any     `json:"outputs"`
	Files            []string           `json:"files,omitempty"`
	Message          string             `json:"message,omitempty"`
	SessionID        string             `json:"session_id,omitempty"`
	WorkflowExecuted string             `json:"workflow_executed,omitempty"`
	StepsExecuted    int                `json:"steps_executed"`
	DurationMs       int64              `json:"duration_ms"`
	Usage            *llmmanager.Usage  `json:"usage,omitempty"`
	Error            string             `json:"error,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
	BlockedReason    string             `json:"blocked_reason,omitempty"`
}

// AgentSummary is the list-view shape for GET /agents (§6.2).
type AgentSummary struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Icon        string `json:"icon,omitempty"`
}

// SessionResponse is the shape returned by GET /sessions/{id} (§6.2).
type SessionResponse struct {
	SessionID    string            `json:"session_id"`
	AgentID      string            `json:"agent_id"`
	AgentName    string            `json:"agent_name"`
	UserID       string            `json:"user_id,omitempty"`
	Messages     []session.Message `json:"messages"`
	Variables    map[string]any    `json:"variables"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
}

// StatsResponse is the shape returned by GET /stats (§6.2).
type StatsResponse struct {
	Agents       int `json:"agents"`
	ActiveAgents int `json:"active_agents"`
	Sessions     int `json:"sessions"`
}

// HealthResponse is the shape returned by GET /health (§6.2).
type HealthResponse struct {
	Status string          `json:"status"`
	Agents int             `json:"agents"`
	Tools  map[string]bool `json:"tools,omitempty"`
}

func toUploadFiles(in map[string][]UploadFile) workflow.Files {
	if len(in) == 0 {
		return nil
	}
	out := make(workflow.Files, len(in))
	for toolID, files := range in {
		converted := make([]toolmanager.File, 0, len(files))
		for _, f := range files {
			converted = append(converted, toolmanager.File{FieldName: "file", Filename: f.Filename, Bytes: f.Content})
		}
		out[toolID] = converted
	}
	return out
}
