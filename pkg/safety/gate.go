package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/agentrt/runtime/pkg/httpclient"
	"github.com/agentrt/runtime/pkg/metrics"
)

// Gate is the two-stage content safety check run before every LLM call
// (§4.6).
type Gate struct {
	http          *httpclient.Client
	moderationURL string
	guardrailsURL string
	metrics       *metrics.Metrics
}

// New builds a Gate targeting the configured moderation and guardrails
// peers.
func New(client *httpclient.Client, moderationURL, guardrailsURL string) *Gate {
	return &Gate{http: client, moderationURL: moderationURL, guardrailsURL: guardrailsURL}
}

// WithMetrics attaches a metrics sink. A nil mtr disables recording.
func (g *Gate) WithMetrics(mtr *metrics.Metrics) *Gate {
	g.metrics = mtr
	return g
}

// Check runs Stage 1 (AI moderation) and, if approved and enabled,
// Stage 2 (guardrails). It returns the last stage's Result; a rejection
// at either stage short-circuits the other.
func (g *Gate) Check(ctx context.Context, req CheckRequest) (Result, error) {
	if !req.Moderation.Enabled {
		return Result{Approved: true}, nil
	}

	stage1, err := g.checkModeration(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if !stage1.Approved {
		return stage1, nil
	}

	if !req.Guardrails.Enabled {
		return stage1, nil
	}

	stage2, err := g.checkGuardrails(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return stage2, nil
}

func (g *Gate) checkModeration(ctx context.Context, req CheckRequest) (Result, error) {
	body := moderationRequest{
		Content: req.Content,
		Rules:   assembleRuleIDs(req),
		AgentID: req.AgentID,
		UserID:  req.UserID,
	}
	var parsed moderationResponse
	failedOpen, err := g.post(ctx, g.moderationURL, body, &parsed)
	if err != nil {
		return Result{}, err
	}
	if failedOpen {
		slog.Warn("moderation peer unreachable, failing open", "agent_id", req.AgentID)
		g.metrics.RecordSafetyCheck("moderation", "failed_open")
		return Result{Approved: true, FailedOpen: true}, nil
	}
	g.metrics.RecordSafetyCheck("moderation", approvalOutcome(parsed.Approved))
	return Result{Approved: parsed.Approved, Reason: parsed.Reason, MatchedRules: parsed.MatchedRules}, nil
}

func (g *Gate) checkGuardrails(ctx context.Context, req CheckRequest) (Result, error) {
	body := guardrailsRequest{
		Content:       req.Content,
		GuardrailType: "all",
		Config:        req.Guardrails,
		Context:       map[string]string{"agent_id": req.AgentID, "user_id": req.UserID},
	}
	var parsed guardrailsResponse
	failedOpen, err := g.post(ctx, g.guardrailsURL, body, &parsed)
	if err != nil {
		return Result{}, err
	}
	if failedOpen {
		slog.Warn("guardrails peer unreachable, failing open", "agent_id", req.AgentID)
		g.metrics.RecordSafetyCheck("guardrails", "failed_open")
		return Result{Approved: true, FailedOpen: true}, nil
	}
	g.metrics.RecordSafetyCheck("guardrails", approvalOutcome(parsed.Approved))
	return Result{
		Approved:  parsed.Approved,
		Reason:    parsed.BlockedReason,
		Checks:    parsed.Checks,
		RiskScore: parsed.RiskScore,
	}, nil
}

func approvalOutcome(approved bool) string {
	if approved {
		return "approved"
	}
	return "rejected"
}

// post submits body to url and decodes the response into out. A
// transport-level failure is reported via the failedOpen return rather
// than an error, since §4.6 requires failing open rather than
// propagating the failure.
func (g *Gate) post(ctx context.Context, url string, body, out any) (failedOpen bool, err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("safety: encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("safety: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return true, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return true, nil
	}
	return false, nil
}
