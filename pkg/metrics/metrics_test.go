package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_DisabledReturnsNil(t *testing.T) {
	m := New(false, "agentrt")
	assert.Nil(t, m)
}

func TestNilMetrics_MethodsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStep("agt_1", "llm_call", "completed", time.Millisecond)
		m.RecordWorkflow("agt_1", "completed", time.Millisecond)
		m.RecordLLMCall("gpt-4o-mini", "openai", time.Millisecond, 10, 5)
		m.RecordLLMError("gpt-4o-mini", "openai")
		m.RecordToolCall("search", time.Millisecond, true)
		m.RecordSessionCreated("agt_1")
		m.SetSessionsActive("agt_1", 3)
		m.RecordHTTPRequest("GET", "/agents", 200, time.Millisecond)
		m.RecordSafetyCheck("moderation", "approved")
	})
}

func TestNilMetrics_HandlerServesUnavailable(t *testing.T) {
	var m *Metrics
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNew_RecordsExposeInPrometheusFormat(t *testing.T) {
	m := New(true, "agentrt")
	require := assert.New(t)
	require.NotNil(m)

	m.RecordStep("agt_1", "tool_call", "completed", 5*time.Millisecond)
	m.RecordLLMCall("gpt-4o-mini", "openai", 20*time.Millisecond, 12, 8)
	m.RecordToolCall("search", 3*time.Millisecond, false)
	m.RecordSafetyCheck("guardrails", "failed_open")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(body, "agentrt_workflow_step_executions_total")
	require.Contains(body, "agentrt_llm_calls_total")
	require.Contains(body, "agentrt_tool_errors_total")
	require.Contains(body, "agentrt_safety_checks_total")
}

func TestNew_DefaultsNamespaceWhenEmpty(t *testing.T) {
	m := New(true, "")
	require := assert.New(t)
	require.NotNil(m)

	m.RecordSessionCreated("agt_1")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	require.Contains(rec.Body.String(), "agentrt_session_created_total")
}
