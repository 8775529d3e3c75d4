package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for the runtime. A nil
// *Metrics is valid and every Record/Inc/Set method is a no-op against
// it, so callers never need a feature-flag check at the call site.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry

	// Workflow/step metrics
	stepExecutions     *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec
	workflowExecutions *prometheus.CounterVec
	workflowDuration   *prometheus.HistogramVec

	// LLM metrics
	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  *prometheus.CounterVec
	llmTokensOutput *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	// Tool metrics
	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	// Session metrics
	sessionsCreated *prometheus.CounterVec
	sessionsActive  *prometheus.GaugeVec

	// HTTP metrics
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec

	// Safety gate metrics
	safetyChecks *prometheus.CounterVec
}

// New creates a Metrics instance. If enabled is false it returns nil,
// and every method on a nil *Metrics is safe to call.
func New(enabled bool, namespace string) *Metrics {
	if !enabled {
		return nil
	}
	if namespace == "" {
		namespace = "agentrt"
	}

	m := &Metrics{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	m.initWorkflowMetrics()
	m.initLLMMetrics()
	m.initToolMetrics()
	m.initSessionMetrics()
	m.initHTTPMetrics()
	m.initSafetyMetrics()

	return m
}

func (m *Metrics) initWorkflowMetrics() {
	m.stepExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "workflow",
			Name:      "step_executions_total",
			Help:      "Total number of workflow step executions",
		},
		[]string{"agent_id", "step_type", "status"},
	)

	m.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "workflow",
			Name:      "step_duration_seconds",
			Help:      "Workflow step execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"agent_id", "step_type"},
	)

	m.workflowExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "workflow",
			Name:      "executions_total",
			Help:      "Total number of workflow executions",
		},
		[]string{"agent_id", "status"},
	)

	m.workflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "workflow",
			Name:      "execution_duration_seconds",
			Help:      "Workflow execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to 163s
		},
		[]string{"agent_id"},
	)

	m.registry.MustRegister(m.stepExecutions, m.stepDuration, m.workflowExecutions, m.workflowDuration)
}

func (m *Metrics) initLLMMetrics() {
	m.llmCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of LLM API calls",
		},
		[]string{"model", "provider"},
	)

	m.llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM API call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to 204s
		},
		[]string{"model", "provider"},
	)

	m.llmTokensInput = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "llm",
			Name:      "tokens_input_total",
			Help:      "Total number of input tokens consumed",
		},
		[]string{"model", "provider"},
	)

	m.llmTokensOutput = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "llm",
			Name:      "tokens_output_total",
			Help:      "Total number of output tokens generated",
		},
		[]string{"model", "provider"},
	)

	m.llmErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "llm",
			Name:      "errors_total",
			Help:      "Total number of LLM API errors",
		},
		[]string{"model", "provider"},
	)

	m.registry.MustRegister(m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput, m.llmErrors)
}

func (m *Metrics) initToolMetrics() {
	m.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of tool invocations",
		},
		[]string{"tool_id"},
	)

	m.toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"tool_id"},
	)

	m.toolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "tool",
			Name:      "errors_total",
			Help:      "Total number of tool errors",
		},
		[]string{"tool_id"},
	)

	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *Metrics) initSessionMetrics() {
	m.sessionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Total number of sessions created",
		},
		[]string{"agent_id"},
	)

	m.sessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of currently active sessions",
		},
		[]string{"agent_id"},
	)

	m.registry.MustRegister(m.sessionsCreated, m.sessionsActive)
}

func (m *Metrics) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.registry.MustRegister(m.httpRequests, m.httpDuration)
}

func (m *Metrics) initSafetyMetrics() {
	m.safetyChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "safety",
			Name:      "checks_total",
			Help:      "Total number of safety gate checks, by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	m.registry.MustRegister(m.safetyChecks)
}

// RecordStep records a completed workflow step execution.
func (m *Metrics) RecordStep(agentID, stepType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepExecutions.WithLabelValues(agentID, stepType, status).Inc()
	m.stepDuration.WithLabelValues(agentID, stepType).Observe(duration.Seconds())
}

// RecordWorkflow records a completed workflow execution.
func (m *Metrics) RecordWorkflow(agentID, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.workflowExecutions.WithLabelValues(agentID, status).Inc()
	m.workflowDuration.WithLabelValues(agentID).Observe(duration.Seconds())
}

// RecordLLMCall records an LLM API call and its token usage.
func (m *Metrics) RecordLLMCall(model, provider string, duration time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model, provider).Inc()
	m.llmCallDuration.WithLabelValues(model, provider).Observe(duration.Seconds())
	m.llmTokensInput.WithLabelValues(model, provider).Add(float64(inputTokens))
	m.llmTokensOutput.WithLabelValues(model, provider).Add(float64(outputTokens))
}

// RecordLLMError records an LLM API call failure.
func (m *Metrics) RecordLLMError(model, provider string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(model, provider).Inc()
}

// RecordToolCall records a tool invocation.
func (m *Metrics) RecordToolCall(toolID string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolID).Inc()
	m.toolCallDuration.WithLabelValues(toolID).Observe(duration.Seconds())
	if !success {
		m.toolErrors.WithLabelValues(toolID).Inc()
	}
}

// RecordSessionCreated records a session creation.
func (m *Metrics) RecordSessionCreated(agentID string) {
	if m == nil {
		return
	}
	m.sessionsCreated.WithLabelValues(agentID).Inc()
}

// SetSessionsActive sets the number of currently active sessions for an agent.
func (m *Metrics) SetSessionsActive(agentID string, count int) {
	if m == nil {
		return
	}
	m.sessionsActive.WithLabelValues(agentID).Set(float64(count))
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusCodeLabel(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSafetyCheck records a safety gate decision for one stage
// ("moderation" or "guardrails") with an outcome of "approved",
// "rejected", or "failed_open".
func (m *Metrics) RecordSafetyCheck(stage, outcome string) {
	if m == nil {
		return
	}
	m.safetyChecks.WithLabelValues(stage, outcome).Inc()
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler returns the HTTP handler serving this registry in the
// Prometheus exposition format. A nil *Metrics serves 503, so a route
// can be wired unconditionally regardless of whether metrics are enabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
