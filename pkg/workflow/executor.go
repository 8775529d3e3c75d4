package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/llmmanager"
	"github.com/agentrt/runtime/pkg/metrics"
	"github.com/agentrt/runtime/pkg/session"
	"github.com/agentrt/runtime/pkg/toolmanager"
)

// maxStepsPerExecution bounds the number of steps a single execution may
// visit. The specification leaves circular next_step detection at load
// time unresolved (no cross-step reachability analysis is specified);
// this counter is the runtime safeguard chosen in its place, so a cycle
// fails the execution instead of hanging the process forever.
const maxStepsPerExecution = 10_000

// errStepBudgetExceeded is the error recorded when an execution visits more
// than maxStepsPerExecution steps, most likely due to a next_step cycle.
var errStepBudgetExceeded = fmt.Errorf("workflow: exceeded %d step visits, probable next_step cycle", maxStepsPerExecution)

// Executor drives a workflow graph from its entry step to a terminal
// ExecutionContext (§4.1).
type Executor struct {
	llm      *llmmanager.Manager
	tools    *toolmanager.Manager
	sessions *session.Manager
	metrics  *metrics.Metrics
}

// New builds an Executor over the given managers. sessions may be nil
// for workflow runs that are not chat-backed.
func New(llm *llmmanager.Manager, tools *toolmanager.Manager, sessions *session.Manager) *Executor {
	return &Executor{llm: llm, tools: tools, sessions: sessions}
}

// WithMetrics attaches a metrics sink to the executor. A nil m disables
// recording without requiring call-site checks.
func (e *Executor) WithMetrics(m *metrics.Metrics) *Executor {
	e.metrics = m
	return e
}

// Files carries opaque upload descriptors through to tool_call steps
// that require file input.
type Files map[string][]toolmanager.File

// Execute drives agent's workflow wf from its entry step to completion
// (§4.1 "execute(agent, workflow, inputs, files?, session?) ->
// ExecutionContext"). sessionID may be empty for non-chat runs.
func (e *Executor) Execute(ctx context.Context, agent *config.Agent, wf *config.Workflow, inputs map[string]any, files Files, sessionID string) (*ExecutionContext, error) {
	started := time.Now()
	ec := NewExecutionContext(wf.ID, agent.ID, wf.InitialVariables, inputs, files, agent.Name, agent.SystemPrompt)
	ec.SetStatus(StatusRunning)
	defer func() {
		e.metrics.RecordWorkflow(agent.ID, string(ec.Status()), time.Since(started))
	}()

	if sessionID != "" {
		ec.SetVariable("session_id", sessionID)
		if e.sessions != nil {
			n := agent.ContextWindowMessages
			if n <= 0 {
				n = 10
			}
			if history, err := e.sessions.GetMessages(sessionID, n); err == nil {
				ec.SetVariable("conversation_history", historyToVariables(history))
			}
		}
	}

	if wf.TimeoutMs != nil && *wf.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*wf.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	byID := indexSteps(wf.Steps)
	current := wf.EntryStep
	if current == "" && len(wf.Steps) > 0 {
		current = wf.Steps[0].ID
	}

	visited := 0
	for current != "" {
		visited++
		if visited > maxStepsPerExecution {
			ec.SetStatus(StatusFailed)
			ec.SetError(errStepBudgetExceeded.Error())
			return ec, nil
		}

		select {
		case <-ctx.Done():
			ec.SetStatus(StatusFailed)
			ec.SetError(ctx.Err().Error())
			return ec, nil
		default:
		}

		step, ok := byID[current]
		if !ok {
			ec.SetStatus(StatusFailed)
			ec.SetError(fmt.Sprintf("workflow: unknown step id %q", current))
			return ec, nil
		}

		ec.SetCurrentStep(step.ID)
		result, next, err := e.runStep(ctx, agent, step, ec, sessionID)
		if err != nil {
			ec.SetStatus(StatusFailed)
			ec.SetError(err.Error())
			return ec, nil
		}
		ec.AppendStepResult(result, step.OutputVariable)

		if result.Status == StepStatusFailed && step.OnError == config.OnErrorStop {
			ec.SetStatus(StatusFailed)
			ec.SetError(result.Error)
			return ec, nil
		}

		current = next
	}

	ec.SetStatus(StatusCompleted)
	return ec, nil
}

func indexSteps(steps []config.Step) map[string]config.Step {
	idx := make(map[string]config.Step, len(steps))
	for _, s := range steps {
		idx[s.ID] = s
	}
	return idx
}

func historyToVariables(history []session.Message) []any {
	out := make([]any, len(history))
	for i, m := range history {
		out[i] = map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		}
	}
	return out
}

// runStep dispatches one step by type and computes the next step id
// (§4.1 "compute the next step").
func (e *Executor) runStep(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string) (StepResult, string, error) {
	started := time.Now()
	output, stepErr := e.dispatch(ctx, agent, step, ec, sessionID)

	result := StepResult{
		StepID:      step.ID,
		Type:        string(step.Type),
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
	result.DurationMs = result.CompletedAt.Sub(started).Milliseconds()

	if stepErr != nil {
		result.Status = StepStatusFailed
		result.Error = stepErr.Error()
	} else {
		result.Status = StepStatusCompleted
		result.Output = output
	}

	e.metrics.RecordStep(agent.ID, string(step.Type), string(result.Status), time.Duration(result.DurationMs)*time.Millisecond)

	next := nextStepID(step, result)
	return result, next, nil
}

func nextStepID(step config.Step, result StepResult) string {
	if step.Type == config.StepCondition {
		if truthy, ok := result.Output.(bool); ok {
			if truthy {
				return step.OnTrue
			}
			return step.OnFalse
		}
		return step.OnFalse
	}
	return step.NextStep
}

// dispatch executes one step's type-specific logic (§4.1 "Step
// semantics"). It never returns a transport/process error for expected
// failure modes; those become the returned error and are translated to
// StepStatusFailed by the caller so on_error policy can apply.
func (e *Executor) dispatch(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string) (any, error) {
	switch step.Type {
	case config.StepLLMCall:
		return e.runLLMCall(ctx, agent, step, ec, sessionID)
	case config.StepToolCall:
		return e.runToolCall(ctx, agent, step, ec)
	case config.StepCondition:
		return evaluateCondition(step.ConditionExpr, ec.VariablesSnapshot()), nil
	case config.StepLoop:
		return e.runLoop(ctx, agent, step, ec, sessionID)
	case config.StepParallel:
		return e.runParallel(ctx, agent, step, ec, sessionID)
	case config.StepUserInput:
		return e.runUserInput(step, ec), nil
	case config.StepSetVariable:
		return e.runSetVariable(step, ec), nil
	case config.StepDataTransform:
		rendered := renderTemplate(step.TransformExpression, ec.VariablesSnapshot())
		return rendered, nil
	case config.StepValidation:
		// §9 Open Question: no expression language is specified for
		// validation in v1, so it always passes.
		return true, nil
	case config.StepHTTPRequest:
		// Reserved per §3; stubbed until a concrete contract is specified.
		return nil, fmt.Errorf("workflow: http_request step type is not implemented")
	default:
		return nil, fmt.Errorf("workflow: unknown step type %q", step.Type)
	}
}

func (e *Executor) runUserInput(step config.Step, ec *ExecutionContext) map[string]any {
	out := make(map[string]any, len(step.InputComponents))
	vars := ec.VariablesSnapshot()
	for _, c := range step.InputComponents {
		v, _ := lookupPath(c.Name, vars)
		out[c.Name] = v
	}
	return out
}

func (e *Executor) runSetVariable(step config.Step, ec *ExecutionContext) any {
	value := step.VariableValue
	if s, ok := value.(string); ok {
		value = renderTemplate(s, ec.VariablesSnapshot())
	}
	ec.SetVariable(step.VariableName, value)
	return value
}
