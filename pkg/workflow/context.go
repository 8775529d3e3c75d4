// Package workflow is the graph-driven step interpreter that drives an
// agent's workflow from its entry step to a terminal ExecutionContext
// (§4.1). It dispatches llm_call and tool_call steps to the LLM and Tool
// Managers, and owns template resolution, parameter resolution, and flow
// control (condition/loop/parallel).
package workflow

import (
	"sync"
	"time"

	"github.com/agentrt/runtime/pkg/llmmanager"
	"github.com/agentrt/runtime/pkg/toolmanager"
)

// Status is the terminal/non-terminal state of one execution (§3
// ExecutionContext.status).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StepStatus is the outcome of one executed step.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepResult records one step's execution (§4.1 "Record a StepResult").
type StepResult struct {
	StepID      string      `json:"step_id"`
	Type        string      `json:"type"`
	Status      StepStatus  `json:"status"`
	Output      any         `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
	DurationMs  int64       `json:"duration_ms"`
}

// ExecutionContext is the mutable, mutex-guarded state of one workflow
// run (§3 "ExecutionContext"). It is owned by exactly one in-flight
// execution.
type ExecutionContext struct {
	mu sync.RWMutex

	workflowID string
	agentID    string

	variables    map[string]any
	inputs       map[string]any
	files        map[string][]toolmanager.File
	stepResults  []StepResult
	currentStep  string
	status       Status
	startedAt    time.Time
	completedAt  time.Time
	usage        llmmanager.Usage
	err          string

	// previousOutputs is the {output_variable_name -> step_output} map
	// used by tool_call parameter resolution's "previous_output" source
	// (§4.1). It is distinct from variables because output_variable names
	// and variable names occupy separate namespaces until a step binds
	// into variables explicitly.
	previousOutputs map[string]any
}

// NewExecutionContext seeds variables from the workflow's initial
// variables, the caller's inputs, and the ambient agent_name/system_prompt
// (§4.1 "Initialisation").
func NewExecutionContext(workflowID, agentID string, initialVariables, inputs map[string]any, files map[string][]toolmanager.File, agentName, systemPrompt string) *ExecutionContext {
	vars := make(map[string]any, len(initialVariables)+len(inputs)+2)
	for k, v := range initialVariables {
		vars[k] = v
	}
	for k, v := range inputs {
		vars[k] = v
	}
	vars["agent_name"] = agentName
	vars["system_prompt"] = systemPrompt

	inputsCopy := make(map[string]any, len(inputs))
	for k, v := range inputs {
		inputsCopy[k] = v
	}

	return &ExecutionContext{
		workflowID:      workflowID,
		agentID:         agentID,
		variables:       vars,
		inputs:          inputsCopy,
		files:           files,
		stepResults:     make([]StepResult, 0, 8),
		status:          StatusPending,
		startedAt:       time.Now(),
		previousOutputs: make(map[string]any),
	}
}

// FilesFor returns the file attachments a tool_call step targeting
// toolID should receive, if any were supplied to Execute.
func (c *ExecutionContext) FilesFor(toolID string) []toolmanager.File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[toolID]
}

func (c *ExecutionContext) Usage() llmmanager.Usage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usage
}

// cloneForParallel builds a child context over a frozen copy of
// variables, for a parallel_steps task (§4.1 "sharing a read-only
// snapshot of variables at launch time"). Its mutations are discarded
// by the caller except for usage, which is merged back into the parent.
func (c *ExecutionContext) cloneForParallel() *ExecutionContext {
	snap := c.VariablesSnapshot()
	inputs := c.Inputs()
	prevOutputs := c.PreviousOutputs()

	c.mu.RLock()
	files := c.files
	c.mu.RUnlock()

	return &ExecutionContext{
		workflowID:      c.workflowID,
		agentID:         c.agentID,
		variables:       snap,
		inputs:          inputs,
		files:           files,
		stepResults:     make([]StepResult, 0, 1),
		status:          StatusRunning,
		startedAt:       time.Now(),
		previousOutputs: prevOutputs,
	}
}

// Inputs returns the original inputs map passed to Execute, distinct
// from variables, which also carries initial_variables and per-step
// outputs (§4.1 parameter resolution source=input reads from this
// namespace).
func (c *ExecutionContext) Inputs() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.inputs))
	for k, v := range c.inputs {
		out[k] = v
	}
	return out
}

func (c *ExecutionContext) SetVariable(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = value
}

func (c *ExecutionContext) Variable(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// VariablesSnapshot returns a shallow copy of the variables map, used as
// the read-only snapshot parallel steps launch against (§4.1 "a
// read-only snapshot of variables at launch time").
func (c *ExecutionContext) VariablesSnapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		snap[k] = v
	}
	return snap
}

func (c *ExecutionContext) SetCurrentStep(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentStep = id
}

func (c *ExecutionContext) SetStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
	if s == StatusCompleted || s == StatusFailed || s == StatusCancelled {
		c.completedAt = time.Now()
	}
}

func (c *ExecutionContext) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *ExecutionContext) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = msg
}

func (c *ExecutionContext) AddUsage(u llmmanager.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage = c.usage.Add(u)
}

// AppendStepResult records a result in visitation order (§5 "step
// results appear in Context.step_results in the exact order the
// executor visits them") and, when output_variable is set and the step
// completed, binds the output into variables and the previous-output
// map.
func (c *ExecutionContext) AppendStepResult(result StepResult, outputVariable string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepResults = append(c.stepResults, result)
	if outputVariable != "" && result.Status == StepStatusCompleted {
		c.variables[outputVariable] = result.Output
		c.previousOutputs[outputVariable] = result.Output
	}
}

func (c *ExecutionContext) PreviousOutputs() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.previousOutputs))
	for k, v := range c.previousOutputs {
		out[k] = v
	}
	return out
}

// Snapshot is the serialisable view of an ExecutionContext, matching §3
// ExecutionContext exactly.
type Snapshot struct {
	WorkflowID  string            `json:"workflow_id"`
	AgentID     string            `json:"agent_id"`
	Variables   map[string]any    `json:"variables"`
	StepResults []StepResult      `json:"step_results"`
	CurrentStep string            `json:"current_step_id,omitempty"`
	Status      Status            `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Usage       llmmanager.Usage  `json:"usage"`
	Error       string            `json:"error,omitempty"`
}

func (c *ExecutionContext) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vars := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		vars[k] = v
	}
	results := make([]StepResult, len(c.stepResults))
	copy(results, c.stepResults)

	var completedAt *time.Time
	if !c.completedAt.IsZero() {
		t := c.completedAt
		completedAt = &t
	}

	return Snapshot{
		WorkflowID:  c.workflowID,
		AgentID:     c.agentID,
		Variables:   vars,
		StepResults: results,
		CurrentStep: c.currentStep,
		Status:      c.status,
		StartedAt:   c.startedAt,
		CompletedAt: completedAt,
		Usage:       c.usage,
		Error:       c.err,
	}
}
