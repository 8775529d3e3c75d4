package workflow

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/httpclient"
	"github.com/agentrt/runtime/pkg/llmmanager"
	"github.com/agentrt/runtime/pkg/toolmanager"
)

func testExecutor(t *testing.T, llmURL, toolURL string) *Executor {
	t.Helper()
	llmRegistry := llmmanager.NewProviderRegistry()
	llmRegistry.Register(llmmanager.ProviderEntry{Name: "stub", BaseURL: llmURL, ChatPath: "/chat", DefaultModel: "stub-1"})
	llm := llmmanager.New(llmRegistry, httpclient.New())

	toolRegistry := toolmanager.NewRegistry()
	toolRegistry.Register(toolmanager.RegistryEntry{ToolID: "echo", BaseURL: toolURL, EndpointPath: "/run"})
	tools := toolmanager.New(toolRegistry, httpclient.New())

	return New(llm, tools, nil)
}

func baseAgent() *config.Agent {
	return &config.Agent{
		ID:           "agt_1",
		Name:         "Assistant",
		SystemPrompt: "You are helpful.",
		LLMProvider:  "stub",
		Temperature:  0.5,
		MaxTokens:    256,
		Tools: []config.ToolConfig{
			{ID: "echo_tool", ToolID: "echo", Enabled: true, OnError: config.OnErrorStop,
				Parameters: []config.ParameterMapping{{Name: "text", Source: config.SourceInput}}},
		},
	}
}

func TestExecute_LLMCallThenToolCall(t *testing.T) {
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":"llm said hi","usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`)
	}))
	defer llmSrv.Close()
	toolSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"echoed":true}`)
	}))
	defer toolSrv.Close()

	exec := testExecutor(t, llmSrv.URL, toolSrv.URL)
	agent := baseAgent()
	wf := &config.Workflow{
		ID: "wf_1",
		Steps: []config.Step{
			{ID: "step1", Type: config.StepLLMCall, PromptTemplate: "Say hi", OutputVariable: "greeting", NextStep: "step2", OnError: config.OnErrorStop},
			{ID: "step2", Type: config.StepToolCall, ToolConfigID: "echo_tool", OutputVariable: "tool_out", OnError: config.OnErrorStop},
		},
		EntryStep: "step1",
	}

	ec, err := exec.Execute(context.Background(), agent, wf, map[string]any{"text": "hi"}, nil, "")
	require.NoError(t, err)
	snap := ec.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "llm said hi", snap.Variables["greeting"])
	assert.Equal(t, map[string]any{"echoed": true}, snap.Variables["tool_out"])
	assert.Equal(t, 5, snap.Usage.TotalTokens)
	require.Len(t, snap.StepResults, 2)
}

func TestExecute_ConditionBranches(t *testing.T) {
	exec := testExecutor(t, "http://unused", "http://unused")
	agent := baseAgent()
	wf := &config.Workflow{
		ID: "wf_cond",
		Steps: []config.Step{
			{ID: "check", Type: config.StepCondition, ConditionExpr: config.Condition{Variable: "flag", Operator: "eq", Value: true}, OnTrue: "yes", OnFalse: "no"},
			{ID: "yes", Type: config.StepSetVariable, VariableName: "path", VariableValue: "yes-branch"},
			{ID: "no", Type: config.StepSetVariable, VariableName: "path", VariableValue: "no-branch"},
		},
		EntryStep: "check",
	}

	ec, err := exec.Execute(context.Background(), agent, wf, map[string]any{"flag": true}, nil, "")
	require.NoError(t, err)
	snap := ec.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "yes-branch", snap.Variables["path"])
}

func TestExecute_LoopCollectsOutputs(t *testing.T) {
	exec := testExecutor(t, "http://unused", "http://unused")
	agent := baseAgent()
	wf := &config.Workflow{
		ID: "wf_loop",
		Steps: []config.Step{
			{ID: "iter", Type: config.StepLoop,
				LoopVariable: "items", LoopItemName: "item", LoopIndexName: "idx", MaxIterations: 10,
				LoopBody: []config.Step{
					{ID: "emit", Type: config.StepDataTransform, TransformExpression: "{{ item }}"},
				},
				OutputVariable: "loop_out",
			},
		},
		EntryStep:        "iter",
		InitialVariables: map[string]any{"items": []any{"a", "b", "c"}},
	}

	ec, err := exec.Execute(context.Background(), agent, wf, nil, nil, "")
	require.NoError(t, err)
	snap := ec.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, []any{"a", "b", "c"}, snap.Variables["loop_out"])
}

func TestExecute_ParallelWaitForAllCollectsPerStepOutputs(t *testing.T) {
	exec := testExecutor(t, "http://unused", "http://unused")
	agent := baseAgent()
	wf := &config.Workflow{
		ID: "wf_parallel",
		Steps: []config.Step{
			{ID: "fan", Type: config.StepParallel, WaitForAll: true, OutputVariable: "fan_out",
				ParallelSteps: []config.Step{
					{ID: "p1", Type: config.StepSetVariable, VariableName: "unused1", VariableValue: "one"},
					{ID: "p2", Type: config.StepSetVariable, VariableName: "unused2", VariableValue: "two"},
				},
			},
		},
		EntryStep: "fan",
	}

	ec, err := exec.Execute(context.Background(), agent, wf, nil, nil, "")
	require.NoError(t, err)
	snap := ec.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, map[string]any{"p1": "one", "p2": "two"}, snap.Variables["fan_out"])
}

// TestExecute_ParallelWaitForAllFoldsUsageAndStepResults covers spec
// scenario 4: two llm_call children each returning usage {1,1,2} must
// both land in step_results (in issue order, ahead of the parallel step's
// own result, which is recorded once the step completes) and sum into
// Context.usage, per §8's usage invariant and §5's "issue-order for
// parallel sub-steps".
func TestExecute_ParallelWaitForAllFoldsUsageAndStepResults(t *testing.T) {
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":"ok","usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	defer llmSrv.Close()

	exec := testExecutor(t, llmSrv.URL, "http://unused")
	agent := baseAgent()
	wf := &config.Workflow{
		ID: "wf_parallel_usage",
		Steps: []config.Step{
			{ID: "fan", Type: config.StepParallel, WaitForAll: true, OutputVariable: "fan_out",
				ParallelSteps: []config.Step{
					{ID: "p1", Type: config.StepLLMCall, PromptTemplate: "one"},
					{ID: "p2", Type: config.StepLLMCall, PromptTemplate: "two"},
				},
			},
		},
		EntryStep: "fan",
	}

	ec, err := exec.Execute(context.Background(), agent, wf, nil, nil, "")
	require.NoError(t, err)
	snap := ec.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 4, snap.Usage.TotalTokens)

	require.Len(t, snap.StepResults, 3)
	assert.Equal(t, "p1", snap.StepResults[0].StepID)
	assert.Equal(t, "p2", snap.StepResults[1].StepID)
	assert.Equal(t, "fan", snap.StepResults[2].StepID)

	var summed int
	for _, r := range snap.StepResults {
		if r.Type == string(config.StepLLMCall) && r.Status == StepStatusCompleted {
			summed += 2
		}
	}
	assert.Equal(t, snap.Usage.TotalTokens, summed)
}

func TestExecute_ToolCallOnErrorFallback(t *testing.T) {
	toolSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer toolSrv.Close()

	exec := testExecutor(t, "http://unused", toolSrv.URL)
	agent := baseAgent()
	agent.Tools[0].OnError = config.OnErrorFallback
	agent.Tools[0].FallbackValue = "fallback!"

	wf := &config.Workflow{
		ID: "wf_fallback",
		Steps: []config.Step{
			{ID: "step1", Type: config.StepToolCall, ToolConfigID: "echo_tool", OutputVariable: "tool_out", OnError: config.OnErrorFallback},
		},
		EntryStep: "step1",
	}

	ec, err := exec.Execute(context.Background(), agent, wf, map[string]any{"text": "hi"}, nil, "")
	require.NoError(t, err)
	snap := ec.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "fallback!", snap.Variables["tool_out"])
}

func TestExecute_StepFailureWithStopHaltsWorkflow(t *testing.T) {
	toolSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer toolSrv.Close()

	exec := testExecutor(t, "http://unused", toolSrv.URL)
	agent := baseAgent()

	wf := &config.Workflow{
		ID: "wf_stop",
		Steps: []config.Step{
			{ID: "step1", Type: config.StepToolCall, ToolConfigID: "echo_tool", OnError: config.OnErrorStop, NextStep: "step2"},
			{ID: "step2", Type: config.StepSetVariable, VariableName: "unreached", VariableValue: "nope"},
		},
		EntryStep: "step1",
	}

	ec, err := exec.Execute(context.Background(), agent, wf, map[string]any{"text": "hi"}, nil, "")
	require.NoError(t, err)
	snap := ec.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	_, reached := snap.Variables["unreached"]
	assert.False(t, reached)
}
