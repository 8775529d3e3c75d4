package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/toolmanager"
)

// toolRetryDelay is the fixed back-off between tool_call retry attempts
// (§4.1 "retry up to retry_count with a fixed back-off schedule").
const toolRetryDelay = 500 * time.Millisecond

// runToolCall looks up the named ToolConfig, resolves its parameters,
// and calls the Tool Manager, applying the tool's on_error policy
// (§4.1 "tool_call").
func (e *Executor) runToolCall(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext) (any, error) {
	tc, found := findToolConfig(agent.Tools, step.ToolConfigID)
	if !found {
		return nil, fmt.Errorf("tool_call: unknown tool_config_id %q", step.ToolConfigID)
	}
	if !tc.Enabled {
		return nil, fmt.Errorf("tool_call: tool_config %q is disabled", tc.ID)
	}

	vars := ec.VariablesSnapshot()
	params := resolveParameters(tc.Parameters, vars, ec.Inputs(), ec.PreviousOutputs())
	files := ec.FilesFor(tc.ToolID)

	timeout := time.Duration(tc.TimeoutMs) * time.Millisecond

	attempts := 1
	if tc.OnError == config.OnErrorRetry && tc.RetryCount > 0 {
		attempts = tc.RetryCount + 1
	}

	var result toolmanager.ExecuteResult
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(toolRetryDelay):
			}
		}
		result = e.tools.Execute(ctx, tc.ToolID, params, files, timeout)
		if result.Success {
			return result.Output, nil
		}
	}

	switch tc.OnError {
	case config.OnErrorFallback:
		return tc.FallbackValue, nil
	case config.OnErrorContinue:
		return nil, nil
	default:
		return nil, fmt.Errorf("tool_call: %s", result.Error)
	}
}

func findToolConfig(tools []config.ToolConfig, id string) (config.ToolConfig, bool) {
	for _, t := range tools {
		if t.ID == id {
			return t, true
		}
	}
	return config.ToolConfig{}, false
}
