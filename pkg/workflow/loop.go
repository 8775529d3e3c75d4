package workflow

import (
	"context"

	"github.com/agentrt/runtime/pkg/config"
)

// runLoop binds loop_item_name/loop_index_name for each of the first
// max_iterations items of variables[loop_variable] and executes
// loop_body in order, collecting non-null step outputs (§4.1 "loop").
func (e *Executor) runLoop(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string) (any, error) {
	items, ok := ec.Variable(step.LoopVariable)
	if !ok {
		return []any{}, nil
	}
	seq, ok := items.([]any)
	if !ok {
		return []any{}, nil
	}

	max := step.MaxIterations
	if max <= 0 || max > len(seq) {
		max = len(seq)
	}

	outputs := make([]any, 0, max)
	for index := 0; index < max; index++ {
		ec.SetVariable(step.LoopItemName, seq[index])
		ec.SetVariable(step.LoopIndexName, index)

		terminated, err := e.runLoopBody(ctx, agent, step, ec, sessionID, &outputs)
		if err != nil {
			return outputs, err
		}
		if terminated {
			break
		}
	}
	return outputs, nil
}

// runLoopBody executes one iteration's body steps in order. It returns
// terminated=true when a body step with on_error=stop fails, which ends
// the loop early (§4.1 "a step with on_error=stop terminates the
// current iteration and the loop").
func (e *Executor) runLoopBody(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string, outputs *[]any) (bool, error) {
	for _, bodyStep := range step.LoopBody {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		default:
		}

		result, _, err := e.runStep(ctx, agent, bodyStep, ec, sessionID)
		if err != nil {
			return true, err
		}
		ec.AppendStepResult(result, bodyStep.OutputVariable)

		if result.Status == StepStatusFailed {
			if bodyStep.OnError == config.OnErrorStop {
				return true, nil
			}
			continue
		}
		if result.Output != nil {
			*outputs = append(*outputs, result.Output)
		}
	}
	return false, nil
}
