package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/agentrt/runtime/pkg/config"
)

// parallelOutcome carries one child step's full result back to the
// parent so it can be folded into Context.step_results and Context.usage
// (§5 "issue-order for parallel sub-steps", §8 usage invariant).
type parallelOutcome struct {
	stepID    string
	output    any
	result    StepResult
	outputVar string
	childEC   *ExecutionContext
}

// runParallel launches each step in parallel_steps against an
// independent child context sharing a read-only snapshot of variables
// (§4.1 "parallel"). With wait_for_all it awaits every task; otherwise
// it awaits the first completion and cancels the rest.
func (e *Executor) runParallel(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string) (any, error) {
	if len(step.ParallelSteps) == 0 {
		return map[string]any{}, nil
	}

	if step.WaitForAll {
		return e.runParallelWaitAll(ctx, agent, step, ec, sessionID)
	}
	return e.runParallelFirstWins(ctx, agent, step, ec, sessionID)
}

// runParallelWaitAll awaits every child, then folds each child's
// StepResult and usage into the parent ec in issue order. Issue order,
// not completion order, is what §5 requires, so the fold happens after
// the wait rather than as each goroutine finishes.
func (e *Executor) runParallelWaitAll(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string) (any, error) {
	group, gctx := errgroup.WithContext(ctx)
	outcomes := make([]parallelOutcome, len(step.ParallelSteps))

	for i, child := range step.ParallelSteps {
		i, child := i, child
		group.Go(func() error {
			childEC := ec.cloneForParallel()
			result, _, _ := e.runStep(gctx, agent, child, childEC, sessionID)
			outcomes[i] = parallelOutcome{
				stepID:    child.ID,
				output:    result.Output,
				result:    result,
				outputVar: child.OutputVariable,
				childEC:   childEC,
			}
			return nil
		})
	}
	_ = group.Wait()

	output := make(map[string]any, len(outcomes))
	for _, o := range outcomes {
		ec.AddUsage(o.childEC.Usage())
		ec.AppendStepResult(o.result, o.outputVar)
		output[o.stepID] = o.output
	}
	return output, nil
}

// runParallelFirstWins awaits the first completion and cancels the rest
// (§4.1 "remaining tasks are cancelled"). Only the winner's StepResult
// and usage are folded into the parent ec; the cancelled losers never
// produce a terminal result worth recording.
func (e *Executor) runParallelFirstWins(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string) (any, error) {
	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	winnerCh := make(chan parallelOutcome, len(step.ParallelSteps))

	for _, child := range step.ParallelSteps {
		child := child
		go func() {
			childEC := ec.cloneForParallel()
			result, _, _ := e.runStep(childCtx, agent, child, childEC, sessionID)
			select {
			case winnerCh <- parallelOutcome{
				stepID:    child.ID,
				output:    result.Output,
				result:    result,
				outputVar: child.OutputVariable,
				childEC:   childEC,
			}:
			default:
			}
		}()
	}

	select {
	case w := <-winnerCh:
		cancel()
		ec.AddUsage(w.childEC.Usage())
		ec.AppendStepResult(w.result, w.outputVar)
		return map[string]any{w.stepID: w.output}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
