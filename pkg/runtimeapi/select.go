package runtimeapi

import (
	"fmt"

	"github.com/agentrt/runtime/pkg/config"
)

// selectWorkflow picks the Workflow an execution request should run
// (§6.2's `workflow_id`/`trigger` request fields; §3 "Workflow" is keyed
// by trigger, not solely by id). Precedence:
//  1. an explicit workflow_id, which must resolve or the request fails;
//  2. the first workflow whose trigger matches the requested trigger;
//  3. the agent's tools.workflows.default_workflow, if set;
//  4. the first workflow in the agent, as a last resort.
//
// Unmatched trigger requests are not an error: they are reported as a
// warning and fall through to the default, since §6.2 does not specify
// hard-failing when no workflow claims a trigger.
func selectWorkflow(agent config.Agent, workflowID, trigger string) (*config.Workflow, []string, error) {
	if workflowID != "" {
		for i := range agent.Workflows {
			if agent.Workflows[i].ID == workflowID {
				return &agent.Workflows[i], nil, nil
			}
		}
		return nil, nil, fmt.Errorf("runtimeapi: workflow %q not found on agent %q", workflowID, agent.ID)
	}

	var warnings []string
	if trigger != "" {
		for i := range agent.Workflows {
			if string(agent.Workflows[i].Trigger) == trigger {
				return &agent.Workflows[i], nil, nil
			}
		}
		warnings = append(warnings, fmt.Sprintf("no workflow matches trigger %q, falling back to default", trigger))
	}

	if agent.DefaultWorkflow != "" {
		for i := range agent.Workflows {
			if agent.Workflows[i].ID == agent.DefaultWorkflow {
				return &agent.Workflows[i], warnings, nil
			}
		}
	}

	if len(agent.Workflows) > 0 {
		return &agent.Workflows[0], warnings, nil
	}

	return nil, warnings, nil
}
