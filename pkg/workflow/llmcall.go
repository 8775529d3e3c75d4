package workflow

import (
	"context"
	"fmt"

	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/llmmanager"
	"github.com/agentrt/runtime/pkg/session"
)

// runLLMCall renders prompt_template, resolves provider/model/
// temperature/max_tokens with connector and per-step overrides, calls
// the LLM Manager, and accumulates usage (§4.1 "llm_call").
func (e *Executor) runLLMCall(ctx context.Context, agent *config.Agent, step config.Step, ec *ExecutionContext, sessionID string) (any, error) {
	vars := ec.VariablesSnapshot()
	rendered := renderTemplate(step.PromptTemplate, vars)

	messages := conversationHistoryMessages(vars)
	messages = append(messages, llmmanager.Message{Role: "user", Content: rendered})

	systemPrompt := agent.SystemPrompt
	if step.SystemPromptOverride != "" {
		systemPrompt = renderTemplate(step.SystemPromptOverride, vars)
	}

	provider, model, temperature, maxTokens := resolveLLMSettings(agent, step)

	resp, err := e.llm.Chat(ctx, llmmanager.ChatRequest{
		Messages:     messages,
		Provider:     provider,
		Model:        model,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm_call: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("llm_call: %s", resp.Error)
	}

	ec.AddUsage(resp.Usage)

	if sessionID != "" && e.sessions != nil {
		_ = e.sessions.AddMessage(sessionID, session.RoleUser, rendered)
		_ = e.sessions.AddMessage(sessionID, session.RoleAssistant, resp.Content)
	}

	return resp.Content, nil
}

// resolveLLMSettings applies §4.1's "Per-step LLM overrides via
// connector": connector defaults apply unless further overridden on the
// step, otherwise agent-level defaults apply.
func resolveLLMSettings(agent *config.Agent, step config.Step) (provider, model string, temperature float64, maxTokens int) {
	provider = agent.LLMProvider
	model = agent.LLMModel
	temperature = agent.Temperature
	maxTokens = agent.MaxTokens

	if step.ConnectorID != "" && agent.Connectors != nil {
		for _, c := range agent.Connectors.Connectors {
			if c.ID == step.ConnectorID {
				provider = c.Provider
				if c.Model != "" {
					model = c.Model
				}
				temperature = c.Temperature
				maxTokens = c.MaxTokens
				break
			}
		}
	}

	if step.Temperature != nil {
		temperature = *step.Temperature
	}
	if step.MaxTokens != nil {
		maxTokens = *step.MaxTokens
	}
	return
}

func conversationHistoryMessages(vars map[string]any) []llmmanager.Message {
	raw, ok := vars["conversation_history"].([]any)
	if !ok {
		return nil
	}
	out := make([]llmmanager.Message, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		out = append(out, llmmanager.Message{Role: role, Content: content})
	}
	return out
}
