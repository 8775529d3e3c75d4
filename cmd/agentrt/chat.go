package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentrt/runtime/pkg/agentloader"
	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/httpclient"
	"github.com/agentrt/runtime/pkg/llmmanager"
	"github.com/agentrt/runtime/pkg/runtimeapi"
	"github.com/agentrt/runtime/pkg/safety"
	"github.com/agentrt/runtime/pkg/session"
	"github.com/agentrt/runtime/pkg/toolmanager"
	"github.com/agentrt/runtime/pkg/workflow"
)

// ChatCmd drives one §6.2 "POST /chat" turn in-process, without a
// listening server — useful for smoke-testing an agent file before
// deploying it.
type ChatCmd struct {
	Agent     string `arg:"" help:"Agent id or slug to chat with."`
	Message   string `arg:"" help:"User message."`
	AgentsDir string `name:"agents-dir" help:"Directory of ADL agent files." default:"./agents"`
	SessionID string `name:"session-id" help:"Reuse an existing session id."`
	JSON      bool   `help:"Print the full ExecuteResponse as JSON instead of just the reply."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	_ = config.LoadDotEnv(".env")

	httpClient := httpclient.New()
	toolRegistry := toolmanager.NewRegistry()
	tools := toolmanager.New(toolRegistry, httpClient)
	llms := llmmanager.New(llmmanager.NewProviderRegistry(), httpClient)
	sessions := session.NewManager(0, 0)

	loader := agentloader.New(c.AgentsDir, nil)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("agentrt: loading agents: %w", err)
	}

	rules, err := safety.LoadRuleStore("")
	if err != nil {
		return err
	}

	svc := &runtimeapi.Service{
		Agents:   loader,
		Executor: workflow.New(llms, tools, sessions),
		Sessions: sessions,
		Gate:     nil,
		Tools:    tools,
		Rules:    rules,
	}

	resp, err := svc.Chat(context.Background(), c.Agent, runtimeapi.ChatRequest{
		Message:   c.Message,
		SessionID: c.SessionID,
	})
	if err != nil {
		return fmt.Errorf("agentrt: chat: %w", err)
	}

	if c.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	}

	if resp.BlockedReason != "" {
		fmt.Printf("blocked: %s\n", resp.BlockedReason)
		return nil
	}
	if !resp.Success {
		fmt.Printf("error: %s\n", resp.Error)
		return nil
	}
	fmt.Println(resp.Message)
	return nil
}
