package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentrt/runtime/pkg/agentloader"
	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/httpclient"
	"github.com/agentrt/runtime/pkg/llmmanager"
	"github.com/agentrt/runtime/pkg/metrics"
	"github.com/agentrt/runtime/pkg/runtimeapi"
	"github.com/agentrt/runtime/pkg/safety"
	"github.com/agentrt/runtime/pkg/server"
	"github.com/agentrt/runtime/pkg/session"
	"github.com/agentrt/runtime/pkg/toolmanager"
	"github.com/agentrt/runtime/pkg/workflow"
)

// ServeCmd starts the agent runtime's HTTP server (§6.2). Every
// dependency it wires is a service singleton created once here, per §5
// ("Service singletons ... are created at startup under a lock; callers
// never construct their own").
type ServeCmd struct {
	AgentsDir string `name:"agents-dir" help:"Directory of ADL agent files." default:"./agents"`
	Watch     bool   `help:"Hot-reload agents on file change." default:"true" negatable:""`

	Host string `help:"Override RUNTIME_HOST."`
	Port int    `help:"Override RUNTIME_PORT."`

	SessionTTL           time.Duration `name:"session-ttl" help:"Session idle eviction timeout." default:"60m"`
	SessionSweepInterval time.Duration `name:"session-sweep-interval" help:"Session eviction sweep interval." default:"5m"`

	ModerationURL string `name:"moderation-url" help:"Moderation peer URL (Stage 1 of the safety gate)." default:"http://localhost:9001/moderate"`
	GuardrailsURL string `name:"guardrails-url" help:"Guardrails peer URL (Stage 2 of the safety gate)." default:"http://localhost:9002/check"`

	EnvFile string `name:"env-file" help:"Path to a .env file to load before startup." default:".env"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	if err := config.LoadDotEnv(c.EnvFile); err != nil {
		slog.Warn("could not load .env file", "path", c.EnvFile, "error", err)
	}

	rc := config.LoadRuntimeConfig()
	if c.Host != "" {
		rc.Host = c.Host
	}
	if c.Port != 0 {
		rc.Port = c.Port
	}
	if c.AgentsDir != "" {
		rc.AgentsStoragePath = c.AgentsDir
	}

	mtr := metrics.New(rc.MetricsEnabled, rc.MetricsNamespace)

	httpClient := httpclient.New()

	toolRegistry := toolmanager.NewRegistry()
	for toolID, baseURL := range rc.ToolBaseURLs {
		toolRegistry.Register(toolmanager.RegistryEntry{ToolID: toolID, BaseURL: baseURL})
	}
	tools := toolmanager.New(toolRegistry, httpClient).WithMetrics(mtr)

	providers := llmmanager.NewProviderRegistry()
	for provider, baseURL := range rc.LLMBaseURLs {
		entry, err := providers.Get(provider)
		if err != nil {
			entry = llmmanager.ProviderEntry{Name: provider}
		}
		entry.BaseURL = baseURL
		providers.Register(entry)
	}
	llms := llmmanager.New(providers, httpClient).WithMetrics(mtr)

	sessions := session.NewManager(c.SessionTTL, c.SessionSweepInterval)
	sessions.StartSweeper()
	defer sessions.Close()

	loader := agentLoader(rc.AgentsStoragePath, toolRegistry)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("agentrt: initial agent load: %w", err)
	}
	if c.Watch {
		if err := loader.Watch(); err != nil {
			slog.Warn("agent hot-reload disabled", "error", err)
		} else {
			defer loader.Close()
		}
	}

	rules, err := safety.LoadRuleStore(rc.ModerationSettingsPath)
	if err != nil {
		return fmt.Errorf("agentrt: loading moderation rules: %w", err)
	}
	gate := safety.New(httpClient, c.ModerationURL, c.GuardrailsURL).WithMetrics(mtr)

	guardrails, err := config.LoadGuardrailsConfig(rc.GuardrailsConfigPath)
	if err != nil {
		return fmt.Errorf("agentrt: loading guardrails config: %w", err)
	}

	executor := workflow.New(llms, tools, sessions).WithMetrics(mtr)

	svc := &runtimeapi.Service{
		Agents:     loader,
		Executor:   executor,
		Sessions:   sessions,
		Gate:       gate,
		Tools:      tools,
		Rules:      rules,
		Guardrails: guardrails,
	}

	httpServer := server.New(rc, svc, mtr)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("agentrt: starting server: %w", err)
	}

	slog.Info("agent runtime ready", "agents_dir", rc.AgentsStoragePath, "addr", fmt.Sprintf("%s:%d", rc.Host, rc.Port))

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return httpServer.Stop(stopCtx)
}

// agentLoader builds the Agent Loader with its known-tool-id warning
// set seeded from the Tool Registry (§4.4).
func agentLoader(dir string, toolRegistry *toolmanager.Registry) *agentloader.Loader {
	known := make(map[string]bool)
	for _, id := range toolRegistry.List() {
		known[id] = true
	}
	return agentloader.New(dir, known)
}
