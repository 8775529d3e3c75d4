// Command agentrt runs the declarative agent runtime: it loads ADL
// agent definitions from a directory, wires the Workflow Executor, Tool
// Manager, LLM Manager, Session Manager, and Safety Gate, and serves the
// HTTP surface named in §6.2.
//
// Usage:
//
//	agentrt serve --agents-dir ./agents
//	agentrt validate ./agents/support.yaml
//	agentrt chat support "how do I reset my password?"
//	agentrt schema
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/agentrt/runtime/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the agent runtime HTTP server."`
	Validate ValidateCmd `cmd:"" help:"Validate one or more ADL agent files."`
	Chat     ChatCmd     `cmd:"" help:"Run one chat turn against a loaded agent, in-process."`
	Schema   SchemaCmd   `cmd:"" help:"Print the JSON Schema for an ADL agent document."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentrt version %s\n", version)
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentrt"),
		kong.Description("Declarative agent runtime: load ADL agents, execute their workflows, serve their API."),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	output := os.Stderr
	if cli.LogFile != "" {
		f, cleanup, ferr := logger.OpenLogFile(cli.LogFile)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "agentrt: opening log file: %v\n", ferr)
			os.Exit(1)
		}
		defer cleanup()
		output = f
	}
	logger.Init(level, output, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
