package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/agentrt/runtime/pkg/config"
)

// SchemaCmd generates the JSON Schema for an ADL agent Document (§6.1),
// for use by config-builder UIs or editor validation.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Document{})
	schema.ID = "https://agentrt.dev/schemas/agent.json"
	schema.Title = "Agent Definition Schema"
	schema.Description = "ADL document schema for the declarative agent runtime"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	return nil
}
