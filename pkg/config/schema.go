package config

import "github.com/invopop/jsonschema"

// JSONSchema generates the JSON Schema for the ADL Document type, with
// definitions referenced and the root struct expanded. The `agentrt
// schema` command does not call it: it runs its own reflector (no
// references, additional properties disallowed) over the same type. The
// HTTP server has no schema route.
func JSONSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference:            false,
		RequiredFromJSONSchemaTags: false,
		ExpandedStruct:             true,
	}
	return reflector.Reflect(&Document{})
}
