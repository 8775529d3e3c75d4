package workflow

import (
	"github.com/agentrt/runtime/pkg/config"
)

// resolveParameters resolves a ToolConfig's ParameterMapping list into a
// concrete name->value map (§4.1 "Parameter resolution").
func resolveParameters(mappings []config.ParameterMapping, variables, inputs, previousOutputs map[string]any) map[string]any {
	resolved := make(map[string]any, len(mappings))
	for _, m := range mappings {
		value := resolveOne(m, variables, inputs, previousOutputs)
		if m.Transform != "" {
			value = applyTransform(m.Transform, value)
		}
		resolved[m.Name] = value
	}
	return resolved
}

func resolveOne(m config.ParameterMapping, variables, inputs, previousOutputs map[string]any) any {
	switch m.Source {
	case config.SourceConstant:
		return m.Value

	case config.SourceInput:
		key := m.InputComponent
		if key == "" {
			key = m.Name
		}
		if v, ok := inputs[key]; ok {
			return v
		}
		return m.Value

	case config.SourceVariable:
		key := stringOrName(m.Value, m.Name)
		v, _ := lookupPath(key, variables)
		return v

	case config.SourcePreviousOutput:
		key := stringOrName(m.Value, m.Name)
		v, _ := lookupPath(key, previousOutputs)
		return v

	case config.SourceContext:
		// §4.1: "currently aliased to variable".
		key := stringOrName(m.Value, m.Name)
		v, _ := lookupPath(key, variables)
		return v

	default:
		return m.Value
	}
}

func stringOrName(value any, name string) string {
	if s, ok := value.(string); ok && s != "" {
		return s
	}
	return name
}
