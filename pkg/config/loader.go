package config

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ParseDocument parses raw bytes (YAML, falling back to JSON — YAML is a
// superset) into a Document, expanding ${VAR}/${VAR:-default}/$VAR
// references against the environment before decoding. Grounded on the
// teacher's parseBytes/expandEnvVars/decodeConfig pipeline
// (pkg/config/loader.go).
func ParseDocument(data []byte) (*Document, error) {
	raw, err := parseBytes(data)
	if err != nil {
		return nil, schemaError("could not parse as YAML or JSON: %v", err)
	}

	expanded := expandEnvVars(raw)

	doc := &Document{}
	if err := decodeDocument(expanded, doc); err != nil {
		return nil, schemaError("could not decode document: %v", err)
	}

	applyDocumentDefaults(doc)

	return doc, nil
}

func parseBytes(data []byte) (map[string]any, error) {
	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err == nil && result != nil {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse as YAML or JSON: %w", err)
	}
	return result, nil
}

func decodeDocument(input map[string]any, out *Document) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}

func applyDocumentDefaults(d *Document) {
	if d.Identity.Status == "" {
		d.Identity.Status = StatusActive
	}
	if d.BusinessLogic.ContextWindowMessages == 0 {
		d.BusinessLogic.ContextWindowMessages = 10
	}
	if d.BusinessLogic.Temperature == 0 {
		d.BusinessLogic.Temperature = 0.7
	}
	if d.BusinessLogic.MaxTokens == 0 {
		d.BusinessLogic.MaxTokens = 2048
	}
	if d.Tools.DefaultErrorHandling == "" {
		d.Tools.DefaultErrorHandling = OnErrorStop
	}
	if d.Tools.MaxParallelTools == 0 {
		d.Tools.MaxParallelTools = 5
	}
	for i := range d.Tools.Tools {
		tc := &d.Tools.Tools[i]
		if tc.OnError == "" {
			tc.OnError = d.Tools.DefaultErrorHandling
		}
		if tc.TimeoutMs == 0 {
			tc.TimeoutMs = 30_000
		}
	}
}
