package config

import (
	"encoding/json"
	"os"
)

// LoadGuardrailsConfig reads the NeMo-style guardrails document named by
// NEMO_GUARDRAILS_CONFIG_PATH (§6.4, §6.5 "Guardrails: a single JSON
// document ... mirroring §4.6"). A missing path returns the zero value
// (guardrails disabled), matching the moderation-peer's own fail-open
// posture rather than refusing to start.
func LoadGuardrailsConfig(path string) (GuardrailsConfig, error) {
	if path == "" {
		return GuardrailsConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GuardrailsConfig{}, nil
		}
		return GuardrailsConfig{}, err
	}
	var cfg GuardrailsConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return GuardrailsConfig{}, err
	}
	return cfg, nil
}
