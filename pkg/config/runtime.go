package config

import (
	"os"
	"strconv"
	"strings"
)

// RuntimeConfig is the process-level configuration read from environment
// variables (§6.4). Unlike the ADL Document, this is read once at
// startup and does not hot-reload.
type RuntimeConfig struct {
	Host                 string
	Port                 int
	CORSOrigins          []string
	AgentsStoragePath    string
	ToolBaseURLs         map[string]string // RUNTIME_TOOL_<tool_id>
	LLMBaseURLs          map[string]string // RUNTIME_LLM_<provider>_URL
	ToolTimeoutSeconds   int
	LLMTimeoutSeconds    int
	ModerationSettingsPath string
	GuardrailsConfigPath   string
	MetricsEnabled         bool
	MetricsNamespace       string
}

// LoadRuntimeConfig reads RuntimeConfig from the process environment,
// applying the defaults named in §6.4.
func LoadRuntimeConfig() RuntimeConfig {
	rc := RuntimeConfig{
		Host:                   getEnvDefault("RUNTIME_HOST", "0.0.0.0"),
		Port:                   getEnvIntDefault("RUNTIME_PORT", 8080),
		AgentsStoragePath:      getEnvDefault("RUNTIME_AGENTS_STORAGE_PATH", "./agents"),
		ToolTimeoutSeconds:     getEnvIntDefault("RUNTIME_TOOL_TIMEOUT_SECONDS", 60),
		LLMTimeoutSeconds:      getEnvIntDefault("RUNTIME_LLM_TIMEOUT_SECONDS", 600),
		ModerationSettingsPath: os.Getenv("MODERATION_SETTINGS_PATH"),
		GuardrailsConfigPath:   os.Getenv("NEMO_GUARDRAILS_CONFIG_PATH"),
		MetricsEnabled:         getEnvBoolDefault("RUNTIME_METRICS_ENABLED", true),
		MetricsNamespace:       getEnvDefault("RUNTIME_METRICS_NAMESPACE", "agentrt"),
		ToolBaseURLs:           make(map[string]string),
		LLMBaseURLs:            make(map[string]string),
	}

	if origins := os.Getenv("RUNTIME_CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				rc.CORSOrigins = append(rc.CORSOrigins, o)
			}
		}
	}

	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(name, "RUNTIME_TOOL_") && name != "RUNTIME_TOOL_TIMEOUT_SECONDS":
			toolID := strings.ToLower(strings.TrimPrefix(name, "RUNTIME_TOOL_"))
			rc.ToolBaseURLs[toolID] = value
		case strings.HasPrefix(name, "RUNTIME_LLM_") && strings.HasSuffix(name, "_URL"):
			provider := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(name, "RUNTIME_LLM_"), "_URL"))
			rc.LLMBaseURLs[provider] = value
		}
	}

	return rc
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
