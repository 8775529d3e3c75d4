package llmmanager

import (
	"fmt"
	"sync"
)

// ProviderEntry is one configured chat-completion endpoint (§4.3
// "Provider Registry").
type ProviderEntry struct {
	Name         string
	BaseURL      string
	ChatPath     string
	DefaultModel string
	APIKeyEnv    string
}

// defaultProviders seeds the registry with the endpoints named in §4.3:
// mistral, openai, anthropic, gemini, perplexity, nvidia-nim, ollama.
func defaultProviders() map[string]ProviderEntry {
	return map[string]ProviderEntry{
		"openai": {
			Name: "openai", BaseURL: "https://api.openai.com/v1", ChatPath: "/chat/completions",
			DefaultModel: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY",
		},
		"anthropic": {
			Name: "anthropic", BaseURL: "https://api.anthropic.com/v1", ChatPath: "/messages",
			DefaultModel: "claude-3-5-sonnet-latest", APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		"mistral": {
			Name: "mistral", BaseURL: "https://api.mistral.ai/v1", ChatPath: "/chat/completions",
			DefaultModel: "mistral-small-latest", APIKeyEnv: "MISTRAL_API_KEY",
		},
		"gemini": {
			Name: "gemini", BaseURL: "https://generativelanguage.googleapis.com/v1beta", ChatPath: "/chat/completions",
			DefaultModel: "gemini-1.5-flash", APIKeyEnv: "GEMINI_API_KEY",
		},
		"perplexity": {
			Name: "perplexity", BaseURL: "https://api.perplexity.ai", ChatPath: "/chat/completions",
			DefaultModel: "sonar", APIKeyEnv: "PERPLEXITY_API_KEY",
		},
		"nvidia-nim": {
			Name: "nvidia-nim", BaseURL: "https://integrate.api.nvidia.com/v1", ChatPath: "/chat/completions",
			DefaultModel: "meta/llama3-70b-instruct", APIKeyEnv: "NVIDIA_API_KEY",
		},
		"ollama": {
			Name: "ollama", BaseURL: "http://localhost:11434/v1", ChatPath: "/chat/completions",
			DefaultModel: "llama3.2", APIKeyEnv: "",
		},
	}
}

// ProviderRegistry holds configured provider endpoints and allows
// overriding or adding to the built-in defaults at startup (§4.3
// "operators may override base_url/model per provider, or register
// custom providers").
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderEntry
}

// NewProviderRegistry builds a registry seeded with the built-in defaults.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: defaultProviders()}
}

// Register adds or overwrites a provider entry.
func (r *ProviderRegistry) Register(entry ProviderEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[entry.Name] = entry
}

// Get returns the named provider's entry.
func (r *ProviderRegistry) Get(name string) (ProviderEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.providers[name]
	if !ok {
		return ProviderEntry{}, fmt.Errorf("llmmanager: unknown provider %q", name)
	}
	return entry, nil
}

// List returns the names of all registered providers.
func (r *ProviderRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
