package agentloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrt/runtime/pkg/config"
)

const validAgentYAML = `
identity:
  id: agt_chat
  name: Simple Chat
business_logic:
  system_prompt: You are helpful.
  llm_provider: openai
  temperature: 0.5
  max_tokens: 256
workflows:
  workflows:
    - id: wf_1
      name: Chat
      trigger: user_message
      steps:
        - id: ask
          name: Ask
          type: llm_call
          output_variable: response
`

const brokenAgentYAML = `
identity:
  id: agt_broken
  name: Broken Agent
business_logic:
  system_prompt: hi
  llm_provider: openai
  temperature: 0.5
  max_tokens: 256
workflows:
  workflows:
    - id: wf_1
      name: Flow
      trigger: user_message
      steps:
        - id: a
          name: A
          type: llm_call
          next_step: "does-not-exist"
`

const disabledAgentYAML = `
identity:
  id: agt_disabled
  name: Disabled Agent
  status: disabled
business_logic:
  system_prompt: hi
  llm_provider: openai
  temperature: 0.5
  max_tokens: 256
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoader_LoadsValidSkipsBrokenAndDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chat.yaml", validAgentYAML)
	writeFile(t, dir, "broken.yaml", brokenAgentYAML)
	writeFile(t, dir, "disabled.yaml", disabledAgentYAML)
	writeFile(t, dir, "ignored.txt", "not an adl file")

	loader := New(dir, nil)
	require.NoError(t, loader.Load())

	assert.Equal(t, 1, loader.Registry().Count())

	agent, ok := loader.Registry().Get("agt_chat")
	require.True(t, ok)
	assert.Equal(t, "simple-chat", agent.Slug)

	_, ok = loader.Registry().Get("agt_broken")
	assert.False(t, ok)
	_, ok = loader.Registry().Get("agt_disabled")
	assert.False(t, ok)
}

func TestLoader_GetByIDOrSlug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chat.yaml", validAgentYAML)

	loader := New(dir, nil)
	require.NoError(t, loader.Load())

	_, ok := loader.Registry().GetByIDOrSlug("agt_chat")
	assert.True(t, ok)
	_, ok = loader.Registry().GetByIDOrSlug("simple-chat")
	assert.True(t, ok)
	_, ok = loader.Registry().GetByIDOrSlug("nope")
	assert.False(t, ok)
}

func TestLoader_ReloadSwapsRegistryConsistently(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chat.yaml", validAgentYAML)

	loader := New(dir, nil)
	require.NoError(t, loader.Load())
	require.Equal(t, 1, loader.Registry().Count())

	require.NoError(t, os.Remove(filepath.Join(dir, "chat.yaml")))
	require.NoError(t, loader.Reload())

	assert.Equal(t, 0, loader.Registry().Count())
}

func TestLoader_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	loader := New(dir, nil)

	doc, err := config.ParseDocument([]byte(validAgentYAML))
	require.NoError(t, err)

	agent, err := loader.Register(doc)
	require.NoError(t, err)
	assert.Equal(t, "agt_chat", agent.ID)
	assert.FileExists(t, filepath.Join(dir, "simple-chat.yaml"))

	require.NoError(t, loader.Delete("agt_chat"))
	assert.NoFileExists(t, filepath.Join(dir, "simple-chat.yaml"))
	_, ok := loader.Registry().Get("agt_chat")
	assert.False(t, ok)
}
