package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalADL = `
identity:
  id: agt_1
  name: Simple Chat
business_logic:
  system_prompt: You are a helpful assistant.
  llm_provider: openai
  temperature: 0.7
  max_tokens: 512
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

func TestParseDocument_Minimal(t *testing.T) {
	doc, err := ParseDocument([]byte(minimalADL))
	require.NoError(t, err)
	assert.Equal(t, "agt_1", doc.Identity.ID)
	assert.Equal(t, StatusActive, doc.Identity.Status) // default applied
	assert.Equal(t, 10, doc.BusinessLogic.ContextWindowMessages)
	require.NoError(t, doc.ValidateShape())
	require.NoError(t, doc.ValidateReferences())
}

func TestParseDocument_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_PROVIDER", "anthropic")
	doc, err := ParseDocument([]byte(`
identity:
  name: Env Agent
business_logic:
  system_prompt: hello
  llm_provider: ${TEST_PROVIDER}
  temperature: 0.2
  max_tokens: 100
`))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", doc.BusinessLogic.LLMProvider)
}

func TestValidateShape_RejectsBadTemperature(t *testing.T) {
	doc, err := ParseDocument([]byte(`
identity:
  name: Bad Agent
business_logic:
  system_prompt: hi
  llm_provider: openai
  temperature: 5
  max_tokens: 100
`))
	require.NoError(t, err)
	err = doc.ValidateShape()
	require.Error(t, err)
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "SchemaInvalid", lerr.Kind)
}

func TestValidateReferences_UnknownNextStep(t *testing.T) {
	doc, err := ParseDocument([]byte(`
identity:
  name: Broken Agent
business_logic:
  system_prompt: hi
  llm_provider: openai
  temperature: 0.5
  max_tokens: 100
workflows:
  workflows:
    - id: wf_1
      name: Flow
      trigger: user_message
      steps:
        - id: a
          name: A
          type: llm_call
          next_step: "Z"
`))
	require.NoError(t, err)
	err = doc.ValidateReferences()
	require.Error(t, err)
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "ReferenceInvalid", lerr.Kind)
}

func TestValidateReferences_UnknownToolConfigID(t *testing.T) {
	doc, err := ParseDocument([]byte(`
identity:
  name: Tool Agent
business_logic:
  system_prompt: hi
  llm_provider: openai
  temperature: 0.5
  max_tokens: 100
workflows:
  workflows:
    - id: wf_1
      name: Flow
      trigger: user_message
      steps:
        - id: a
          name: A
          type: tool_call
          tool_config_id: missing
`))
	require.NoError(t, err)
	assert.Error(t, doc.ValidateReferences())
}

func TestValidateReferences_UnknownDefaultConnector(t *testing.T) {
	doc, err := ParseDocument([]byte(`
identity:
  name: Connector Agent
business_logic:
  system_prompt: hi
  llm_provider: openai
  temperature: 0.5
  max_tokens: 100
connectors:
  default_connector: ghost
  connectors:
    - id: primary
      provider: openai
`))
	require.NoError(t, err)
	assert.Error(t, doc.ValidateReferences())
}

func TestDeriveSlug(t *testing.T) {
	cases := map[string]string{
		"Simple Chat":        "simple-chat",
		"  Multi   Space  ":  "multi-space",
		"Weird!!Chars??":     "weird-chars",
		"--Leading-Trailing--": "leading-trailing",
	}
	for name, want := range cases {
		assert.Equal(t, want, DeriveSlug(name), "name=%q", name)
	}
}

func TestToAgent_DefaultsSlugAndStatus(t *testing.T) {
	doc, err := ParseDocument([]byte(minimalADL))
	require.NoError(t, err)
	agent := doc.ToAgent()
	assert.Equal(t, "simple-chat", agent.Slug)
	assert.Equal(t, StatusActive, agent.Status)
	assert.Equal(t, "agt_1", agent.ID)
}

func TestWarnings_UnknownToolID(t *testing.T) {
	doc, err := ParseDocument([]byte(`
identity:
  name: Warn Agent
business_logic:
  system_prompt: hi
  llm_provider: openai
  temperature: 0.5
  max_tokens: 100
tools:
  tools:
    - id: cfg_1
      tool_id: mystery-tool
`))
	require.NoError(t, err)
	warnings := doc.Warnings(map[string]bool{"document-extractor": true})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "mystery-tool")
}
