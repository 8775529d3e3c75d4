// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the Agent Descriptor Language (ADL): the
// YAML/JSON schema an Agent is authored in, plus the loader that turns
// bytes on disk into a validated Document.
package config

import "time"

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	StatusDraft    AgentStatus = "draft"
	StatusActive   AgentStatus = "active"
	StatusBeta     AgentStatus = "beta"
	StatusDisabled AgentStatus = "disabled"
	StatusArchived AgentStatus = "archived"
)

// ParameterSource is where a tool-call parameter's value comes from.
type ParameterSource string

const (
	SourceInput          ParameterSource = "input"
	SourceConstant       ParameterSource = "constant"
	SourceVariable       ParameterSource = "variable"
	SourcePreviousOutput ParameterSource = "previous_output"
	SourceContext        ParameterSource = "context"
)

// ErrorPolicy is what a failed tool call does next.
type ErrorPolicy string

const (
	OnErrorStop     ErrorPolicy = "stop"
	OnErrorContinue ErrorPolicy = "continue"
	OnErrorRetry    ErrorPolicy = "retry"
	OnErrorFallback ErrorPolicy = "fallback"
)

// WorkflowTrigger is what kind of event starts a workflow.
type WorkflowTrigger string

const (
	TriggerUserMessage WorkflowTrigger = "user_message"
	TriggerFormSubmit  WorkflowTrigger = "form_submit"
	TriggerFileUpload  WorkflowTrigger = "file_upload"
	TriggerButtonClick WorkflowTrigger = "button_click"
	TriggerSchedule    WorkflowTrigger = "schedule"
	TriggerWebhook     WorkflowTrigger = "webhook"
	TriggerOnLoad      WorkflowTrigger = "on_load"
)

// StepType discriminates the Step sum type (Steps field below).
type StepType string

const (
	StepLLMCall       StepType = "llm_call"
	StepToolCall      StepType = "tool_call"
	StepCondition     StepType = "condition"
	StepLoop          StepType = "loop"
	StepParallel      StepType = "parallel"
	StepUserInput     StepType = "user_input"
	StepDataTransform StepType = "data_transform"
	StepSetVariable   StepType = "set_variable"
	StepValidation    StepType = "validation"
	StepHTTPRequest   StepType = "http_request"
)

// Document is the top-level ADL document as read from a single YAML/JSON
// file (§6.1). One Document yields at most one Agent.
type Document struct {
	Metadata     Metadata       `yaml:"metadata" json:"metadata"`
	Identity     Identity       `yaml:"identity" json:"identity"`
	BusinessLogic BusinessLogic `yaml:"business_logic" json:"business_logic"`
	Tools        ToolsSection   `yaml:"tools" json:"tools"`
	UI           map[string]any `yaml:"ui" json:"ui"`
	Connectors   *Connectors    `yaml:"connectors" json:"connectors"`
	Workflows    WorkflowsSection `yaml:"workflows" json:"workflows"`
	Security     map[string]any `yaml:"security" json:"security"`
	Deployment   Deployment     `yaml:"deployment" json:"deployment"`
}

// Metadata carries provenance, not business logic.
type Metadata struct {
	ADLVersion string   `yaml:"adl_version" json:"adl_version"`
	SchemaURL  string   `yaml:"schema_url" json:"schema_url,omitempty"`
	CreatedAt  string   `yaml:"created_at" json:"created_at"`
	UpdatedAt  string   `yaml:"updated_at" json:"updated_at"`
	CreatedBy  string   `yaml:"created_by" json:"created_by,omitempty"`
	Version    string   `yaml:"version" json:"version"`
	Tags       []string `yaml:"tags" json:"tags"`
	Changelog  []string `yaml:"changelog" json:"changelog"`
}

// Identity is the agent's shape-level identification.
type Identity struct {
	ID              string      `yaml:"id" json:"id"`
	Name            string      `yaml:"name" json:"name"`
	Slug            string      `yaml:"slug" json:"slug,omitempty"`
	Description     string      `yaml:"description" json:"description"`
	LongDescription string      `yaml:"long_description" json:"long_description,omitempty"`
	Icon            string      `yaml:"icon" json:"icon,omitempty"`
	Category        string      `yaml:"category" json:"category,omitempty"`
	Status          AgentStatus `yaml:"status" json:"status"`
}

// PersonalityTrait is a named trait with a [0,2] intensity.
type PersonalityTrait struct {
	Name      string  `yaml:"name" json:"name"`
	Intensity float64 `yaml:"intensity" json:"intensity"`
}

// BusinessLogic is the prompt/model configuration driving the agent.
type BusinessLogic struct {
	SystemPrompt          string             `yaml:"system_prompt" json:"system_prompt"`
	UserPromptTemplate    string             `yaml:"user_prompt_template" json:"user_prompt_template,omitempty"`
	PersonalityTraits     []PersonalityTrait `yaml:"personality_traits" json:"personality_traits,omitempty"`
	Tone                  string             `yaml:"tone" json:"tone,omitempty"`
	Language              string             `yaml:"language" json:"language,omitempty"`
	LLMProvider           string             `yaml:"llm_provider" json:"llm_provider"`
	LLMModel              string             `yaml:"llm_model" json:"llm_model,omitempty"`
	Temperature           float64            `yaml:"temperature" json:"temperature"`
	MaxTokens             int                `yaml:"max_tokens" json:"max_tokens"`
	TopP                  *float64           `yaml:"top_p" json:"top_p,omitempty"`
	TopK                  *int               `yaml:"top_k" json:"top_k,omitempty"`
	ContextWindowMessages int                `yaml:"context_window_messages" json:"context_window_messages"`
	IncludeSystemContext  bool               `yaml:"include_system_context" json:"include_system_context"`
	ResponseFormat        string             `yaml:"response_format" json:"response_format,omitempty"`
	IncludeSources        bool               `yaml:"include_sources" json:"include_sources"`
	IncludeConfidence     bool               `yaml:"include_confidence" json:"include_confidence"`
	StreamingEnabled      bool               `yaml:"streaming_enabled" json:"streaming_enabled"`
	Moderation            ModerationConfig   `yaml:"moderation" json:"moderation"`
	Classification        map[string]any     `yaml:"classification" json:"classification,omitempty"`
	TaskPrompts           map[string]string  `yaml:"task_prompts" json:"task_prompts,omitempty"`
	Instructions          []string           `yaml:"instructions" json:"instructions,omitempty"`
	Constraints           []string           `yaml:"constraints" json:"constraints,omitempty"`
}

// ModerationConfig is the per-agent slice of the moderation rule set
// (§3 "Moderation rule set", §4.6).
type ModerationConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Rules   []string `yaml:"rules" json:"rules,omitempty"`
}

// GuardrailsConfig mirrors §4.6's "typed toggles for topic/content/jailbreak
// checks plus thresholds".
type GuardrailsConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	CheckTopic      bool    `yaml:"check_topic" json:"check_topic"`
	CheckContent    bool    `yaml:"check_content" json:"check_content"`
	CheckJailbreak  bool    `yaml:"check_jailbreak" json:"check_jailbreak"`
	RiskThreshold   float64 `yaml:"risk_threshold" json:"risk_threshold"`
}

// ToolConfig binds a Tool Registry entry into an agent's tool list (§3).
type ToolConfig struct {
	ID            string             `yaml:"id" json:"id"`
	ToolID        string             `yaml:"tool_id" json:"tool_id"`
	Enabled       bool               `yaml:"enabled" json:"enabled"`
	Parameters    []ParameterMapping `yaml:"parameters" json:"parameters,omitempty"`
	OutputVariable string            `yaml:"output_variable" json:"output_variable,omitempty"`
	OnError       ErrorPolicy        `yaml:"on_error" json:"on_error"`
	RetryCount    int                `yaml:"retry_count" json:"retry_count"`
	FallbackValue any                `yaml:"fallback_value" json:"fallback_value,omitempty"`
	TimeoutMs     int                `yaml:"timeout_ms" json:"timeout_ms"`
}

// ParameterMapping resolves one tool-call parameter (§4.1 "Parameter
// resolution").
type ParameterMapping struct {
	Name           string          `yaml:"name" json:"name"`
	Source         ParameterSource `yaml:"source" json:"source"`
	Value          any             `yaml:"value" json:"value,omitempty"`
	InputComponent string          `yaml:"input_component" json:"input_component,omitempty"`
	Transform      string          `yaml:"transform" json:"transform,omitempty"`
}

// ToolsSection is the agent's `tools` block.
type ToolsSection struct {
	Tools               []ToolConfig `yaml:"tools" json:"tools"`
	DefaultErrorHandling ErrorPolicy `yaml:"default_error_handling" json:"default_error_handling"`
	ParallelExecution   bool         `yaml:"parallel_execution" json:"parallel_execution"`
	MaxParallelTools    int          `yaml:"max_parallel_tools" json:"max_parallel_tools"`
}

// ConnectorConfig names a provider/model/defaults binding a step may
// reference via connector_id (§4.1 "Per-step LLM overrides via connector").
type ConnectorConfig struct {
	ID          string  `yaml:"id" json:"id"`
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model,omitempty"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// Connectors is the agent's optional `connectors` block.
type Connectors struct {
	DefaultConnector string            `yaml:"default_connector" json:"default_connector,omitempty"`
	Connectors       []ConnectorConfig `yaml:"connectors" json:"connectors"`
	EnableFallback   bool              `yaml:"enable_fallback" json:"enable_fallback"`
	FallbackOrder    []string          `yaml:"fallback_order" json:"fallback_order,omitempty"`
}

// Condition is the predicate evaluated by a `condition` step (§4.1).
type Condition struct {
	Variable      string      `yaml:"variable" json:"variable"`
	Operator      string      `yaml:"operator" json:"operator"`
	Value         any         `yaml:"value" json:"value,omitempty"`
	AndConditions []Condition `yaml:"and_conditions" json:"and_conditions,omitempty"`
	OrConditions  []Condition `yaml:"or_conditions" json:"or_conditions,omitempty"`
}

// InputComponent names one field a `user_input` step waits for.
type InputComponent struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type,omitempty"`
}

// Step is the step descriptor: one flat struct carrying the Type tag plus
// the optional fields of every step type, grouped below by the type that
// reads them. It is not a sum type; the workflow executor switches on
// Type, and fields that belong to other step types are ignored.
type Step struct {
	ID      string      `yaml:"id" json:"id"`
	Name    string      `yaml:"name" json:"name"`
	Type    StepType    `yaml:"type" json:"type"`
	NextStep string     `yaml:"next_step" json:"next_step,omitempty"`
	OutputVariable string `yaml:"output_variable" json:"output_variable,omitempty"`
	OnError ErrorPolicy `yaml:"on_error" json:"on_error"`

	// llm_call
	PromptTemplate       string   `yaml:"prompt_template" json:"prompt_template,omitempty"`
	SystemPromptOverride string   `yaml:"system_prompt_override" json:"system_prompt_override,omitempty"`
	ConnectorID          string   `yaml:"connector_id" json:"connector_id,omitempty"`
	Temperature          *float64 `yaml:"temperature" json:"temperature,omitempty"`
	MaxTokens            *int     `yaml:"max_tokens" json:"max_tokens,omitempty"`

	// tool_call
	ToolConfigID string `yaml:"tool_config_id" json:"tool_config_id,omitempty"`

	// condition
	ConditionExpr Condition `yaml:"condition" json:"condition,omitempty"`
	OnTrue        string    `yaml:"on_true" json:"on_true,omitempty"`
	OnFalse       string    `yaml:"on_false" json:"on_false,omitempty"`

	// loop
	LoopVariable  string `yaml:"loop_variable" json:"loop_variable,omitempty"`
	LoopItemName  string `yaml:"loop_item_name" json:"loop_item_name,omitempty"`
	LoopIndexName string `yaml:"loop_index_name" json:"loop_index_name,omitempty"`
	LoopBody      []Step `yaml:"loop_body" json:"loop_body,omitempty"`
	MaxIterations int    `yaml:"max_iterations" json:"max_iterations,omitempty"`

	// parallel
	ParallelSteps []Step `yaml:"parallel_steps" json:"parallel_steps,omitempty"`
	WaitForAll    bool   `yaml:"wait_for_all" json:"wait_for_all"`

	// user_input
	InputComponents []InputComponent `yaml:"input_components" json:"input_components,omitempty"`
	InputTimeoutMs  *int             `yaml:"input_timeout_ms" json:"input_timeout_ms,omitempty"`

	// data_transform
	TransformExpression string `yaml:"transform_expression" json:"transform_expression,omitempty"`

	// set_variable
	VariableName  string `yaml:"variable_name" json:"variable_name,omitempty"`
	VariableValue any    `yaml:"variable_value" json:"variable_value,omitempty"`
}

// Workflow is an ordered, branchable step graph driven by a Trigger (§3).
type Workflow struct {
	ID               string          `yaml:"id" json:"id"`
	Name             string          `yaml:"name" json:"name"`
	Trigger          WorkflowTrigger `yaml:"trigger" json:"trigger"`
	TriggerConfig    map[string]any  `yaml:"trigger_config" json:"trigger_config,omitempty"`
	Steps            []Step          `yaml:"steps" json:"steps"`
	EntryStep        string          `yaml:"entry_step" json:"entry_step,omitempty"`
	InitialVariables map[string]any  `yaml:"initial_variables" json:"initial_variables,omitempty"`
	TimeoutMs        *int            `yaml:"timeout_ms" json:"timeout_ms,omitempty"`
}

// WorkflowsSection is the agent's `workflows` block.
type WorkflowsSection struct {
	Workflows       []Workflow `yaml:"workflows" json:"workflows"`
	DefaultWorkflow string     `yaml:"default_workflow" json:"default_workflow,omitempty"`
}

// Deployment carries deployment hints, largely opaque to the core.
type Deployment struct {
	Route          string         `yaml:"route" json:"route,omitempty"`
	AutoRoute      bool           `yaml:"auto_route" json:"auto_route"`
	Environment    string         `yaml:"environment" json:"environment,omitempty"`
	MinInstances   int            `yaml:"min_instances" json:"min_instances"`
	MaxInstances   int            `yaml:"max_instances" json:"max_instances"`
	FeatureFlags   map[string]any `yaml:"feature_flags" json:"feature_flags,omitempty"`
	HealthCheckPath string        `yaml:"health_check_path" json:"health_check_path,omitempty"`
}

// Agent is the published, immutable-after-load in-memory form of a
// Document (§3 "Agent (immutable after load)"). LoadedAt is an ambient
// addition not named by the data model: it records when the agent loader
// ingested the file and orders agentloader.Registry.ListAll (by
// LoadedAt, then id).
type Agent struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Category    string
	Status      AgentStatus
	Icon        string

	SystemPrompt          string
	UserPromptTemplate    string
	LLMProvider           string
	LLMModel              string
	Temperature           float64
	MaxTokens             int
	ContextWindowMessages int
	ResponseFormat        string
	TaskPrompts           map[string]string

	Tools []ToolConfig

	UI map[string]any

	Connectors *Connectors

	Workflows       []Workflow
	DefaultWorkflow string

	Route string

	Moderation ModerationConfig

	LoadedAt time.Time

	source Document
}

// Source returns the original parsed Document, e.g. for the
// `/agents/{id}/definition` endpoint that must return the full ADL.
func (a Agent) Source() Document { return a.source }
