package config

import (
	"fmt"
	"regexp"
	"strings"
)

// LoadError is returned when a Document fails validation; its Kind
// (SchemaInvalid or ReferenceInvalid, §7) names the check that failed.
// The agent loader logs and skips the file for either Kind.
type LoadError struct {
	Kind    string
	Message string
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func schemaError(format string, args ...any) *LoadError {
	return &LoadError{Kind: "SchemaInvalid", Message: fmt.Sprintf(format, args...)}
}

func referenceError(format string, args ...any) *LoadError {
	return &LoadError{Kind: "ReferenceInvalid", Message: fmt.Sprintf(format, args...)}
}

// ValidateShape checks the shape/enum/range constraints of §6.1. It does
// not check cross-references; see ValidateReferences.
func (d *Document) ValidateShape() error {
	if d.Identity.Name == "" || len(d.Identity.Name) > 100 {
		return schemaError("identity.name must be 1..100 characters")
	}
	if len(d.Identity.Description) > 500 {
		return schemaError("identity.description must be <= 500 characters")
	}
	if len(d.Identity.LongDescription) > 5000 {
		return schemaError("identity.long_description must be <= 5000 characters")
	}
	switch d.Identity.Status {
	case StatusDraft, StatusActive, StatusBeta, StatusDisabled, StatusArchived, "":
	default:
		return schemaError("identity.status %q is not a recognized status", d.Identity.Status)
	}

	bl := d.BusinessLogic
	if bl.SystemPrompt == "" {
		return schemaError("business_logic.system_prompt is required")
	}
	if bl.Temperature < 0 || bl.Temperature > 2 {
		return schemaError("business_logic.temperature must be in [0,2], got %v", bl.Temperature)
	}
	if bl.MaxTokens < 1 || bl.MaxTokens > 128000 {
		return schemaError("business_logic.max_tokens must be in [1,128000], got %v", bl.MaxTokens)
	}
	if bl.TopP != nil && (*bl.TopP < 0 || *bl.TopP > 1) {
		return schemaError("business_logic.top_p must be in [0,1], got %v", *bl.TopP)
	}
	if bl.TopK != nil && *bl.TopK < 1 {
		return schemaError("business_logic.top_k must be >= 1, got %v", *bl.TopK)
	}
	if bl.ContextWindowMessages < 0 {
		return schemaError("business_logic.context_window_messages must be >= 0")
	}
	for _, t := range bl.PersonalityTraits {
		if t.Intensity < 0 || t.Intensity > 2 {
			return schemaError("personality trait %q intensity must be in [0,2]", t.Name)
		}
	}

	if d.Tools.MaxParallelTools != 0 && (d.Tools.MaxParallelTools < 1 || d.Tools.MaxParallelTools > 10) {
		return schemaError("tools.max_parallel_tools must be in [1,10], got %v", d.Tools.MaxParallelTools)
	}
	for _, tc := range d.Tools.Tools {
		if tc.ID == "" {
			return schemaError("every tool config needs a non-empty id")
		}
		switch tc.OnError {
		case OnErrorStop, OnErrorContinue, OnErrorRetry, OnErrorFallback, "":
		default:
			return schemaError("tool %q has unrecognized on_error %q", tc.ID, tc.OnError)
		}
	}

	for _, wf := range d.Workflows.Workflows {
		switch wf.Trigger {
		case TriggerUserMessage, TriggerFormSubmit, TriggerFileUpload, TriggerButtonClick,
			TriggerSchedule, TriggerWebhook, TriggerOnLoad:
		default:
			return schemaError("workflow %q has unrecognized trigger %q", wf.ID, wf.Trigger)
		}
		for _, step := range wf.Steps {
			if err := validateStepShape(step); err != nil {
				return err
			}
		}
	}

	if d.Deployment.MinInstances < 0 {
		return schemaError("deployment.min_instances must be >= 0")
	}
	if d.Deployment.MaxInstances != 0 && d.Deployment.MaxInstances < 1 {
		return schemaError("deployment.max_instances must be >= 1")
	}

	return nil
}

func validateStepShape(s Step) error {
	if s.ID == "" && s.Name == "" {
		return schemaError("a step needs at least an id or a name")
	}
	switch s.Type {
	case StepLLMCall, StepToolCall, StepCondition, StepLoop, StepParallel,
		StepUserInput, StepDataTransform, StepSetVariable, StepValidation, StepHTTPRequest:
	default:
		return schemaError("step %q has unrecognized type %q", stepKey(s), s.Type)
	}
	switch s.OnError {
	case OnErrorStop, OnErrorContinue, OnErrorRetry, OnErrorFallback, "":
	default:
		return schemaError("step %q has unrecognized on_error %q", stepKey(s), s.OnError)
	}
	for _, child := range s.LoopBody {
		if err := validateStepShape(child); err != nil {
			return err
		}
	}
	for _, child := range s.ParallelSteps {
		if err := validateStepShape(child); err != nil {
			return err
		}
	}
	return nil
}

func stepKey(s Step) string {
	if s.ID != "" {
		return s.ID
	}
	return s.Name
}

// ValidateReferences enforces the hard cross-reference rules of §4.4
// ("error — file is rejected"). Soft ("warning") checks are returned
// separately via Warnings so the loader can log and still accept the file.
func (d *Document) ValidateReferences() error {
	toolIDs := make(map[string]bool, len(d.Tools.Tools))
	for _, tc := range d.Tools.Tools {
		toolIDs[tc.ID] = true
	}

	for _, wf := range d.Workflows.Workflows {
		stepIDs := make(map[string]bool)
		var collect func([]Step)
		collect = func(steps []Step) {
			for _, s := range steps {
				stepIDs[stepKey(s)] = true
			}
		}
		collect(wf.Steps)

		var check func([]Step) error
		check = func(steps []Step) error {
			for _, s := range steps {
				if s.Type == StepToolCall {
					if s.ToolConfigID == "" || !toolIDs[s.ToolConfigID] {
						return referenceError("workflow %q step %q references unknown tool_config_id %q",
							wf.ID, stepKey(s), s.ToolConfigID)
					}
				}
				for _, ref := range []string{s.NextStep, s.OnTrue, s.OnFalse} {
					if ref != "" && !stepIDs[ref] {
						return referenceError("workflow %q step %q references unknown step %q",
							wf.ID, stepKey(s), ref)
					}
				}
				if err := check(s.LoopBody); err != nil {
					return err
				}
				if err := check(s.ParallelSteps); err != nil {
					return err
				}
			}
			return nil
		}
		if err := check(wf.Steps); err != nil {
			return err
		}
	}

	if d.Connectors != nil && d.Connectors.DefaultConnector != "" {
		found := false
		for _, c := range d.Connectors.Connectors {
			if c.ID == d.Connectors.DefaultConnector {
				found = true
				break
			}
		}
		if !found {
			return referenceError("connectors.default_connector %q is not in connectors.connectors[]",
				d.Connectors.DefaultConnector)
		}
	}

	return nil
}

// Warnings collects the soft cross-reference issues of §4.4: references
// that do not reject the file but are worth surfacing to an operator.
func (d *Document) Warnings(knownToolIDs map[string]bool) []string {
	var warnings []string

	uiComponents := collectUIComponentNames(d.UI)

	for _, tc := range d.Tools.Tools {
		if knownToolIDs != nil && !knownToolIDs[tc.ToolID] {
			warnings = append(warnings, fmt.Sprintf("tool config %q references unknown tool_id %q", tc.ID, tc.ToolID))
		}
	}

	var walk func([]Step)
	walk = func(steps []Step) {
		for _, s := range steps {
			for _, ic := range s.InputComponents {
				if len(uiComponents) > 0 && !uiComponents[ic.Name] {
					warnings = append(warnings, fmt.Sprintf("step %q input_component %q does not match any UI component", stepKey(s), ic.Name))
				}
			}
			walk(s.LoopBody)
			walk(s.ParallelSteps)
		}
	}
	for _, wf := range d.Workflows.Workflows {
		walk(wf.Steps)
	}

	return warnings
}

func collectUIComponentNames(ui map[string]any) map[string]bool {
	names := make(map[string]bool)
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if name, ok := val["name"].(string); ok {
				names[name] = true
			}
			for _, child := range val {
				walk(child)
			}
		case []any:
			for _, child := range val {
				walk(child)
			}
		}
	}
	walk(ui)
	return names
}

var slugInvalidRunPattern = regexp.MustCompile(`[^a-z0-9-]+`)
var slugRepeatDashPattern = regexp.MustCompile(`-+`)

// DeriveSlug computes a slug from a name when one is absent (§4.4 "Slug
// derivation"): lowercase, non-[a-z0-9-] runs become a single dash,
// repeats collapse, leading/trailing dashes are stripped.
func DeriveSlug(name string) string {
	s := strings.ToLower(name)
	s = slugInvalidRunPattern.ReplaceAllString(s, "-")
	s = slugRepeatDashPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ToAgent converts a validated Document into its immutable Agent view.
// The caller (the agent loader) stamps LoadedAt after this returns.
func (d *Document) ToAgent() Agent {
	slug := d.Identity.Slug
	if slug == "" {
		slug = DeriveSlug(d.Identity.Name)
	}

	a := Agent{
		ID:                    d.Identity.ID,
		Slug:                  slug,
		Name:                  d.Identity.Name,
		Description:           d.Identity.Description,
		Category:              d.Identity.Category,
		Status:                d.Identity.Status,
		Icon:                  d.Identity.Icon,
		SystemPrompt:          d.BusinessLogic.SystemPrompt,
		UserPromptTemplate:    d.BusinessLogic.UserPromptTemplate,
		LLMProvider:           d.BusinessLogic.LLMProvider,
		LLMModel:              d.BusinessLogic.LLMModel,
		Temperature:           d.BusinessLogic.Temperature,
		MaxTokens:             d.BusinessLogic.MaxTokens,
		ContextWindowMessages: d.BusinessLogic.ContextWindowMessages,
		ResponseFormat:        d.BusinessLogic.ResponseFormat,
		TaskPrompts:           d.BusinessLogic.TaskPrompts,
		Tools:                 d.Tools.Tools,
		UI:                    d.UI,
		Connectors:            d.Connectors,
		Workflows:             d.Workflows.Workflows,
		DefaultWorkflow:       d.Workflows.DefaultWorkflow,
		Route:                 d.Deployment.Route,
		Moderation:            d.BusinessLogic.Moderation,
		source:                *d,
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.ContextWindowMessages == 0 {
		a.ContextWindowMessages = 10
	}
	return a
}
