package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate_SimplePlaceholder(t *testing.T) {
	out := renderTemplate("Hello, {{ name }}!", map[string]any{"name": "Ada"})
	assert.Equal(t, "Hello, Ada!", out)
}

func TestRenderTemplate_MissingPathExpandsEmpty(t *testing.T) {
	out := renderTemplate("X[{{ missing.path }}]", map[string]any{})
	assert.Equal(t, "X[]", out)
}

func TestRenderTemplate_DottedAndListIndexPath(t *testing.T) {
	vars := map[string]any{
		"user": map[string]any{
			"tags": []any{"first", "second"},
		},
	}
	out := renderTemplate("{{ user.tags.1 }}", vars)
	assert.Equal(t, "second", out)
}

func TestRenderTemplate_NonScalarExpandsToJSON(t *testing.T) {
	vars := map[string]any{"obj": map[string]any{"a": 1.0}}
	out := renderTemplate("{{ obj }}", vars)
	assert.Equal(t, `{"a":1}`, out)
}

func TestRenderTemplate_ConditionalTruthyIncludesBody(t *testing.T) {
	out := renderTemplate("{{#if flag}}shown{{/if}}", map[string]any{"flag": true})
	assert.Equal(t, "shown", out)
}

func TestRenderTemplate_ConditionalFalsyOmitsBody(t *testing.T) {
	out := renderTemplate("{{#if flag}}shown{{/if}}", map[string]any{"flag": false})
	assert.Equal(t, "", out)
}

func TestRenderTemplate_UnbalancedConditionalLeftVerbatim(t *testing.T) {
	in := "{{#if flag}}shown"
	out := renderTemplate(in, map[string]any{"flag": true})
	assert.Equal(t, in, out)
}
