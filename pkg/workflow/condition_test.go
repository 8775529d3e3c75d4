package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentrt/runtime/pkg/config"
)

func TestEvaluateCondition_Operators(t *testing.T) {
	vars := map[string]any{"count": 5.0, "name": "hello world", "empty": ""}

	cases := []struct {
		name string
		cond config.Condition
		want bool
	}{
		{"eq true", config.Condition{Variable: "count", Operator: "eq", Value: 5.0}, true},
		{"ne true", config.Condition{Variable: "count", Operator: "ne", Value: 6.0}, true},
		{"gt true", config.Condition{Variable: "count", Operator: "gt", Value: 1.0}, true},
		{"lt false", config.Condition{Variable: "count", Operator: "lt", Value: 1.0}, false},
		{"contains", config.Condition{Variable: "name", Operator: "contains", Value: "world"}, true},
		{"not_contains", config.Condition{Variable: "name", Operator: "not_contains", Value: "xyz"}, true},
		{"is_empty true", config.Condition{Variable: "empty", Operator: "is_empty"}, true},
		{"is_not_empty false", config.Condition{Variable: "empty", Operator: "is_not_empty"}, false},
		{"matches", config.Condition{Variable: "name", Operator: "matches", Value: "^hello"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, evaluateCondition(tc.cond, vars))
		})
	}
}

func TestEvaluateCondition_AndOrConditions(t *testing.T) {
	vars := map[string]any{"a": 1.0, "b": 2.0, "c": 3.0}

	cond := config.Condition{
		Variable: "a", Operator: "eq", Value: 1.0,
		AndConditions: []config.Condition{{Variable: "b", Operator: "eq", Value: 2.0}},
		OrConditions:  []config.Condition{{Variable: "c", Operator: "eq", Value: 99.0}, {Variable: "c", Operator: "eq", Value: 3.0}},
	}
	assert.True(t, evaluateCondition(cond, vars))

	failing := config.Condition{
		Variable: "a", Operator: "eq", Value: 1.0,
		AndConditions: []config.Condition{{Variable: "b", Operator: "eq", Value: 999.0}},
	}
	assert.False(t, evaluateCondition(failing, vars))
}
