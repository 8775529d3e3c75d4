package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentrt/runtime/pkg/config"
)

// evaluateCondition evaluates `variable op value`, ANDed with every
// and_conditions entry, then ANDed with the OR of or_conditions if any
// (§4.1 "condition").
func evaluateCondition(cond config.Condition, variables map[string]any) bool {
	actual, _ := lookupPath(cond.Variable, variables)
	result := evaluateOperator(cond.Operator, actual, cond.Value)

	for _, and := range cond.AndConditions {
		result = result && evaluateCondition(and, variables)
	}

	if len(cond.OrConditions) > 0 {
		orResult := false
		for _, or := range cond.OrConditions {
			orResult = orResult || evaluateCondition(or, variables)
		}
		result = result && orResult
	}

	return result
}

func evaluateOperator(op string, actual, expected any) bool {
	switch op {
	case "eq":
		return compareEqual(actual, expected)
	case "ne":
		return !compareEqual(actual, expected)
	case "gt":
		a, b, ok := numericPair(actual, expected)
		return ok && a > b
	case "lt":
		a, b, ok := numericPair(actual, expected)
		return ok && a < b
	case "gte":
		a, b, ok := numericPair(actual, expected)
		return ok && a >= b
	case "lte":
		a, b, ok := numericPair(actual, expected)
		return ok && a <= b
	case "contains":
		return strings.Contains(asString(actual), asString(expected))
	case "not_contains":
		return !strings.Contains(asString(actual), asString(expected))
	case "is_empty":
		return isEmptyValue(actual)
	case "is_not_empty":
		return !isEmptyValue(actual)
	case "matches":
		re, err := regexp.Compile(asString(expected))
		if err != nil {
			return false
		}
		return re.MatchString(asString(actual))
	default:
		return false
	}
}

func compareEqual(a, b any) bool {
	if af, bf, ok := numericPair(a, b); ok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func numericPair(a, b any) (float64, float64, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return af, bf, aok && bok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
