package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// applyTransform applies one whitelisted transform expression to value
// (§4.1 "Transform vocabulary"). Unknown transforms pass the value
// through unchanged.
func applyTransform(expr string, value any) any {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return value
	}
	name, arg, hasArg := parseTransformCall(expr)

	switch name {
	case "upper":
		return strings.ToUpper(asString(value))
	case "lower":
		return strings.ToLower(asString(value))
	case "strip":
		return strings.TrimSpace(asString(value))
	case "json.loads":
		var parsed any
		if err := json.Unmarshal([]byte(asString(value)), &parsed); err != nil {
			return value
		}
		return parsed
	case "json.dumps":
		encoded, err := json.Marshal(value)
		if err != nil {
			return value
		}
		return string(encoded)
	case "str":
		return asString(value)
	case "int":
		n, err := strconv.Atoi(strings.TrimSpace(asString(value)))
		if err != nil {
			return value
		}
		return n
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(asString(value)), 64)
		if err != nil {
			return value
		}
		return f
	case "bool":
		b, err := strconv.ParseBool(strings.TrimSpace(asString(value)))
		if err != nil {
			return value
		}
		return b
	case "split":
		sep := ","
		if hasArg {
			sep = arg
		}
		return strings.Split(asString(value), sep)
	case "join":
		sep := ","
		if hasArg {
			sep = arg
		}
		items, ok := value.([]any)
		if !ok {
			return value
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = asString(item)
		}
		return strings.Join(parts, sep)
	default:
		return value
	}
}

// parseTransformCall lexes a "name(...)" or "name('arg')" call, pulling
// at most one literal string argument (§4.1 "lexed from split('…')
// form").
func parseTransformCall(expr string) (name, arg string, hasArg bool) {
	open := strings.Index(expr, "(")
	closeIdx := strings.LastIndex(expr, ")")
	if open == -1 || closeIdx == -1 || closeIdx < open {
		return expr, "", false
	}
	name = strings.TrimSpace(expr[:open])
	inner := strings.TrimSpace(expr[open+1 : closeIdx])
	if inner == "" {
		return name, "", false
	}
	inner = strings.Trim(inner, `'"`)
	return name, inner, true
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return stringify(value)
	}
}
