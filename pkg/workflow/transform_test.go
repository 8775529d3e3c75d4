package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyTransform_Whitelist(t *testing.T) {
	assert.Equal(t, "HELLO", applyTransform("upper()", "hello"))
	assert.Equal(t, "hello", applyTransform("lower()", "HELLO"))
	assert.Equal(t, "hi", applyTransform("strip()", "  hi  "))
	assert.Equal(t, []string{"a", "b"}, applyTransform("split(',')", "a,b"))
	assert.Equal(t, "a,b", applyTransform("join(',')", []any{"a", "b"}))
	assert.Equal(t, 42, applyTransform("int()", "42"))
	assert.Equal(t, 3.5, applyTransform("float()", "3.5"))
	assert.Equal(t, true, applyTransform("bool()", "true"))
	assert.Equal(t, "5", applyTransform("str()", 5.0))
}

func TestApplyTransform_UnknownIsPassThrough(t *testing.T) {
	assert.Equal(t, "value", applyTransform("reverse()", "value"))
}

func TestApplyTransform_JSONRoundTrip(t *testing.T) {
	loaded := applyTransform("json.loads()", `{"a":1}`)
	assert.Equal(t, map[string]any{"a": 1.0}, loaded)

	dumped := applyTransform("json.dumps()", map[string]any{"a": 1.0})
	assert.Equal(t, `{"a":1}`, dumped)
}
