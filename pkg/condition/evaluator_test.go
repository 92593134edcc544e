package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "nil", value: nil, want: false},
		{name: "true", value: true, want: true},
		{name: "false", value: false, want: false},
		{name: "zero int", value: 0, want: false},
		{name: "nonzero int", value: 7, want: true},
		{name: "negative int", value: -1, want: true},
		{name: "zero float", value: 0.0, want: false},
		{name: "nonzero float", value: 0.5, want: true},
		{name: "empty string", value: "", want: false},
		{name: "nonempty string", value: "x", want: true},
		{name: "empty slice", value: []any{}, want: false},
		{name: "nonempty slice", value: []any{1}, want: true},
		{name: "empty map", value: map[string]any{}, want: false},
		{name: "nonempty map", value: map[string]any{"k": 1}, want: true},
		{name: "int64 zero", value: int64(0), want: false},
		{name: "uint nonzero", value: uint(3), want: true},
		{name: "struct value", value: struct{}{}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}

func TestEvaluate_DoesNotMutateCallerVariables(t *testing.T) {
	cache := newProgramCache(8)
	program, err := cache.getOrCompile("str(x) == '1'")
	require.NoError(t, err)

	vars := map[string]any{"x": 1}
	result, err := evaluate(program, "str(x) == '1'", vars)
	require.NoError(t, err)
	assert.True(t, result)

	// The safe names must not leak into the caller's map.
	assert.Equal(t, map[string]any{"x": 1}, vars)
}

func TestEvaluate_VariablesShadowSafeNames(t *testing.T) {
	cache := newProgramCache(8)
	program, err := cache.getOrCompile("True == 'overridden'")
	require.NoError(t, err)

	result, err := evaluate(program, "True == 'overridden'", map[string]any{"True": "overridden"})
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluate_RuntimeError(t *testing.T) {
	cache := newProgramCache(8)
	program, err := cache.getOrCompile("x + y > 0")
	require.NoError(t, err)

	_, err = evaluate(program, "x + y > 0", map[string]any{"x": "a", "y": 1})
	require.Error(t, err)
}
