package eval

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariables(t *testing.T) {
	tests := []struct {
		name     string
		pairs    []string
		varsJSON string
		want     map[string]any
		wantErr  bool
	}{
		{
			name:  "json values",
			pairs: []string{"count=3", "enabled=true", "ratio=0.5"},
			want:  map[string]any{"count": float64(3), "enabled": true, "ratio": 0.5},
		},
		{
			name:  "bare strings fall through",
			pairs: []string{"target_os=android"},
			want:  map[string]any{"target_os": "android"},
		},
		{
			name:  "quoted string stays string",
			pairs: []string{`name="42"`},
			want:  map[string]any{"name": "42"},
		},
		{
			name:  "value containing equals",
			pairs: []string{"expr=a=b"},
			want:  map[string]any{"expr": "a=b"},
		},
		{
			name:     "json object",
			varsJSON: `{"target_os_list": ["mac", "linux"]}`,
			want:     map[string]any{"target_os_list": []any{"mac", "linux"}},
		},
		{
			name:     "var flag overrides json object",
			pairs:    []string{"x=2"},
			varsJSON: `{"x": 1, "y": 3}`,
			want:     map[string]any{"x": float64(2), "y": float64(3)},
		},
		{
			name:    "missing equals",
			pairs:   []string{"novalue"},
			wantErr: true,
		},
		{
			name:     "malformed json object",
			varsJSON: "{not json",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVariables(tt.pairs, tt.varsJSON)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_TrueCondition(t *testing.T) {
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"x > 0", "--var", "x=1"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "true")
}

func TestCommand_FalseConditionExitsNonZero(t *testing.T) {
	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"x > 0", "--var", "x=-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, IsFalseResult(err))
}

func TestCommand_JSONOutput(t *testing.T) {
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"target_os == 'android'", "--var", "target_os=android", "--json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"result":true`)
}

func TestCommand_InvalidConditionFails(t *testing.T) {
	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"custom_vars.get('x')"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.False(t, IsFalseResult(err))
}
