package condition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/condgate/pkg/errors"
)

func TestValidate_AllowedConditions(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "identifier", expr: "checkout_linux"},
		{name: "string equality", expr: "target_os == 'android'"},
		{name: "boolean conjunction", expr: "checkout_android and not checkout_ios"},
		{name: "symbolic operators", expr: "a && b || !c"},
		{name: "ordering", expr: "major >= 2 and minor < 10"},
		{name: "membership in literal list", expr: "'mac' in ['mac', 'linux', 'win']"},
		{name: "negated membership", expr: "'ios' not in target_os_list"},
		{name: "arithmetic", expr: "count * 2 + 1 > threshold - 5"},
		{name: "modulo", expr: "shard % 4 == 0"},
		{name: "len builtin", expr: "len(target_os) > 0"},
		{name: "int builtin", expr: "int(level) >= 3"},
		{name: "string builtin", expr: "string(code) == '200'"},
		{name: "str helper", expr: "str(flag) == 'true'"},
		{name: "bool helper", expr: "bool(custom_vars)"},
		{name: "python constants", expr: "checkout_src_internal == True and ladybird == False"},
		{name: "none comparison", expr: "value != None"},
		{name: "map literal membership", expr: "'key' in {'key': 1}"},
		{name: "nested parentheses", expr: "(a or b) and (c or (d and e))"},
		{name: "unary minus", expr: "-offset < 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Validate(tt.expr)
			require.NoError(t, err)
			assert.NotNil(t, tree)
		})
	}
}

func TestValidate_RejectedConditions(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		construct string
	}{
		{
			name:      "attribute access",
			expr:      "os.environ",
			construct: "MemberNode",
		},
		{
			name:      "method call",
			expr:      "custom_vars.get('checkout_foo', 'false')",
			construct: "call via MemberNode",
		},
		{
			name:      "method call inside builtin",
			expr:      "len(custom_vars.get('x', '')) > 0",
			construct: "call via MemberNode",
		},
		{
			name:      "indexing",
			expr:      "target_os_list[0] == 'mac'",
			construct: "MemberNode",
		},
		{
			name:      "unknown function",
			expr:      "eval('1 + 1')",
			construct: `call to "eval"`,
		},
		{
			name:      "disallowed builtin",
			expr:      "all(checks, # > 0)",
			construct: "",
		},
		{
			name:      "closure pipeline",
			expr:      "filter(xs, # > 1) != []",
			construct: "",
		},
		{
			name:      "power operator",
			expr:      "2 ** 10 > 1000",
			construct: `binary operator "**"`,
		},
		{
			name:      "regex match operator",
			expr:      "target_os matches 'and.*'",
			construct: `binary operator "matches"`,
		},
		{
			name:      "contains operator",
			expr:      "target_os contains 'droid'",
			construct: `binary operator "contains"`,
		},
		{
			name:      "conditional expression",
			expr:      "a ? b : c",
			construct: "ConditionalNode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Validate(tt.expr)
			require.Error(t, err)
			assert.Nil(t, tree)

			var violation *errors.SecurityViolation
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tt.expr, violation.Expr)
			if tt.construct != "" {
				assert.Contains(t, violation.Error(), tt.construct)
			}
		})
	}
}

func TestValidate_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "dangling operator", expr: "checkout_android and"},
		{name: "unclosed paren", expr: "(checkout_android"},
		{name: "unterminated string", expr: "target_os == 'android"},
		{name: "bare operator", expr: "=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.expr)
			require.Error(t, err)
			assert.True(t, errors.IsSyntaxError(err))
			assert.False(t, errors.IsSecurityViolation(err))
		})
	}
}

// Validation must not recurse per nesting level; a pathologically deep tree
// should be rejected or accepted without exhausting the stack.
func TestValidate_DeeplyNested(t *testing.T) {
	const depth = 10000
	expr := strings.Repeat("(", depth) + "x" + strings.Repeat(")", depth)

	// Outcome depends on the parser's own nesting limits; the point is that
	// the walk returns rather than overflowing.
	tree, err := Validate(expr)
	if err != nil {
		assert.True(t, errors.IsSyntaxError(err) || errors.IsSecurityViolation(err))
	} else {
		assert.NotNil(t, tree)
	}
}

func TestValidate_NeverExecutes(t *testing.T) {
	// A condition that would fail at run time must still validate cleanly.
	tree, err := Validate("x % 0 == 0")
	require.NoError(t, err)
	assert.NotNil(t, tree)
}
