package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "syntax error",
			err:  &SyntaxError{Expr: "a and", Cause: New("unexpected end")},
			want: `syntax error in condition "a and": unexpected end`,
		},
		{
			name: "security violation",
			err:  &SecurityViolation{Expr: "os.environ", Construct: "MemberNode"},
			want: `condition "os.environ" rejected: disallowed construct MemberNode`,
		},
		{
			name: "eval error",
			err:  &EvalError{Expr: "x + y", Cause: New("invalid operation")},
			want: `evaluation of condition "x + y" failed: invalid operation`,
		},
		{
			name: "cache backend error",
			err:  &CacheBackendError{Op: "get", Cause: New("timeout")},
			want: "shared cache get failed: timeout",
		},
		{
			name: "config error with key",
			err:  &ConfigError{Key: "listen", Reason: "invalid address"},
			want: "config error at listen: invalid address",
		},
		{
			name: "config error without key",
			err:  &ConfigError{Reason: "file unreadable"},
			want: "config error: file unreadable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := New("root cause")

	for _, err := range []error{
		&SyntaxError{Expr: "x", Cause: cause},
		&EvalError{Expr: "x", Cause: cause},
		&CacheBackendError{Op: "set", Cause: cause},
		&ConfigError{Key: "k", Reason: "bad", Cause: cause},
	} {
		assert.True(t, stderrors.Is(err, cause), "%T should unwrap to its cause", err)
	}
}

func TestPredicates(t *testing.T) {
	syntax := &SyntaxError{Expr: "x"}
	security := &SecurityViolation{Expr: "x", Construct: "MemberNode"}
	eval := &EvalError{Expr: "x"}
	cache := &CacheBackendError{Op: "get"}

	assert.True(t, IsSyntaxError(syntax))
	assert.False(t, IsSyntaxError(security))

	assert.True(t, IsSecurityViolation(security))
	assert.False(t, IsSecurityViolation(eval))

	assert.True(t, IsEvalError(eval))
	assert.False(t, IsEvalError(cache))

	assert.True(t, IsCacheBackendError(cache))
	assert.False(t, IsCacheBackendError(syntax))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := &SecurityViolation{Expr: "x", Construct: "MemberNode"}
	wrapped := Wrap(inner, "while evaluating batch item 3")

	assert.True(t, IsSecurityViolation(wrapped))

	var target *SecurityViolation
	require.True(t, As(wrapped, &target))
	assert.Equal(t, "x", target.Expr)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "syntax", err: &SyntaxError{Expr: "x"}, want: "syntax"},
		{name: "security", err: &SecurityViolation{Expr: "x"}, want: "security"},
		{name: "eval", err: &EvalError{Expr: "x"}, want: "eval"},
		{name: "cache", err: &CacheBackendError{Op: "get"}, want: "cache"},
		{name: "plain error", err: New("boom"), want: "internal"},
		{name: "wrapped eval", err: Wrap(&EvalError{Expr: "x"}, "ctx"), want: "eval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
}
