// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"fmt"
)

// SyntaxError represents a condition that does not parse as a single expression.
// Use this for malformed expression text; it is recoverable and surfaced to the
// caller as an evaluation failure.
type SyntaxError struct {
	// Expr is the condition text that failed to parse
	Expr string

	// Cause is the underlying parser error
	Cause error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in condition %q: %v", e.Expr, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// SecurityViolation represents a condition that parses but contains a construct
// outside the allow-list. It is fatal for that expression only and indicates
// either malicious input or an incomplete allow-list; the expression is never
// executed.
type SecurityViolation struct {
	// Expr is the condition text that was rejected
	Expr string

	// Construct names the disallowed syntax construct (e.g., "MemberNode",
	// `call to "open"`)
	Construct string
}

// Error implements the error interface.
func (e *SecurityViolation) Error() string {
	return fmt.Sprintf("condition %q rejected: disallowed construct %s", e.Expr, e.Construct)
}

// EvalError represents a runtime failure while executing a validated condition
// against the given variables (e.g., comparing incompatible types). It is
// recoverable and reported to the caller.
type EvalError struct {
	// Expr is the condition text that failed at runtime
	Expr string

	// Cause is the underlying runtime error
	Cause error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation of condition %q failed: %v", e.Expr, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *EvalError) Unwrap() error {
	return e.Cause
}

// CacheBackendError represents a shared cache tier failure (unreachable
// backend, timeout). It is never surfaced to evaluation callers; the engine
// degrades to local-only operation and logs at warning level.
type CacheBackendError struct {
	// Op is the backend operation that failed ("get", "set", "close")
	Op string

	// Cause is the underlying backend error
	Cause error
}

// Error implements the error interface.
func (e *CacheBackendError) Error() string {
	return fmt.Sprintf("shared cache %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CacheBackendError) Unwrap() error {
	return e.Cause
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "listen_addr")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
