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

// Package errors defines the typed error taxonomy for condition evaluation.
//
// Evaluation failures are always returned as one of the types in this package
// so callers can distinguish "condition evaluated to false" from "condition
// failed to evaluate", and can tell a malformed condition (SyntaxError) from a
// malicious one (SecurityViolation) and from a runtime type error (EvalError).
package errors

import (
	"errors"
	"fmt"
)

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps the given error with formatted context.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target type,
// and if one is found, sets target to that error value and returns true.
// This is a convenience wrapper around errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New from the standard library.
func New(message string) error {
	return errors.New(message)
}

// IsSyntaxError reports whether err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var target *SyntaxError
	return errors.As(err, &target)
}

// IsSecurityViolation reports whether err is or wraps a *SecurityViolation.
func IsSecurityViolation(err error) bool {
	var target *SecurityViolation
	return errors.As(err, &target)
}

// IsEvalError reports whether err is or wraps an *EvalError.
func IsEvalError(err error) bool {
	var target *EvalError
	return errors.As(err, &target)
}

// IsCacheBackendError reports whether err is or wraps a *CacheBackendError.
func IsCacheBackendError(err error) bool {
	var target *CacheBackendError
	return errors.As(err, &target)
}

// Kind returns a short machine-readable name for the error's taxonomy class:
// "syntax", "security", "eval", "cache", or "internal" for anything else.
func Kind(err error) string {
	switch {
	case IsSyntaxError(err):
		return "syntax"
	case IsSecurityViolation(err):
		return "security"
	case IsEvalError(err):
		return "eval"
	case IsCacheBackendError(err):
		return "cache"
	default:
		return "internal"
	}
}
