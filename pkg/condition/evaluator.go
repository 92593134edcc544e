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

package condition

import (
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/condgate/pkg/errors"
)

// safeNames returns the fixed set of names reachable from inside a condition
// beyond the caller's variables: truthiness/conversion helpers plus the
// Python-style spellings of the boolean and null constants that legacy
// condition strings use. Nothing else (no modules, host functions, or
// process state) is ever placed in the namespace.
func safeNames() map[string]any {
	return map[string]any{
		"str": func(v any) string {
			if v == nil {
				return ""
			}
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		},
		"bool":  Truthy,
		"True":  true,
		"False": false,
		"None":  nil,
		"null":  nil,
	}
}

// evaluate runs a validated, compiled condition against the caller's
// variables. The execution namespace is a fresh map on every call: the
// whitelisted safe names first, then the variables merged over them, so the
// caller's map is never mutated and nothing leaks between evaluations.
func evaluate(program *vm.Program, condition string, vars map[string]any) (bool, error) {
	env := safeNames()
	for k, v := range vars {
		env[k] = v
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, &errors.EvalError{Expr: condition, Cause: err}
	}
	return Truthy(out), nil
}

// compileOptions returns the expr options used to lower a validated tree.
// AllowUndefinedVariables keeps compilation independent of any particular
// variable set: a compiled program is valid for every variable context, since
// names are resolved only at run time.
func compileOptions() []expr.Option {
	return []expr.Option{
		expr.Env(safeNames()),
		expr.AllowUndefinedVariables(),
	}
}

// Truthy coerces a raw evaluation result to a boolean using standard
// truthiness: nil, numeric zero, empty strings, and empty collections are
// false; booleans pass through unchanged; everything else is true.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}
