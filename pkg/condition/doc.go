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

// Package condition provides sandboxed evaluation of boolean condition
// expressions against caller-supplied variables.
//
// It uses the expr-lang/expr library to parse and execute expressions such as
//
//	target_os == 'android' and not checkout_ios
//	"mac" in target_os_list
//	len(apply_patches) > 0
//
// Before anything is executed, the parse tree is checked against a closed
// allow-list of syntax constructs: boolean logic, comparisons, membership,
// simple arithmetic, names, literals, and a small set of whitelisted builtin
// functions. Attribute access, indexing, closures, and arbitrary function
// calls are rejected. The check fails closed: any construct the allow-list
// does not name is refused.
//
// Evaluation runs against a namespace containing exactly the whitelisted
// builtins plus the caller's variables, and the raw result is coerced to a
// boolean using standard truthiness rules.
//
// An Engine ties the pieces together with a compiled-program cache and a
// two-tier (local + optional shared) result cache:
//
//	eng := condition.NewEngine(condition.Config{})
//	out, err := eng.Evaluate(ctx, `target_os == 'android'`, map[string]any{"target_os": "android"})
package condition
