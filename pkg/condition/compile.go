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
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/condgate/pkg/errors"
)

// programCache memoizes the validate+compile step per unique condition text.
// Compiled programs are variable-independent, so one entry serves every
// evaluation of that condition regardless of context.
type programCache struct {
	programs *lruCache[*vm.Program]
}

func newProgramCache(maxSize int) *programCache {
	return &programCache{programs: newLRU[*vm.Program](maxSize)}
}

// getOrCompile returns the compiled program for the condition, validating and
// compiling on a miss. Validation strictly precedes compilation; an invalid
// condition is never compiled, and its error is never cached.
//
// Compilation happens outside the cache lock. Two goroutines racing on the
// same uncached condition may both compile it; the last store wins and both
// programs are equivalent, so the cache stays consistent.
func (c *programCache) getOrCompile(condition string) (*vm.Program, error) {
	key := strings.TrimSpace(condition)

	if prog, ok := c.programs.get(key); ok {
		return prog, nil
	}

	if _, err := Validate(key); err != nil {
		return nil, err
	}

	prog, err := expr.Compile(key, compileOptions()...)
	if err != nil {
		// Validation passed but the compiler refused; treat as malformed.
		return nil, &errors.SyntaxError{Expr: key, Cause: err}
	}

	c.programs.put(key, prog)
	return prog, nil
}

// size returns the number of cached programs.
func (c *programCache) size() int {
	return c.programs.len()
}
