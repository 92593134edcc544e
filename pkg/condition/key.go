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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// DeriveKey produces a stable cache key for a condition and its variables.
// Variables are serialized canonically (encoding/json writes map keys in
// sorted order at every nesting level), so insertion order never affects the
// key. A nil or empty variable map always serializes as "{}".
//
// The digest only gates a cache, not a security decision; SHA-256 keeps
// collisions practically negligible.
func DeriveKey(condition string, vars map[string]any) string {
	canonical := "{}"
	if len(vars) > 0 {
		data, err := json.Marshal(vars)
		if err != nil {
			// Non-serializable values cannot round-trip through the shared
			// tier either; fall back to a representation that still keeps
			// identical inputs on the same key.
			canonical = fmt.Sprintf("%#v", vars)
		} else {
			canonical = string(data)
		}
	}

	sum := sha256.Sum256([]byte(strings.TrimSpace(condition) + "|" + canonical))
	return hex.EncodeToString(sum[:])
}
