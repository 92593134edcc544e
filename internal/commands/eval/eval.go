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

// Package eval implements one-shot condition evaluation from the command
// line, without a running daemon.
package eval

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/condgate/pkg/condition"
)

// NewCommand creates the eval command.
func NewCommand() *cobra.Command {
	var (
		vars     []string
		varsJSON string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "eval <condition>",
		Short: "Evaluate a condition expression locally",
		Long: `Evaluate a boolean condition expression against a set of variables.

Variables are supplied as repeated --var key=value flags (values are parsed
as JSON where possible, otherwise taken as strings) or as one JSON object
via --vars-json.

The exit code reflects the result: 0 when the condition holds, 1 when it
does not, 2 when evaluation fails.`,
		Example: `  condgate eval "target_os == 'android' and not checkout_ios" \
      --var target_os=android --var checkout_ios=false

  condgate eval '"mac" in target_os_list' --vars-json '{"target_os_list": ["mac", "linux"]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := parseVariables(vars, varsJSON)
			if err != nil {
				return err
			}

			eng := condition.NewEngine(condition.Config{})
			defer eng.Close()

			out, err := eng.Evaluate(cmd.Context(), args[0], variables)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.Marshal(map[string]any{
					"result":          out.Result,
					"cached":          out.Cached,
					"evaluation_time": out.Duration.Seconds(),
				})
				if err != nil {
					return err
				}
				cmd.Println(string(data))
			} else {
				cmd.Println(out.Result)
			}

			if !out.Result {
				return errFalse
			}
			return nil
		},
	}

	registerFlags(cmd.Flags(), &vars, &varsJSON, &asJSON)
	return cmd
}

// errFalse signals a condition that evaluated to false, mapped to exit code 1.
var errFalse = &falseError{}

type falseError struct{}

func (*falseError) Error() string { return "condition evaluated to false" }

// IsFalseResult reports whether err is the sentinel for a false result.
func IsFalseResult(err error) bool {
	_, ok := err.(*falseError)
	return ok
}

func registerFlags(fs *pflag.FlagSet, vars *[]string, varsJSON *string, asJSON *bool) {
	fs.StringArrayVar(vars, "var", nil, "Variable as key=value (repeatable)")
	fs.StringVar(varsJSON, "vars-json", "", "Variables as a JSON object")
	fs.BoolVar(asJSON, "json", false, "Output the result as JSON")
}

// parseVariables merges --vars-json with --var flags; --var wins on conflict.
func parseVariables(pairs []string, varsJSON string) (map[string]any, error) {
	variables := make(map[string]any)

	if varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &variables); err != nil {
			return nil, fmt.Errorf("invalid --vars-json: %w", err)
		}
	}

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			// Not valid JSON; treat as a plain string.
			value = raw
		}
		variables[key] = value
	}

	return variables, nil
}
