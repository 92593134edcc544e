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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/condgate/internal/commands/eval"
	"github.com/tombee/condgate/internal/commands/serve"
	versioncmd "github.com/tombee/condgate/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "condgate",
		Short: "Sandboxed condition evaluation",
		Long: `condgate evaluates boolean condition expressions against a variable
context inside a sandbox that permits only a closed set of safe operations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		eval.NewCommand(),
		serve.NewCommand(version, commit, buildDate),
		versioncmd.NewCommand(version, commit, buildDate),
	)

	if err := root.Execute(); err != nil {
		if eval.IsFalseResult(err) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
