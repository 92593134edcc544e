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

// Package serve runs the condition evaluation daemon in the foreground.
package serve

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/condgate/internal/config"
	"github.com/tombee/condgate/internal/daemon"
	"github.com/tombee/condgate/internal/log"
)

// NewCommand creates the serve command.
func NewCommand(version, commit, buildDate string) *cobra.Command {
	var (
		configPath  string
		listen      string
		sharedCache string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation daemon",
		Long: `Run the HTTP evaluation daemon in the foreground until interrupted.

Configuration is read from the file given by --config, overridden by
CONDGATE_* environment variables and then by command-line flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(log.FromEnv())
			slog.SetDefault(logger)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}
			if sharedCache != "" {
				cfg.Cache.SharedPath = sharedCache
			}

			d, err := daemon.New(cmd.Context(), cfg, daemon.Options{
				Version:    version,
				Commit:     commit,
				BuildDate:  buildDate,
				ConfigPath: configPath,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return d.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (host:port)")
	cmd.Flags().StringVar(&sharedCache, "shared-cache", "", "Path to the shared result cache database")

	return cmd
}
