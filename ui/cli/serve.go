// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toeirei/lingo/internal/logging"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Builds the application from the configuration and serves HTTP (and HTTPS
when server.certfile and server.keyfile are set) until interrupted.`,
		RunE: runServe,
	}
	cmd.Flags().String("server.listen", "", "HTTP listen address (default :5000)")
	cmd.Flags().Bool("database.migrateonstart", false, "Apply pending migrations before serving")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Warnf("close database: %v", err)
		}
	}()
	logging.Infof("hosting environment: %s", a.Config.Environment)
	return a.Run(ctx)
}
