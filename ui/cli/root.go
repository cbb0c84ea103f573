// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/toeirei/lingo/internal/app"
	"github.com/toeirei/lingo/internal/config"
	"github.com/toeirei/lingo/internal/db"
	"github.com/toeirei/lingo/internal/logging"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

const modulePath = "github.com/toeirei/lingo"

// Execute runs the CLI entrypoint. main.go calls it and handles the exit.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree. Tests call it for isolation.
func NewRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "lingo",
		Short: "Lingo is a localized web application with accounts.",
		Long: `Lingo serves a server-rendered web application in English and French
with database-backed accounts, email confirmation and per-culture views.

Running without a subcommand starts the web server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logging.SetDebug(true)
				db.SetDebug(true)
			}
			return nil
		},
		RunE: runServe,
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (including SQL)")
	cmd.PersistentFlags().String("config", "", "config file (default: lingo.yaml in the user, system or current directory)")
	cmd.PersistentFlags().String("environment", "", "Environment name (Development, Staging, Production)")
	cmd.PersistentFlags().String("connectionstrings.defaultconnection", "", "Database connection string")
	cmd.PersistentFlags().String("database.provider", "", "Database provider (sqlite, postgres, mysql); inferred when empty")
	cmd.PersistentFlags().String("logging.level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newMaintainCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newUsersCmd(),
		newRoutesCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// getConfigPathFromCli returns the --config path when one was given.
func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// loadConfig reads the layered configuration for cmd. Flags left unset
// fall back to the file, the environment and the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), path)
	if err != nil {
		return cfg, fmt.Errorf("error loading config: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// buildApp loads the configuration and builds the application.
func buildApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.NewBuilder(cfg).Build(cmd.Context())
}

// openStore loads the configuration and opens the storage context only.
func openStore(ctx context.Context, cmd *cobra.Command) (*db.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.ConnectionString(config.DefaultConnectionName)
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, cfg.Database.Provider, dsn)
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. A nil info reads the runtime build info.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module among the dependencies.
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), compositeVersion())
		},
	}
}
