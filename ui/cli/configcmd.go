// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toeirei/lingo/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter lingo.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if _, err := cfg.ConnectionString(config.DefaultConnectionName); err != nil {
				cfg.ConnectionStrings = map[string]string{config.DefaultConnectionName: "./lingo.db"}
			}
			force, _ := cmd.Flags().GetBool("force")
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				system, _ := cmd.Flags().GetBool("system")
				if path, err = config.GetConfigPath(system); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteConfigFileTo(&cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool("system", false, "Write the system-wide file instead of the user file")
	initCmd.Flags().String("path", "", "Write to this path")
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the user and system configuration paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, system := range []bool{false, true} {
				p, err := config.GetConfigPath(system)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
