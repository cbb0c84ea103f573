// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/lingo/internal/backup"
	"github.com/toeirei/lingo/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
				pending, err := store.PendingMigrations(cmd.Context())
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
				}
				for _, p := range pending {
					fmt.Fprintf(cmd.OutOrStdout(), "pending: %s\n", p)
				}
				return nil
			}
			applied, err := store.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied: %s\n", a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied.\n", len(applied))
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "List pending migrations without applying them")
	return cmd
}

func newMaintainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db-maintain",
		Short: "Run database maintenance (VACUUM/OPTIMIZE) for the configured DB",
		Long:  `Purges expired sessions, then runs engine-specific maintenance (VACUUM, OPTIMIZE TABLE, PRAGMA optimize).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			store, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			start := time.Now()
			if err := store.Maintain(ctx); err != nil {
				return fmt.Errorf("maintenance failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Maintenance completed in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 0, "Abort maintenance after this long (0 means no timeout)")
	return cmd
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Create a compressed (zstd) JSON backup of the accounts",
		Long: `Writes every account to a Zstandard-compressed JSON file. Sessions and
confirmation tokens are not included. The default name carries today's date.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := fmt.Sprintf("lingo-backup-%s.json.zst", time.Now().Format("2006-01-02"))
			if len(args) == 1 {
				out = args[0]
			}
			store, err := openMigratedStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("could not create backup file: %w", err)
			}
			n, err := backup.Write(cmd.Context(), store, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			logging.Infof("backup written to %s", out)
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d account(s) to %s\n", n, out)
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Restore accounts from a compressed JSON backup",
		Long: `Imports accounts from a backup made with 'lingo backup'. Existing accounts
are kept unless --overwrite is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite, _ := cmd.Flags().GetBool("overwrite")
			store, err := openMigratedStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("could not open backup: %w", err)
			}
			defer func() { _ = f.Close() }()
			res, err := backup.Restore(cmd.Context(), store, f, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restore complete: %d created, %d updated, %d skipped\n", res.Created, res.Updated, res.Skipped)
			return nil
		},
	}
	cmd.Flags().Bool("overwrite", false, "Replace accounts that already exist")
	return cmd
}
