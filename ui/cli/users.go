// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/lingo/internal/app"
	"github.com/toeirei/lingo/internal/db"
	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/model"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUsersAddCmd(), newUsersConfirmCmd(), newUsersListCmd())
	return cmd
}

// readPassword prompts on a terminal, otherwise reads one line from in.
func readPassword(cmd *cobra.Command, in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("could not read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// openMigratedStore opens the store and refuses to continue while
// migrations are pending.
func openMigratedStore(cmd *cobra.Command) (*db.Store, error) {
	store, err := openStore(cmd.Context(), cmd)
	if err != nil {
		return nil, err
	}
	pending, err := store.PendingMigrations(cmd.Context())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if len(pending) > 0 {
		_ = store.Close()
		return nil, fmt.Errorf("database has %d pending migration(s); run 'lingo migrate' first", len(pending))
	}
	return store, nil
}

// identityManager opens the store and wraps it with the configured policy.
func identityManager(cmd *cobra.Command) (*identity.Manager, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := openMigratedStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	return identity.NewManager(store, app.IdentityOptions(cfg.Identity), nil), func() { _ = store.Close() }, nil
}

func newUsersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create an account",
		Long: `Creates an account. The password is prompted for on a terminal or read
from the first line of standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeStore, err := identityManager(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			pw, _ := cmd.Flags().GetString("password")
			if pw == "" {
				if pw, err = readPassword(cmd, cmd.InOrStdin()); err != nil {
					return err
				}
			}
			u, err := m.Register(cmd.Context(), args[0], pw)
			if err != nil {
				var pe *identity.PasswordError
				if errors.As(err, &pe) {
					return fmt.Errorf("password rejected: %s", strings.Join(pe.Codes, ", "))
				}
				return err
			}
			if confirmed, _ := cmd.Flags().GetBool("confirmed"); confirmed {
				if err := m.SetEmailConfirmed(cmd.Context(), u); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "Password (prompted for when empty)")
	cmd.Flags().Bool("confirmed", false, "Mark the email address as confirmed")
	return cmd
}

func newUsersConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <email>",
		Short: "Mark an account's email address as confirmed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeStore, err := identityManager(cmd)
			if err != nil {
				return err
			}
			defer closeStore()
			u, err := m.FindByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := m.SetEmailConfirmed(cmd.Context(), u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Confirmed %s\n", u.Email)
			return nil
		},
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func userRows(users []model.User) [][]string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		confirmed := "no"
		if u.EmailConfirmed {
			confirmed = "yes"
		}
		rows = append(rows, []string{u.Email, confirmed, u.CreatedAt.Format("2006-01-02 15:04"), u.ID})
	}
	return rows
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openMigratedStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			users, err := store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Email", "Confirmed", "Created", "ID"}, userRows(users)))
			return nil
		},
	}
}
