// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations
var embeddedMigrations embed.FS

// Migration is one embedded schema change.
type Migration struct {
	Version string
	SQL     string
}

// Migrations returns the embedded migrations for provider in apply order.
func Migrations(provider string) ([]Migration, error) {
	dir := path.Join("migrations", provider)
	entries, err := fs.ReadDir(embeddedMigrations, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read embedded migrations (%s): %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := embeddedMigrations.ReadFile(path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		out = append(out, Migration{Version: strings.TrimSuffix(name, ".up.sql"), SQL: string(data)})
	}
	return out, nil
}

// splitStatements splits a migration file into statements on lines ending
// with a semicolon. Drivers differ on multi-statement Exec support, so each
// statement is sent separately.
func splitStatements(sql string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	for _, line := range strings.Split(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}

func (s *Store) ensureSchemaMigrationsTable(ctx context.Context) error {
	// MySQL cannot index TEXT without a length.
	ddl := `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP)`
	if s.provider == ProviderMySQL {
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(191) PRIMARY KEY, applied_at TIMESTAMP NULL)`
	}
	_, err := execRaw(ctx, s.bun, ddl)
	return err
}

func (s *Store) appliedVersions(ctx context.Context) (map[string]bool, error) {
	if err := s.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}
	var versions []string
	if err := queryRawInto(ctx, s.bun, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// PendingMigrations lists versions not yet recorded in schema_migrations.
func (s *Store) PendingMigrations(ctx context.Context) ([]string, error) {
	all, err := Migrations(s.provider)
	if err != nil {
		return nil, err
	}
	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, m := range all {
		if !applied[m.Version] {
			pending = append(pending, m.Version)
		}
	}
	return pending, nil
}

// Migrate applies pending migrations, each inside its own transaction, and
// returns the versions applied.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	start := time.Now()
	all, err := Migrations(s.provider)
	if err != nil {
		return nil, err
	}
	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, m := range all {
		if applied[m.Version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return done, err
		}
		done = append(done, m.Version)
	}
	dbLogf("db: migrations for %s completed in %s (%d applied)", s.provider, time.Since(start), len(done))
	return done, nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}
	}
	if _, err := execRaw(ctx, tx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.Version, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
	}
	return nil
}
