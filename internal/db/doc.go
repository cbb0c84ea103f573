// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db is the storage context shared by the application and the
// identity subsystem.
//
// A single Store wraps a long-lived *bun.DB. The relational provider is
// chosen from configuration (or inferred from the connection string) and
// maps to a database/sql driver and a Bun dialect:
//
//   - sqlite:   modernc.org/sqlite, sqlitedialect
//   - postgres: github.com/jackc/pgx/v5/stdlib ("pgx"), pgdialect
//   - mysql:    github.com/go-sql-driver/mysql, mysqldialect
//
// Schema changes ship as embedded SQL files under migrations/<provider>/ and
// are tracked in schema_migrations. Open never migrates on its own; callers
// run Store.Migrate explicitly (the migrate command, the development
// migrations endpoint, or database.migrateonstart).
//
// Testing notes
//   - Prefer Open(ctx, "sqlite", "file:<name>?mode=memory&cache=shared") plus
//     Migrate in tests that need real DB semantics.
package db
