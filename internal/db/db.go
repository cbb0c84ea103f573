// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db // import "github.com/toeirei/lingo/internal/db"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported relational providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderMySQL    = "mysql"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// ProviderFromDSN infers the provider from the shape of a connection string.
// URLs with a postgres scheme or libpq key/value strings select postgres,
// go-sql-driver style "user:pass@tcp(host)/db" strings select mysql, and
// everything else is treated as a SQLite path or URI.
func ProviderFromDSN(dsn string) string {
	d := strings.TrimSpace(strings.ToLower(dsn))
	switch {
	case strings.HasPrefix(d, "postgres://"), strings.HasPrefix(d, "postgresql://"):
		return ProviderPostgres
	case strings.Contains(d, "host=") && strings.Contains(d, "dbname="):
		return ProviderPostgres
	case strings.HasPrefix(d, "mysql://"), strings.Contains(d, "@tcp("), strings.Contains(d, "@unix("):
		return ProviderMySQL
	default:
		return ProviderSQLite
	}
}

// NormalizeProvider maps accepted aliases to the canonical provider name.
func NormalizeProvider(provider string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "sqlite", "sqlite3":
		return ProviderSQLite, nil
	case "postgres", "postgresql", "pgx":
		return ProviderPostgres, nil
	case "mysql", "mariadb":
		return ProviderMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database provider: '%s'", provider)
	}
}

func driverName(provider string) string {
	// The pgx stdlib registers driver name "pgx".
	if provider == ProviderPostgres {
		return "pgx"
	}
	return provider
}

func isMemorySQLite(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// Open opens the database for provider (empty means infer from dsn),
// configures the connection pool and returns a Store. Migrations are not run.
func Open(ctx context.Context, provider, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty connection string")
	}
	if strings.TrimSpace(provider) == "" {
		provider = ProviderFromDSN(dsn)
	}
	provider, err := NormalizeProvider(provider)
	if err != nil {
		return nil, err
	}
	if provider == ProviderMySQL {
		dsn = strings.TrimPrefix(dsn, "mysql://")
		// DATETIME columns scan into time.Time only with parseTime.
		if !strings.Contains(dsn, "parseTime=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "parseTime=true"
		}
	}

	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName(provider), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pool defaults are conservative for small deployments; LINGO_DB_*
	// environment variables override them.
	maxOpen := envInt("LINGO_DB_MAX_OPEN_CONNS", 25)
	maxIdle := envInt("LINGO_DB_MAX_IDLE_CONNS", 25)
	connMax := time.Duration(envInt("LINGO_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second
	connIdle := time.Duration(envInt("LINGO_DB_CONN_MAX_IDLE_SECONDS", 60)) * time.Second

	// An in-memory SQLite database exists per connection; a second
	// connection would see an empty schema.
	if provider == ProviderSQLite && isMemorySQLite(dsn) {
		maxOpen, maxIdle = 1, 1
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	sqlDB.SetConnMaxIdleTime(connIdle)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", provider, err)
	}
	dbLogf("db: opened %s driver in %s (conn max open=%d, idle=%s, maxLifetime=%s)", driverName(provider), time.Since(start), maxOpen, connIdle, connMax)

	return &Store{
		sqlDB:    sqlDB,
		bun:      createBunDB(sqlDB, provider),
		provider: provider,
	}, nil
}

// createBunDB constructs a *bun.DB for the provider's dialect.
func createBunDB(sqlDB *sql.DB, provider string) *bun.DB {
	switch provider {
	case ProviderPostgres:
		return bun.NewDB(sqlDB, pgdialect.New())
	case ProviderMySQL:
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}
