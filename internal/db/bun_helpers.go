// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// rawProvider is satisfied by both *bun.DB and bun.Tx.
type rawProvider interface {
	NewRaw(query string, args ...interface{}) *bun.RawQuery
}

// execRaw executes a raw statement; Bun rewrites ? placeholders for the
// active dialect.
func execRaw(ctx context.Context, exec rawProvider, query string, args ...interface{}) (sql.Result, error) {
	return exec.NewRaw(query, args...).Exec(ctx)
}

// queryRawInto runs a raw query and scans the result into dest.
func queryRawInto(ctx context.Context, exec rawProvider, dest interface{}, query string, args ...interface{}) error {
	return exec.NewRaw(query, args...).Scan(ctx, dest)
}
