// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"
)

// Maintain performs engine-specific housekeeping: expired sessions are purged
// everywhere, then SQLite runs PRAGMA optimize, VACUUM and a WAL checkpoint,
// Postgres runs VACUUM ANALYZE and MySQL optimizes the identity tables.
func (s *Store) Maintain(ctx context.Context) error {
	if _, err := s.PurgeExpiredSessions(ctx, time.Now()); err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}

	switch s.provider {
	case ProviderSQLite:
		// optimize is not useful for every build (e.g. in-memory); ignore errors.
		if _, err := s.sqlDB.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			dbLogf("db: sqlite optimize failed (ignored): %v", err)
		}
		if _, err := s.sqlDB.ExecContext(ctx, "VACUUM;"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		_, _ = s.sqlDB.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
		var res string
		if err := s.sqlDB.QueryRowContext(ctx, "PRAGMA integrity_check;").Scan(&res); err == nil && res != "ok" {
			return fmt.Errorf("sqlite integrity_check failed: %s", res)
		}
	case ProviderPostgres:
		if _, err := s.sqlDB.ExecContext(ctx, "VACUUM ANALYZE;"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case ProviderMySQL:
		var lastErr error
		for _, table := range []string{"users", "user_tokens", "user_sessions"} {
			if _, err := s.sqlDB.ExecContext(ctx, fmt.Sprintf("OPTIMIZE TABLE %s", table)); err != nil {
				dbLogf("db: mysql optimize table %s failed: %v", table, err)
				lastErr = err
			}
		}
		if lastErr != nil {
			return fmt.Errorf("mysql optimize encountered errors: %w", lastErr)
		}
	default:
		return fmt.Errorf("unsupported db type for maintenance: %s", s.provider)
	}
	return nil
}
