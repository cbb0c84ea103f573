// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"time"

	"github.com/toeirei/lingo/internal/model"
)

// CreateSession stores a new sign-in session.
func (s *Store) CreateSession(ctx context.Context, sess model.Session) error {
	row := &userSessionRow{
		ID:        sess.ID,
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}
	if _, err := s.bun.NewInsert().Model(row).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// FindSession returns the session with the given id or ErrNotFound.
func (s *Store) FindSession(ctx context.Context, id string) (*model.Session, error) {
	var row userSessionRow
	if err := s.bun.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	return row.toModel(), nil
}

// DeleteSession removes one session. Missing sessions are not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.bun.NewDelete().Model((*userSessionRow)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// DeleteUserSessions removes every session of a user.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.bun.NewDelete().Model((*userSessionRow)(nil)).Where("user_id = ?", userID).Exec(ctx)
	return err
}

// PurgeExpiredSessions deletes sessions that expired before now and returns
// how many were removed.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.bun.NewDelete().Model((*userSessionRow)(nil)).Where("expires_at <= ?", now.UTC()).Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		dbLogf("db: purged %d expired sessions", n)
	}
	return n, nil
}
