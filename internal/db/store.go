// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/toeirei/lingo/internal/model"
	"github.com/uptrace/bun"
)

// Store is the Bun-backed storage context. It is safe for concurrent use;
// pooling and transaction scope belong to database/sql.
type Store struct {
	sqlDB    *sql.DB
	bun      *bun.DB
	provider string
}

// BunDB exposes the underlying Bun handle for ad-hoc queries.
func (s *Store) BunDB() *bun.DB { return s.bun }

// Provider returns the canonical provider name.
func (s *Store) Provider() string { return s.provider }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.sqlDB.PingContext(ctx) }

// Close releases the connection pool.
func (s *Store) Close() error { return s.bun.Close() }

type userRow struct {
	bun.BaseModel      `bun:"table:users"`
	ID                 string     `bun:"id,pk"`
	UserName           string     `bun:"user_name"`
	NormalizedUserName string     `bun:"normalized_user_name"`
	Email              string     `bun:"email"`
	NormalizedEmail    string     `bun:"normalized_email"`
	EmailConfirmed     bool       `bun:"email_confirmed"`
	PasswordHash       string     `bun:"password_hash"`
	SecurityStamp      string     `bun:"security_stamp"`
	LockoutEnabled     bool       `bun:"lockout_enabled"`
	LockoutEnd         *time.Time `bun:"lockout_end"`
	AccessFailedCount  int        `bun:"access_failed_count"`
	CreatedAt          time.Time  `bun:"created_at"`
}

func userRowFromModel(u *model.User) *userRow {
	return &userRow{
		ID:                 u.ID,
		UserName:           u.UserName,
		NormalizedUserName: u.NormalizedUserName,
		Email:              u.Email,
		NormalizedEmail:    u.NormalizedEmail,
		EmailConfirmed:     u.EmailConfirmed,
		PasswordHash:       u.PasswordHash,
		SecurityStamp:      u.SecurityStamp,
		LockoutEnabled:     u.LockoutEnabled,
		LockoutEnd:         u.LockoutEnd,
		AccessFailedCount:  u.AccessFailedCount,
		CreatedAt:          u.CreatedAt,
	}
}

func (r *userRow) toModel() *model.User {
	var end *time.Time
	if r.LockoutEnd != nil {
		t := r.LockoutEnd.UTC()
		end = &t
	}
	return &model.User{
		ID:                 r.ID,
		UserName:           r.UserName,
		NormalizedUserName: r.NormalizedUserName,
		Email:              r.Email,
		NormalizedEmail:    r.NormalizedEmail,
		EmailConfirmed:     r.EmailConfirmed,
		PasswordHash:       r.PasswordHash,
		SecurityStamp:      r.SecurityStamp,
		LockoutEnabled:     r.LockoutEnabled,
		LockoutEnd:         end,
		AccessFailedCount:  r.AccessFailedCount,
		CreatedAt:          r.CreatedAt.UTC(),
	}
}

type userTokenRow struct {
	bun.BaseModel `bun:"table:user_tokens"`
	UserID        string    `bun:"user_id,pk"`
	Purpose       string    `bun:"purpose,pk"`
	TokenHash     string    `bun:"token_hash"`
	ExpiresAt     time.Time `bun:"expires_at"`
}

type userSessionRow struct {
	bun.BaseModel `bun:"table:user_sessions"`
	ID            string    `bun:"id,pk"`
	UserID        string    `bun:"user_id"`
	CreatedAt     time.Time `bun:"created_at"`
	ExpiresAt     time.Time `bun:"expires_at"`
}

func (r *userSessionRow) toModel() *model.Session {
	return &model.Session{
		ID:        r.ID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt.UTC(),
		ExpiresAt: r.ExpiresAt.UTC(),
	}
}
