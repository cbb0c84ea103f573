// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the identity records shared by the storage and
// identity layers.
package model

import (
	"fmt"
	"time"
)

// User is an application account.
type User struct {
	ID                 string
	UserName           string
	NormalizedUserName string
	Email              string
	NormalizedEmail    string
	EmailConfirmed     bool
	PasswordHash       string
	SecurityStamp      string
	LockoutEnabled     bool
	LockoutEnd         *time.Time
	AccessFailedCount  int
	CreatedAt          time.Time
}

// String returns a log-friendly representation without secrets.
func (u User) String() string {
	return fmt.Sprintf("%s <%s>", u.ID, u.Email)
}

// IsLockedOut reports whether the lockout window is still open at now.
func (u User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// Session is a server-side sign-in session. ID holds the hash of the cookie
// token, never the token itself.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenPurpose distinguishes single-use user tokens.
type TokenPurpose string

const (
	PurposeEmailConfirmation TokenPurpose = "EmailConfirmation"
	PurposePasswordReset     TokenPurpose = "ResetPassword"
)

// UserToken is a hashed single-use token bound to a user and purpose.
type UserToken struct {
	UserID    string
	Purpose   TokenPurpose
	TokenHash string
	ExpiresAt time.Time
}
