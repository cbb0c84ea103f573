// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package identity

import "time"

// PasswordOptions is the password policy applied on registration.
type PasswordOptions struct {
	RequiredLength         int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
	RequiredUniqueChars    int
}

// LockoutOptions controls lockout after repeated failed sign-ins.
type LockoutOptions struct {
	AllowedForNewUsers bool
	MaxFailedAttempts  int
	Duration           time.Duration
}

// Options configures the identity subsystem.
type Options struct {
	// RequireConfirmedAccount blocks sign-in until the email is confirmed.
	RequireConfirmedAccount bool
	Password                PasswordOptions
	Lockout                 LockoutOptions
	SessionLifetime         time.Duration
	CookieName              string
	// TokenLifetime bounds email confirmation and password reset tokens.
	TokenLifetime time.Duration
}

// DefaultOptions returns the stock policy: confirmed accounts required,
// six character passwords with mixed classes, lockout after five failures
// for five minutes, fourteen day sessions.
func DefaultOptions() Options {
	return Options{
		RequireConfirmedAccount: true,
		Password: PasswordOptions{
			RequiredLength:         6,
			RequireDigit:           true,
			RequireLowercase:       true,
			RequireUppercase:       true,
			RequireNonAlphanumeric: true,
			RequiredUniqueChars:    1,
		},
		Lockout: LockoutOptions{
			AllowedForNewUsers: true,
			MaxFailedAttempts:  5,
			Duration:           5 * time.Minute,
		},
		SessionLifetime: 14 * 24 * time.Hour,
		CookieName:      ".Lingo.Identity",
		TokenLifetime:   24 * time.Hour,
	}
}
