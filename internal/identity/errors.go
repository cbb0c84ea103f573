// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package identity

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed       = errors.New("account email not confirmed")
	ErrLockedOut          = errors.New("account locked out")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUserNotFound       = errors.New("user not found")
)

// PasswordError lists every password policy rule a candidate failed. Codes
// double as message ids for localization (prefixed with "identity.").
type PasswordError struct {
	Codes []string
}

func (e *PasswordError) Error() string {
	return "password does not satisfy policy: " + strings.Join(e.Codes, ", ")
}

// Password policy failure codes.
const (
	CodePasswordTooShort            = "PasswordTooShort"
	CodePasswordRequiresDigit       = "PasswordRequiresDigit"
	CodePasswordRequiresLower       = "PasswordRequiresLower"
	CodePasswordRequiresUpper       = "PasswordRequiresUpper"
	CodePasswordRequiresNonAlphanum = "PasswordRequiresNonAlphanumeric"
	CodePasswordRequiresUniqueChars = "PasswordRequiresUniqueChars"
)
