// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package identity manages application accounts: registration, email
// confirmation, password sign-in with lockout, and server-side sessions
// referenced by an HTTP cookie.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/toeirei/lingo/internal/db"
	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/metrics"
	"github.com/toeirei/lingo/internal/model"
)

// Store is the persistence the identity subsystem needs. *db.Store
// implements it.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByNormalizedEmail(ctx context.Context, normalizedEmail string) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error

	SaveUserToken(ctx context.Context, t model.UserToken) error
	FindUserToken(ctx context.Context, userID string, purpose model.TokenPurpose) (*model.UserToken, error)
	DeleteUserToken(ctx context.Context, userID string, purpose model.TokenPurpose) error

	CreateSession(ctx context.Context, s model.Session) error
	FindSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}

// Manager implements account management on top of a Store.
type Manager struct {
	store  Store
	opts   Options
	hasher PasswordHasher
	now    func() time.Time
}

// NewManager returns a Manager. A nil hasher selects bcrypt.
func NewManager(store Store, opts Options, hasher PasswordHasher) *Manager {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &Manager{store: store, opts: opts, hasher: hasher, now: time.Now}
}

// Options returns the configured options.
func (m *Manager) Options() Options { return m.opts }

// Normalize returns the lookup form of a user name or email.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Register creates an unconfirmed account for email.
func (m *Manager) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if err := ValidatePassword(m.opts.Password, password); err != nil {
		return nil, err
	}
	normalized := Normalize(email)
	if _, err := m.store.FindUserByNormalizedEmail(ctx, normalized); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		ID:                 uuid.NewString(),
		UserName:           email,
		NormalizedUserName: normalized,
		Email:              email,
		NormalizedEmail:    normalized,
		PasswordHash:       hash,
		SecurityStamp:      uuid.NewString(),
		LockoutEnabled:     m.opts.Lockout.AllowedForNewUsers,
		CreatedAt:          m.now().UTC(),
	}
	if err := m.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	metrics.Registrations.Inc()
	logging.With("user", u.ID).Info("user created a new account with password")
	return u, nil
}

// FindByEmail returns the user registered with email or ErrUserNotFound.
func (m *Manager) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := m.store.FindUserByNormalizedEmail(ctx, Normalize(email))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// FindByID returns the user with id or ErrUserNotFound.
func (m *Manager) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := m.store.FindUserByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GenerateEmailConfirmationToken issues a single-use confirmation token,
// replacing any earlier one.
func (m *Manager) GenerateEmailConfirmationToken(ctx context.Context, u *model.User) (string, error) {
	return m.generateToken(ctx, u, model.PurposeEmailConfirmation)
}

func (m *Manager) generateToken(ctx context.Context, u *model.User, purpose model.TokenPurpose) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	err = m.store.SaveUserToken(ctx, model.UserToken{
		UserID:    u.ID,
		Purpose:   purpose,
		TokenHash: hashToken(token),
		ExpiresAt: m.now().Add(m.opts.TokenLifetime).UTC(),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (m *Manager) consumeToken(ctx context.Context, userID string, purpose model.TokenPurpose, token string) error {
	stored, err := m.store.FindUserToken(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored.TokenHash), []byte(hashToken(token))) != 1 {
		return ErrInvalidToken
	}
	if err := m.store.DeleteUserToken(ctx, userID, purpose); err != nil {
		return err
	}
	if !m.now().Before(stored.ExpiresAt) {
		return ErrInvalidToken
	}
	return nil
}

// ConfirmEmail marks the account confirmed when token matches.
func (m *Manager) ConfirmEmail(ctx context.Context, userID, token string) error {
	u, err := m.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.consumeToken(ctx, u.ID, model.PurposeEmailConfirmation, token); err != nil {
		return err
	}
	u.EmailConfirmed = true
	u.SecurityStamp = uuid.NewString()
	return m.store.UpdateUser(ctx, u)
}

// SetEmailConfirmed confirms an account without a token (administrative use).
func (m *Manager) SetEmailConfirmed(ctx context.Context, u *model.User) error {
	u.EmailConfirmed = true
	return m.store.UpdateUser(ctx, u)
}

// GeneratePasswordResetToken issues a single-use password reset token.
func (m *Manager) GeneratePasswordResetToken(ctx context.Context, u *model.User) (string, error) {
	return m.generateToken(ctx, u, model.PurposePasswordReset)
}

// ResetPassword replaces the password when token matches and signs the user
// out everywhere.
func (m *Manager) ResetPassword(ctx context.Context, userID, token, newPassword string) error {
	u, err := m.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := ValidatePassword(m.opts.Password, newPassword); err != nil {
		return err
	}
	if err := m.consumeToken(ctx, u.ID, model.PurposePasswordReset, token); err != nil {
		return err
	}
	return m.setPassword(ctx, u, newPassword)
}

// ChangePassword verifies the current password before replacing it.
func (m *Manager) ChangePassword(ctx context.Context, u *model.User, current, next string) error {
	if !m.hasher.Verify(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(m.opts.Password, next); err != nil {
		return err
	}
	return m.setPassword(ctx, u, next)
}

func (m *Manager) setPassword(ctx context.Context, u *model.User, password string) error {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.SecurityStamp = uuid.NewString()
	if err := m.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	return m.store.DeleteUserSessions(ctx, u.ID)
}
