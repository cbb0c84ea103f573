// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package identity

import (
	"context"
	"errors"

	"github.com/toeirei/lingo/internal/db"
	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/metrics"
	"github.com/toeirei/lingo/internal/model"
)

// Principal is the signed-in user attached to a request.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}

// SignInResult carries the session issued by a successful sign-in. Token is
// the cookie value; only its hash is stored.
type SignInResult struct {
	User    *model.User
	Token   string
	Session model.Session
}

func recordSignIn(result string) {
	metrics.SignIns.WithLabelValues(result).Inc()
}

// PasswordSignIn checks credentials and, on success, opens a session.
//
// The password is verified before the confirmation requirement so that an
// unconfirmed account is only revealed to someone who knows its password.
// Failed attempts count towards lockout; a success resets the counter.
func (m *Manager) PasswordSignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	u, err := m.store.FindUserByNormalizedEmail(ctx, Normalize(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Spend comparable time on unknown accounts.
			_, _ = m.hasher.Hash(password)
			recordSignIn("invalid")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := m.now()
	if u.IsLockedOut(now) {
		recordSignIn("locked_out")
		return nil, ErrLockedOut
	}

	if !m.hasher.Verify(u.PasswordHash, password) {
		if err := m.accessFailed(ctx, u); err != nil {
			return nil, err
		}
		if u.IsLockedOut(now) {
			logging.With("user", u.ID).Warn("user account locked out")
			recordSignIn("locked_out")
			return nil, ErrLockedOut
		}
		recordSignIn("invalid")
		return nil, ErrInvalidCredentials
	}

	if m.opts.RequireConfirmedAccount && !u.EmailConfirmed {
		recordSignIn("not_confirmed")
		return nil, ErrNotConfirmed
	}

	if u.AccessFailedCount != 0 || u.LockoutEnd != nil {
		u.AccessFailedCount = 0
		u.LockoutEnd = nil
		if err := m.store.UpdateUser(ctx, u); err != nil {
			return nil, err
		}
	}

	token, sess, err := m.issueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	recordSignIn("success")
	logging.With("user", u.ID).Info("user logged in")
	return &SignInResult{User: u, Token: token, Session: sess}, nil
}

func (m *Manager) accessFailed(ctx context.Context, u *model.User) error {
	if !u.LockoutEnabled || m.opts.Lockout.MaxFailedAttempts <= 0 {
		return nil
	}
	u.AccessFailedCount++
	if u.AccessFailedCount >= m.opts.Lockout.MaxFailedAttempts {
		end := m.now().Add(m.opts.Lockout.Duration).UTC()
		u.LockoutEnd = &end
		u.AccessFailedCount = 0
	}
	return m.store.UpdateUser(ctx, u)
}

func (m *Manager) issueSession(ctx context.Context, u *model.User) (string, model.Session, error) {
	token, err := newToken()
	if err != nil {
		return "", model.Session{}, err
	}
	now := m.now().UTC()
	sess := model.Session{
		ID:        hashToken(token),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.opts.SessionLifetime),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", model.Session{}, err
	}
	return token, sess, nil
}

// Authenticate resolves a session cookie value to its principal.
func (m *Manager) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	sess, err := m.store.FindSession(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if sess.Expired(m.now()) {
		_ = m.store.DeleteSession(ctx, sess.ID)
		return nil, ErrInvalidSession
	}
	u, err := m.store.FindUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return &Principal{UserID: u.ID, Email: u.Email, SessionID: sess.ID}, nil
}

// SignOut ends the session behind token. Unknown tokens are not an error.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := m.store.DeleteSession(ctx, hashToken(token))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	return nil
}
