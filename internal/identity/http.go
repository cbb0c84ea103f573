// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package identity

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/toeirei/lingo/internal/logging"
)

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the signed-in user of the request, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Middleware resolves the session cookie to a principal. Invalid or expired
// cookies are cleared and the request continues anonymously. A failed lookup
// also continues anonymously but keeps the cookie.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(m.opts.CookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.Authenticate(r.Context(), c.Value)
		if errors.Is(err, ErrInvalidSession) {
			m.ClearSessionCookie(w, r)
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			logging.Warnf("identity: session lookup failed: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// SetSessionCookie writes the session cookie for a successful sign-in.
// persistent keeps the cookie across browser restarts.
func (m *Manager) SetSessionCookie(w http.ResponseWriter, r *http.Request, res *SignInResult, persistent bool) {
	c := &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    res.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if persistent {
		c.Expires = res.Session.ExpiresAt
		c.MaxAge = int(time.Until(res.Session.ExpiresAt).Seconds())
	}
	http.SetCookie(w, c)
}

// ClearSessionCookie expires the session cookie.
func (m *Manager) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken returns the raw session cookie value of r.
func (m *Manager) SessionToken(r *http.Request) string {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
