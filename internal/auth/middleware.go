// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/plumehq/plume/internal/logging"
	"github.com/plumehq/plume/internal/metrics"
)

type contextKey string

// currentUserKey carries the authenticated user through the request context.
const currentUserKey contextKey = "auth_current_user"

// CurrentUser identifies the authenticated user of a request.
type CurrentUser struct {
	ID        int64
	Username  string
	SessionID string
}

// UserFromContext returns the authenticated user, or nil for guests.
func UserFromContext(ctx context.Context) *CurrentUser {
	if u, ok := ctx.Value(currentUserKey).(*CurrentUser); ok {
		return u
	}
	return nil
}

// ContextWithUser returns a context carrying the given user. Exported for
// handler tests.
func ContextWithUser(ctx context.Context, u *CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// SessionMiddlewareConfig holds configuration for the session middleware.
type SessionMiddlewareConfig struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// LoginPath is where unauthenticated users are redirected. The
	// originally requested path is appended as the "next" query param.
	LoginPath string

	// SessionTTL is the session time-to-live.
	SessionTTL time.Duration

	// SlidingSession extends session expiry on each request.
	SlidingSession bool

	// CookiePath is the path for the session cookie.
	CookiePath string

	// CookieSecure sets the Secure flag on the cookie.
	CookieSecure bool

	// CookieSameSite sets the SameSite attribute.
	CookieSameSite http.SameSite
}

// DefaultSessionMiddlewareConfig returns sensible defaults.
func DefaultSessionMiddlewareConfig() *SessionMiddlewareConfig {
	return &SessionMiddlewareConfig{
		CookieName:     "plume_session",
		LoginPath:      "/auth/login/",
		SessionTTL:     24 * time.Hour,
		SlidingSession: true,
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddleware resolves the current user from the session cookie.
type SessionMiddleware struct {
	store  SessionStore
	config *SessionMiddlewareConfig
}

// NewSessionMiddleware creates a new session middleware.
func NewSessionMiddleware(store SessionStore, config *SessionMiddlewareConfig) *SessionMiddleware {
	if config == nil {
		config = DefaultSessionMiddlewareConfig()
	}
	return &SessionMiddleware{store: store, config: config}
}

// Authenticate extracts and validates the session from the request cookie.
// If valid, the CurrentUser is set in the request context. If no session is
// found the request continues as a guest (use RequireAuth for protected
// routes).
func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := m.extractSessionID(r)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.store.Get(r.Context(), sessionID)
		if err != nil {
			// Not found or expired: continue as guest.
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				logging.Ctx(r.Context()).Error().Err(err).Msg("session lookup failed")
			}
			next.ServeHTTP(w, r)
			return
		}

		if m.config.SlidingSession {
			newExpiry := time.Now().Add(m.config.SessionTTL)
			if touchErr := m.store.Touch(r.Context(), sessionID, newExpiry); touchErr != nil {
				logging.Ctx(r.Context()).Error().Err(touchErr).Msg("failed to touch session")
			}
		}

		user := &CurrentUser{
			ID:        session.UserID,
			Username:  session.Username,
			SessionID: session.ID,
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireAuth requires a valid session. Unauthenticated requests are
// redirected to the login page with a "next" parameter pointing back at
// the originally requested path.
func (m *SessionMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, m.LoginURL(r.URL.Path), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL builds the login redirect target for a protected path.
func (m *SessionMiddleware) LoginURL(next string) string {
	return m.config.LoginPath + "?next=" + url.QueryEscape(next)
}

// extractSessionID extracts the session ID from the request cookie.
func (m *SessionMiddleware) extractSessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.config.CookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// StartSession creates a session for the user and sets the cookie.
func (m *SessionMiddleware) StartSession(ctx context.Context, w http.ResponseWriter, userID int64, username string) (*Session, error) {
	session := NewSession(userID, username, m.config.SessionTTL)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}
	m.SetSessionCookie(w, session.ID)
	metrics.SessionsActive.Inc()
	return session, nil
}

// EndSession deletes the request's session, if any, and clears the cookie.
func (m *SessionMiddleware) EndSession(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if id := m.extractSessionID(r); id != "" {
		if err := m.store.Delete(ctx, id); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("failed to delete session")
		} else {
			metrics.SessionsActive.Dec()
		}
	}
	m.ClearSessionCookie(w)
}

// SetSessionCookie sets the session cookie on the response.
func (m *SessionMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    sessionID,
		Path:     m.config.CookiePath,
		Expires:  time.Now().Add(m.config.SessionTTL),
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: m.config.CookieSameSite,
	})
}

// ClearSessionCookie expires the session cookie.
func (m *SessionMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     m.config.CookiePath,
		MaxAge:   -1,
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: m.config.CookieSameSite,
	})
}
