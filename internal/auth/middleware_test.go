// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/plumehq/plume/internal/metrics"
)

func newTestMiddleware(t *testing.T) (*SessionMiddleware, SessionStore) {
	t.Helper()
	store := NewMemorySessionStore()
	cfg := DefaultSessionMiddlewareConfig()
	cfg.CookieSecure = false
	return NewSessionMiddleware(store, cfg), store
}

func TestAuthenticateResolvesUser(t *testing.T) {
	t.Parallel()

	mw, store := newTestMiddleware(t)
	session := NewSession(7, "leo", time.Hour)
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var got *CurrentUser
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "plume_session", Value: session.ID})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected authenticated user in context")
	}
	if got.ID != 7 || got.Username != "leo" {
		t.Errorf("got user %d/%q, want 7/leo", got.ID, got.Username)
	}
}

func TestAuthenticateGuestWithoutCookie(t *testing.T) {
	t.Parallel()

	mw, _ := newTestMiddleware(t)

	called := false
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if UserFromContext(r.Context()) != nil {
			t.Error("expected no user for guest request")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler not called for guest request")
	}
}

func TestRequireAuthRedirectsGuests(t *testing.T) {
	t.Parallel()

	mw, _ := newTestMiddleware(t)
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler reached by guest")
	}))

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/login/?next=%2Fcreate%2F" {
		t.Errorf("Location = %q, want /auth/login/?next=%%2Fcreate%%2F", loc)
	}
}

func TestRequireAuthAllowsAuthenticated(t *testing.T) {
	t.Parallel()

	mw, _ := newTestMiddleware(t)
	called := false
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req = req.WithContext(ContextWithUser(req.Context(), &CurrentUser{ID: 1, Username: "leo"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("protected handler not reached by authenticated user")
	}
}

func TestStartAndEndSession(t *testing.T) {
	t.Parallel()

	mw, store := newTestMiddleware(t)
	rec := httptest.NewRecorder()
	active := testutil.ToFloat64(metrics.SessionsActive)

	session, err := mw.StartSession(context.Background(), rec, 3, "leo")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if got := testutil.ToFloat64(metrics.SessionsActive); got != active+1 {
		t.Errorf("active sessions gauge = %v after start, want %v", got, active+1)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != session.ID {
		t.Fatalf("expected session cookie with ID %q, got %+v", session.ID, cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	mw.EndSession(context.Background(), rec2, req)

	if _, err := store.Get(context.Background(), session.ID); err == nil {
		t.Error("session still present after EndSession")
	}
	if got := testutil.ToFloat64(metrics.SessionsActive); got != active {
		t.Errorf("active sessions gauge = %v after end, want %v", got, active)
	}
	cleared := rec2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("expected expired cookie, got %+v", cleared)
	}
}
