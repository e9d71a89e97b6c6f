// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/plumehq/plume/internal/auth"
	"github.com/plumehq/plume/internal/models"
)

func (app *testApp) createUserWithPassword(t *testing.T, username, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	u := &models.User{Username: username, PasswordHash: hash}
	if err := app.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func TestSignupCreatesAccountAndLogsIn(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	form := url.Values{
		"username":         {"leo"},
		"password":         {"correct-horse-42"},
		"password_confirm": {"correct-horse-42"},
	}
	rec := app.postForm(t, "/auth/signup/", form, nil)
	wantRedirect(t, rec, "/")

	if _, err := app.store.UserByUsername(context.Background(), "leo"); err != nil {
		t.Fatalf("account not created: %v", err)
	}

	// A session cookie was issued.
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "plume_session" || cookies[0].Value == "" {
		t.Errorf("expected session cookie, got %+v", cookies)
	}
}

func TestSignupRejectsMismatchedPasswords(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	form := url.Values{
		"username":         {"leo"},
		"password":         {"correct-horse-42"},
		"password_confirm": {"different-horse"},
	}
	rec := app.postForm(t, "/auth/signup/", form, nil)
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(bodyOf(rec), "Passwords do not match.") {
		t.Error("mismatch message missing")
	}
}

func TestSignupRejectsTakenUsername(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.createUser(t, "leo")

	form := url.Values{
		"username":         {"leo"},
		"password":         {"correct-horse-42"},
		"password_confirm": {"correct-horse-42"},
	}
	rec := app.postForm(t, "/auth/signup/", form, nil)
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(bodyOf(rec), "That username is taken.") {
		t.Error("duplicate username message missing")
	}
}

func TestLoginHonorsNext(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.createUserWithPassword(t, "leo", "correct-horse-42")

	form := url.Values{"username": {"leo"}, "password": {"correct-horse-42"}}
	rec := app.postForm(t, "/auth/login/?next=%2Fcreate%2F", form, nil)
	wantRedirect(t, rec, "/create/")
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.createUserWithPassword(t, "leo", "correct-horse-42")

	form := url.Values{"username": {"leo"}, "password": {"correct-horse-42"}}
	rec := app.postForm(t, "/auth/login/?next=https%3A%2F%2Fevil.example", form, nil)
	wantRedirect(t, rec, "/")
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.createUserWithPassword(t, "leo", "correct-horse-42")

	form := url.Values{"username": {"leo"}, "password": {"wrong"}}
	rec := app.postForm(t, "/auth/login/", form, nil)
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(bodyOf(rec), "Wrong username or password.") {
		t.Error("login failure message missing")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("session cookie issued for failed login")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	form := url.Values{"username": {"ghost"}, "password": {"whatever"}}
	rec := app.postForm(t, "/auth/login/", form, nil)
	wantStatus(t, rec, http.StatusOK)
	if !strings.Contains(bodyOf(rec), "Wrong username or password.") {
		t.Error("login failure message missing")
	}
}

func TestLogoutEndsSession(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	leo := app.createUser(t, "leo")
	cookie := app.sessionCookie(t, leo)

	rec := app.postForm(t, "/auth/logout/", url.Values{}, cookie)
	wantRedirect(t, rec, "/")

	if _, err := app.sessionStore.Get(context.Background(), cookie.Value); err == nil {
		t.Error("session survived logout")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("expected expired cookie, got %+v", cookies)
	}
}

func TestLoginFormCarriesNext(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	rec := app.get(t, "/auth/login/?next=%2Ffollow%2F", nil)
	wantStatus(t, rec, http.StatusOK)
	body := bodyOf(rec)
	if !strings.Contains(body, "/auth/login/?next=") || !strings.Contains(body, "follow") {
		t.Error("login form lost the next parameter")
	}
}
