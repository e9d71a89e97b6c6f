// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/plumehq/plume/internal/auth"
	"github.com/plumehq/plume/internal/metrics"
	"github.com/plumehq/plume/internal/models"
	"github.com/plumehq/plume/internal/store"
)

type authFormData struct {
	User     *auth.CurrentUser
	Username string
	Next     string
	Errors   map[string]string
}

// SignupForm renders the signup page.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "signup.html", authFormData{
		User: auth.UserFromContext(r.Context()),
	})
}

// Signup handles account creation and logs the new user in.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	form := SignupForm{
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}

	if fieldErrors := validateForm(form); fieldErrors != nil {
		h.renderer.Render(w, r, http.StatusOK, "signup.html", authFormData{
			Username: form.Username,
			Errors:   fieldErrors,
		})
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user := &models.User{Username: form.Username, PasswordHash: hash}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.renderer.Render(w, r, http.StatusOK, "signup.html", authFormData{
				Username: form.Username,
				Errors:   map[string]string{"username": "That username is taken."},
			})
			return
		}
		h.serverError(w, r, err)
		return
	}

	metrics.SignupsTotal.Inc()
	if _, err := h.sessions.StartSession(r.Context(), w, user.ID, user.Username); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// LoginForm renders the login page, carrying the post-login destination
// through to the form action.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "login.html", authFormData{
		User: auth.UserFromContext(r.Context()),
		Next: r.URL.Query().Get("next"),
	})
}

// Login authenticates the user and redirects to the requested page.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	form := LoginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	next := r.URL.Query().Get("next")

	if fieldErrors := validateForm(form); fieldErrors != nil {
		h.renderer.Render(w, r, http.StatusOK, "login.html", authFormData{
			Username: form.Username,
			Next:     next,
			Errors:   fieldErrors,
		})
		return
	}

	user, err := h.store.UserByUsername(r.Context(), form.Username)
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, form.Password)
	}
	if err != nil {
		// Same response for unknown user and wrong password.
		metrics.RecordLogin(false)
		h.renderer.Render(w, r, http.StatusOK, "login.html", authFormData{
			Username: form.Username,
			Next:     next,
			Errors:   map[string]string{"form": "Wrong username or password."},
		})
		return
	}

	metrics.RecordLogin(true)
	if _, err := h.sessions.StartSession(r.Context(), w, user.ID, user.Username); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, safeNext(next), http.StatusFound)
}

// Logout ends the session and returns to the front page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.EndSession(r.Context(), w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// safeNext keeps post-login redirects on this site. Only rooted local
// paths pass; anything else falls back to the front page.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return "/"
}
