// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package web serves the HTML application: post lists, profiles, the
// follow feed, comments and the auth pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/plumehq/plume/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages lists every page template. Each is parsed together with the base
// layout so blocks resolve per page.
var pages = []string{
	"index.html",
	"group_posts.html",
	"profile.html",
	"post_detail.html",
	"post_form.html",
	"follow.html",
	"login.html",
	"signup.html",
	"not_found.html",
}

// Renderer executes page templates against the shared base layout.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses all embedded templates. Fails fast on malformed
// templates so broken layouts are caught at startup.
func NewRenderer() (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/post_list.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return &Renderer{templates: templates}, nil
}

// Render writes a page to the response. The template executes into a
// buffer first so a mid-render failure never emits a half-written page.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := rn.templates[page]
	if !ok {
		logging.Ctx(r.Context()).Error().Str("page", page).Msg("unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to write response")
	}
}
