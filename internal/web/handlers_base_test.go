// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/plumehq/plume/internal/auth"
	"github.com/plumehq/plume/internal/cache"
	"github.com/plumehq/plume/internal/media"
	"github.com/plumehq/plume/internal/models"
	"github.com/plumehq/plume/internal/store"
)

// smallGIF is a minimal valid GIF used as an upload fixture.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

// testApp bundles everything a handler test needs.
type testApp struct {
	router       http.Handler
	store        *store.MemoryStore
	sessions     *auth.SessionMiddleware
	sessionStore auth.SessionStore
	cache        *cache.Cache
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	st := store.NewMemoryStore()

	sessionStore := auth.NewMemorySessionStore()
	smCfg := auth.DefaultSessionMiddlewareConfig()
	smCfg.CookieSecure = false
	sessions := auth.NewSessionMiddleware(sessionStore, smCfg)

	mediaStore, err := media.NewStorage(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("failed to create media storage: %v", err)
	}

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}

	feedCache := cache.New(time.Minute)
	handlers := NewHandlers(st, sessions, feedCache, mediaStore, renderer, 10, time.Minute)
	router := NewRouter(handlers, sessions, RouterConfig{
		RateLimit: 10000,
		MediaRoot: mediaStore.Root(),
	})

	return &testApp{
		router:       router,
		store:        st,
		sessions:     sessions,
		sessionStore: sessionStore,
		cache:        feedCache,
	}
}

func (app *testApp) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x"}
	if err := app.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return u
}

func (app *testApp) createGroup(t *testing.T, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "The " + slug + " group", Slug: slug, Description: "About " + slug}
	if err := app.store.CreateGroup(context.Background(), g); err != nil {
		t.Fatalf("failed to create group %s: %v", slug, err)
	}
	return g
}

func (app *testApp) createPost(t *testing.T, author *models.User, text string, group *models.Group) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	if err := app.store.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	return p
}

// sessionCookie logs the user in directly through the session store and
// returns the cookie.
func (app *testApp) sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	session := auth.NewSession(user.ID, user.Username, time.Hour)
	if err := app.sessionStore.Create(context.Background(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return &http.Cookie{Name: "plume_session", Value: session.ID}
}

func (app *testApp) get(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) postForm(t *testing.T, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

// postMultipart submits the post create/edit form, optionally attaching
// an image upload.
func (app *testApp) postMultipart(t *testing.T, path string, fields map[string]string, imageName string, image []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field %s: %v", name, err)
		}
	}
	if imageName != "" {
		part, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("failed to write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func bodyOf(rec *httptest.ResponseRecorder) string {
	b, _ := io.ReadAll(rec.Body)
	return string(b)
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d", rec.Code, want)
	}
}

func wantRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func postPath(id int64) string {
	return fmt.Sprintf("/posts/%d/", id)
}
