// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plumehq/plume/internal/auth"
	"github.com/plumehq/plume/internal/middleware"
)

//go:embed static
var staticFS embed.FS

// RouterConfig holds the routing-level settings.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimit       int
	RateLimitWindow time.Duration
	LoginRateLimit  int
	MediaRoot       string
}

// NewRouter assembles the full route table.
func NewRouter(h *Handlers, sessions *auth.SessionMiddleware, cfg RouterConfig) http.Handler {
	if cfg.RateLimit < 1 {
		cfg.RateLimit = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.LoginRateLimit < 1 {
		cfg.LoginRateLimit = 10
	}

	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RateLimitWindow))
	r.Use(middleware.PrometheusMetrics)
	r.Use(sessions.Authenticate)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	// ========================
	// Public Pages
	// ========================
	r.Get("/", h.Index)
	r.Get("/group/{slug}/", h.GroupPosts)
	r.Get("/profile/{username}/", h.Profile)
	r.Get("/posts/{id}/", h.PostDetail)

	// ========================
	// Auth Pages
	// ========================
	r.Route("/auth", func(r chi.Router) {
		r.Get("/signup/", h.SignupForm)
		r.Post("/signup/", h.Signup)
		r.Get("/login/", h.LoginForm)
		// Tighter limit on credential guessing.
		r.With(httprate.LimitByIP(cfg.LoginRateLimit, cfg.RateLimitWindow)).Post("/login/", h.Login)
		r.Post("/logout/", h.Logout)
	})

	// ========================
	// Protected Pages
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireAuth)
		r.Get("/create/", h.PostCreateForm)
		r.Post("/create/", h.PostCreate)
		r.Get("/posts/{id}/edit/", h.PostEditForm)
		r.Post("/posts/{id}/edit/", h.PostEdit)
		// GET carries no form, so AddComment bounces it straight back
		// to the post page.
		r.Get("/posts/{id}/comment/", h.AddComment)
		r.Post("/posts/{id}/comment/", h.AddComment)
		r.Get("/follow/", h.FollowIndex)
		r.Get("/profile/{username}/follow/", h.ProfileFollow)
		r.Get("/profile/{username}/unfollow/", h.ProfileUnfollow)
	})

	// ========================
	// Operational Endpoints
	// ========================
	r.Get("/api/v1/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Static Assets and Media
	// ========================
	staticRoot, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaRoot))))

	return r
}
