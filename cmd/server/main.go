// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package main is the entry point for the Plume server.
//
// Plume is a self-hosted blogging platform where users publish posts,
// optionally into thematic groups, comment on each other's posts and
// follow authors to build a personal feed.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading from defaults, YAML file and
//     environment variables (Koanf v2)
//  2. Logging: structured zerolog output
//  3. Store: Postgres (pgx) or in-memory content store
//  4. Sessions: in-memory or BadgerDB-backed session store
//  5. Media: local filesystem storage for post images
//  6. HTTP server and background services under a suture supervisor
//
// # Configuration
//
// Settings come from PLUME_* environment variables or a config file
// (config.yaml, or the path named by PLUME_CONFIG_PATH). Environment
// variables take precedence over the file, which takes precedence over
// the built-in defaults. See internal/config for the full listing.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests before the stores close.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/plumehq/plume/internal/auth"
	"github.com/plumehq/plume/internal/cache"
	"github.com/plumehq/plume/internal/config"
	"github.com/plumehq/plume/internal/logging"
	"github.com/plumehq/plume/internal/media"
	"github.com/plumehq/plume/internal/store"
	"github.com/plumehq/plume/internal/supervisor"
	"github.com/plumehq/plume/internal/supervisor/services"
	"github.com/plumehq/plume/internal/web"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)
	logging.Info().
		Str("driver", cfg.Database.Driver).
		Str("session_store", cfg.Security.SessionStore).
		Int("port", cfg.Server.Port).
		Msg("starting plume")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Content store.
	var st store.Store
	switch cfg.Database.Driver {
	case "postgres":
		st, err = store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to open postgres store: %w", err)
		}
	default:
		st = store.NewMemoryStore()
		logging.Warn().Msg("using in-memory store, data will not survive restarts")
	}
	defer st.Close()

	// Session store.
	var sessionStore auth.SessionStore
	switch cfg.Security.SessionStore {
	case "badger":
		badgerStore, db, err := auth.OpenBadgerSessionStore(cfg.Security.SessionPath)
		if err != nil {
			return fmt.Errorf("failed to open badger session store: %w", err)
		}
		defer db.Close()
		sessionStore = badgerStore
	default:
		sessionStore = auth.NewMemorySessionStore()
	}

	smCfg := auth.DefaultSessionMiddlewareConfig()
	smCfg.SessionTTL = cfg.Security.SessionTTL
	smCfg.CookieSecure = cfg.Security.CookieSecure
	sessions := auth.NewSessionMiddleware(sessionStore, smCfg)

	// Media storage.
	mediaStore, err := media.NewStorage(cfg.Media.Root, cfg.Media.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("failed to open media storage: %w", err)
	}

	// HTML application.
	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	feedCache := cache.New(cfg.Cache.FeedTTL)
	handlers := web.NewHandlers(st, sessions, feedCache, mediaStore, renderer, cfg.Pagination.PageSize, cfg.Cache.FeedTTL)
	router := web.NewRouter(handlers, sessions, web.RouterConfig{
		CORSOrigins:     cfg.Security.CORSOrigins,
		RateLimit:       cfg.Security.RateLimit,
		RateLimitWindow: cfg.Security.RateLimitWindow,
		LoginRateLimit:  cfg.Security.LoginRateLimit,
		MediaRoot:       cfg.Media.Root,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Supervision tree: HTTP server plus background session cleanup.
	supConfig := supervisor.DefaultConfig()
	supConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.New("plume", supConfig)
	tree.Add(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.Add(services.NewSessionCleanupService(sessionStore, cfg.Security.SessionCleanup))

	logging.Info().Str("addr", server.Addr).Msg("listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("shutdown complete")
	return nil
}
