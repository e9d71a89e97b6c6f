// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package supervisor manages long-running services with suture v4.
// Crashed services restart automatically with exponential backoff, and
// context cancellation triggers orderly shutdown.
package supervisor

import (
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/plumehq/plume/internal/logging"
)

// Config holds supervisor restart behavior.
type Config struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig matches suture's built-in defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// New creates a supervisor that logs lifecycle events through zerolog.
func New(name string, config Config) *suture.Supervisor {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	return suture.New(name, suture.Spec{
		EventHook:        logEvent,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	})
}

// logEvent translates suture lifecycle events into structured log lines.
func logEvent(event suture.Event) {
	logger := logging.With().Str("component", "supervisor").Logger()
	switch event.Type() {
	case suture.EventTypeServiceTerminate, suture.EventTypeServicePanic:
		logger.Warn().Str("event", event.String()).Msg("supervised service failed")
	case suture.EventTypeBackoff:
		logger.Warn().Str("event", event.String()).Msg("supervisor entered backoff")
	default:
		logger.Debug().Str("event", event.String()).Msg("supervisor event")
	}
}
