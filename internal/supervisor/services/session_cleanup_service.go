// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package services

import (
	"context"
	"time"

	"github.com/plumehq/plume/internal/auth"
	"github.com/plumehq/plume/internal/logging"
	"github.com/plumehq/plume/internal/metrics"
)

// SessionCleanupService periodically removes expired sessions from the
// session store.
type SessionCleanupService struct {
	store    auth.SessionStore
	interval time.Duration
}

// NewSessionCleanupService creates a cleanup service ticking at the given
// interval.
func NewSessionCleanupService(store auth.SessionStore, interval time.Duration) *SessionCleanupService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SessionCleanupService{
		store:    store,
		interval: interval,
	}
}

// Serve implements suture.Service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.store.CleanupExpired(ctx)
			if err != nil {
				logging.Ctx(ctx).Error().Err(err).Msg("session cleanup failed")
				continue
			}
			if removed > 0 {
				metrics.SessionsCleaned.Add(float64(removed))
				metrics.SessionsActive.Sub(float64(removed))
				logging.Ctx(ctx).Debug().Int("removed", removed).Msg("expired sessions removed")
			}
		}
	}
}

func (s *SessionCleanupService) String() string {
	return "session-cleanup"
}
