// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package web

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/plumehq/plume/internal/logging"
)

// healthResponse is the health endpoint payload.
type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// Health reports liveness and store reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "up",
		Timestamp: time.Now().UTC(),
	}
	status := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
		resp.Status = "degraded"
		resp.Database = "down"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode health response")
	}
}
