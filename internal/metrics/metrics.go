// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package metrics exposes Prometheus instrumentation for:
// - HTTP request latency and throughput
// - Feed cache efficiency
// - Content activity (posts, comments, follows)
// - Authentication outcomes
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Feed Cache Metrics
	FeedCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_hits_total",
			Help: "Total number of follow feed cache hits",
		},
	)

	FeedCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_misses_total",
			Help: "Total number of follow feed cache misses",
		},
	)

	FeedCacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_invalidations_total",
			Help: "Total number of feed cache entries invalidated by writes",
		},
	)

	// Content Metrics
	PostsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posts_created_total",
			Help: "Total number of posts created",
		},
	)

	PostsEdited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "posts_edited_total",
			Help: "Total number of post edits",
		},
	)

	CommentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comments_created_total",
			Help: "Total number of comments created",
		},
	)

	FollowChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "follow_changes_total",
			Help: "Total number of follow and unfollow actions",
		},
		[]string{"action"}, // "follow", "unfollow"
	)

	// Auth Metrics
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	SignupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signups_total",
			Help: "Total number of account signups",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Current number of live sessions",
		},
	)

	SessionsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_cleaned_total",
			Help: "Total number of expired sessions removed by cleanup",
		},
	)
)

// RecordHTTPRequest records a completed request.
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordLogin records a login attempt outcome.
func RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	LoginsTotal.WithLabelValues(result).Inc()
}

// RecordFollowChange records a follow or unfollow action.
func RecordFollowChange(follow bool) {
	action := "unfollow"
	if follow {
		action = "follow"
	}
	FollowChanges.WithLabelValues(action).Inc()
}
