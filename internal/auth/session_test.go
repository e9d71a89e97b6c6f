// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemorySessionStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession(42, "leo", time.Hour)
	if session.ID == "" {
		t.Fatal("expected non-empty session ID")
	}

	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != 42 || got.Username != "leo" {
		t.Errorf("got user %d/%q, want 42/leo", got.UserID, got.Username)
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession(1, "leo", -time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestMemorySessionStoreTouch(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession(1, "leo", time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newExpiry := time.Now().Add(2 * time.Hour)
	if err := store.Touch(ctx, session.ID, newExpiry); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.ExpiresAt.Equal(newExpiry) {
		t.Errorf("expiry not extended: got %v, want %v", got.ExpiresAt, newExpiry)
	}
}

func TestMemorySessionStoreCleanupExpired(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	expired := NewSession(1, "old", -time.Minute)
	live := NewSession(2, "new", time.Hour)
	for _, s := range []*Session{expired, live} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	removed, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Errorf("live session removed: %v", err)
	}
}

func TestSessionIDsUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 100 {
		s := NewSession(1, "leo", time.Hour)
		if seen[s.ID] {
			t.Fatalf("duplicate session ID %q", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash equals plaintext")
	}

	if err := CheckPassword(hash, "s3cret-password"); err != nil {
		t.Errorf("CheckPassword failed for correct password: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}
