// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// sessionKeyPrefix namespaces session records in BadgerDB.
const sessionKeyPrefix = "session:"

// BadgerSessionStore implements SessionStore using BadgerDB for durable
// storage, so sessions survive server restarts.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore creates a BadgerDB-backed session store.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

// OpenBadgerSessionStore opens (or creates) a Badger database at path and
// wraps it in a session store. The caller owns closing the returned DB.
func OpenBadgerSessionStore(path string) (*BadgerSessionStore, *badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return NewBadgerSessionStore(db), db, nil
}

// Create implements SessionStore.
func (s *BadgerSessionStore) Create(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKeyPrefix+session.ID), data)
	})
}

// Get implements SessionStore.
func (s *BadgerSessionStore) Get(_ context.Context, id string) (*Session, error) {
	var session Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Delete implements SessionStore.
func (s *BadgerSessionStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKeyPrefix + id))
	})
}

// Touch implements SessionStore.
func (s *BadgerSessionStore) Touch(ctx context.Context, id string, newExpiry time.Time) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	session.LastAccessedAt = time.Now()
	session.ExpiresAt = newExpiry
	return s.Create(ctx, session)
}

// CleanupExpired implements SessionStore.
func (s *BadgerSessionStore) CleanupExpired(context.Context) (int, error) {
	var expired []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sessionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var session Session
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			}); err != nil {
				continue // skip corrupt entries
			}
			if session.IsExpired() {
				expired = append(expired, strings.TrimPrefix(string(item.Key()), sessionKeyPrefix))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range expired {
		if err := s.Delete(context.Background(), id); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

// compile-time interface check
var _ SessionStore = (*BadgerSessionStore)(nil)
