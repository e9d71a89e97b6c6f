// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/plumehq/plume/internal/models"
)

// MemoryStore is an in-memory Store implementation. It backs handler tests
// and the database.driver=memory development mode. Not durable.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[int64]*models.User
	groups   map[int64]*models.Group
	posts    map[int64]*models.Post
	comments map[int64]*models.Comment
	follows  map[int64]*models.Follow

	nextID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*models.User),
		groups:   make(map[int64]*models.Group),
		posts:    make(map[int64]*models.Post),
		comments: make(map[int64]*models.Comment),
		follows:  make(map[int64]*models.Follow),
	}
}

// allocID must be called with mu held.
func (s *MemoryStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

// CreateUser implements Store.
func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return ErrDuplicate
		}
	}

	u.ID = s.allocID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// UserByUsername implements Store.
func (s *MemoryStore) UserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// UserByID implements Store.
func (s *MemoryStore) UserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// CreateGroup implements Store.
func (s *MemoryStore) CreateGroup(_ context.Context, g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.groups {
		if existing.Slug == g.Slug {
			return ErrDuplicate
		}
	}

	g.ID = s.allocID()
	cp := *g
	s.groups[g.ID] = &cp
	return nil
}

// GroupBySlug implements Store.
func (s *MemoryStore) GroupBySlug(_ context.Context, slug string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.Slug == slug {
			cp := *g
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// GroupByID implements Store.
func (s *MemoryStore) GroupByID(_ context.Context, id int64) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// Groups implements Store.
func (s *MemoryStore) Groups(_ context.Context) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// CreatePost implements Store.
func (s *MemoryStore) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.AuthorID]; !ok {
		return ErrNotFound
	}
	if p.GroupID != nil {
		if _, ok := s.groups[*p.GroupID]; !ok {
			return ErrNotFound
		}
	}

	p.ID = s.allocID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	cp.Author = nil
	cp.Group = nil
	s.posts[p.ID] = &cp
	return nil
}

// UpdatePost implements Store. Only text, group and image are written;
// author and creation time are immutable.
func (s *MemoryStore) UpdatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	if p.GroupID != nil {
		if _, ok := s.groups[*p.GroupID]; !ok {
			return ErrNotFound
		}
	}

	existing.Text = p.Text
	existing.GroupID = p.GroupID
	existing.Image = p.Image
	return nil
}

// hydrate must be called with mu held (read lock is enough).
func (s *MemoryStore) hydrate(p *models.Post) models.Post {
	cp := *p
	if u, ok := s.users[p.AuthorID]; ok {
		ucp := *u
		cp.Author = &ucp
	}
	if p.GroupID != nil {
		if g, ok := s.groups[*p.GroupID]; ok {
			gcp := *g
			cp.Group = &gcp
		}
	}
	return cp
}

// PostByID implements Store.
func (s *MemoryStore) PostByID(_ context.Context, id int64) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s.hydrate(p)
	return &cp, nil
}

// sortedPosts returns hydrated posts matching the filter, newest-first.
// Must be called with mu held.
func (s *MemoryStore) sortedPosts(match func(*models.Post) bool) []models.Post {
	out := make([]models.Post, 0)
	for _, p := range s.posts {
		if match(p) {
			out = append(out, s.hydrate(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func window(posts []models.Post, limit, offset int) []models.Post {
	if offset >= len(posts) {
		return []models.Post{}
	}
	posts = posts[offset:]
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts
}

// Posts implements Store.
func (s *MemoryStore) Posts(_ context.Context, limit, offset int) ([]models.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedPosts(func(*models.Post) bool { return true })
	return window(all, limit, offset), len(all), nil
}

// PostsByGroup implements Store.
func (s *MemoryStore) PostsByGroup(_ context.Context, groupID int64, limit, offset int) ([]models.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedPosts(func(p *models.Post) bool {
		return p.GroupID != nil && *p.GroupID == groupID
	})
	return window(all, limit, offset), len(all), nil
}

// PostsByAuthor implements Store.
func (s *MemoryStore) PostsByAuthor(_ context.Context, authorID int64, limit, offset int) ([]models.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedPosts(func(p *models.Post) bool { return p.AuthorID == authorID })
	return window(all, limit, offset), len(all), nil
}

// PostsByFollowed implements Store.
func (s *MemoryStore) PostsByFollowed(_ context.Context, userID int64) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	followed := make(map[int64]bool)
	for _, f := range s.follows {
		if f.UserID == userID {
			followed[f.AuthorID] = true
		}
	}
	return s.sortedPosts(func(p *models.Post) bool { return followed[p.AuthorID] }), nil
}

// CreateComment implements Store.
func (s *MemoryStore) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[c.PostID]; !ok {
		return ErrNotFound
	}

	c.ID = s.allocID()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	cp := *c
	cp.Author = nil
	s.comments[c.ID] = &cp
	return nil
}

// CommentsByPost implements Store.
func (s *MemoryStore) CommentsByPost(_ context.Context, postID int64) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.PostID != postID {
			continue
		}
		cp := *c
		if u, ok := s.users[c.AuthorID]; ok {
			ucp := *u
			cp.Author = &ucp
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateFollow implements Store.
func (s *MemoryStore) CreateFollow(_ context.Context, userID, authorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[authorID]; !ok {
		return ErrNotFound
	}
	for _, f := range s.follows {
		if f.UserID == userID && f.AuthorID == authorID {
			return nil
		}
	}

	id := s.allocID()
	s.follows[id] = &models.Follow{
		ID:        id,
		UserID:    userID,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	}
	return nil
}

// DeleteFollow implements Store.
func (s *MemoryStore) DeleteFollow(_ context.Context, userID, authorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, f := range s.follows {
		if f.UserID == userID && f.AuthorID == authorID {
			delete(s.follows, id)
		}
	}
	return nil
}

// FollowExists implements Store.
func (s *MemoryStore) FollowExists(_ context.Context, userID, authorID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.follows {
		if f.UserID == userID && f.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

// FollowerIDs implements Store.
func (s *MemoryStore) FollowerIDs(_ context.Context, authorID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, f := range s.follows {
		if f.AuthorID == authorID {
			ids = append(ids, f.UserID)
		}
	}
	return ids, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() {}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
