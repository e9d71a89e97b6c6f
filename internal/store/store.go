// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package store defines the persistence interface for the application and
// its implementations: a Postgres repository (pgx) for production and an
// in-memory repository for development and tests.
//
// All list queries return newest-first ordering together with the total
// count so callers can paginate with limit/offset windows.
package store

import (
	"context"
	"errors"

	"github.com/plumehq/plume/internal/models"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned when a uniqueness constraint would be
	// violated (username, group slug).
	ErrDuplicate = errors.New("store: duplicate")
)

// Store is the persistence boundary for users, groups, posts, comments and
// follow edges.
type Store interface {
	// CreateUser persists a new user and assigns its ID.
	// Returns ErrDuplicate if the username is taken.
	CreateUser(ctx context.Context, u *models.User) error

	// UserByUsername looks a user up by its unique username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)

	// UserByID looks a user up by ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)

	// CreateGroup persists a new group and assigns its ID.
	// Returns ErrDuplicate if the slug is taken.
	CreateGroup(ctx context.Context, g *models.Group) error

	// GroupBySlug looks a group up by its unique slug.
	GroupBySlug(ctx context.Context, slug string) (*models.Group, error)

	// GroupByID looks a group up by ID.
	GroupByID(ctx context.Context, id int64) (*models.Group, error)

	// Groups lists all groups ordered by title, for form choices.
	Groups(ctx context.Context) ([]models.Group, error)

	// CreatePost persists a new post and assigns its ID and CreatedAt.
	CreatePost(ctx context.Context, p *models.Post) error

	// UpdatePost updates the mutable fields of a post: text, group and
	// image. Author and ID are immutable. Returns ErrNotFound if absent.
	UpdatePost(ctx context.Context, p *models.Post) error

	// PostByID returns a post with its author and group hydrated.
	PostByID(ctx context.Context, id int64) (*models.Post, error)

	// Posts lists all posts newest-first with authors and groups
	// hydrated, plus the total post count.
	Posts(ctx context.Context, limit, offset int) ([]models.Post, int, error)

	// PostsByGroup lists a group's posts newest-first plus the total.
	PostsByGroup(ctx context.Context, groupID int64, limit, offset int) ([]models.Post, int, error)

	// PostsByAuthor lists an author's posts newest-first plus the total.
	PostsByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]models.Post, int, error)

	// PostsByFollowed lists all posts authored by anyone the user
	// follows, newest-first. The full list is returned so the feed
	// cache can paginate it in memory.
	PostsByFollowed(ctx context.Context, userID int64) ([]models.Post, error)

	// CreateComment persists a new comment bound to a post.
	// Returns ErrNotFound if the post does not exist.
	CreateComment(ctx context.Context, c *models.Comment) error

	// CommentsByPost lists a post's comments oldest-first with authors
	// hydrated.
	CommentsByPost(ctx context.Context, postID int64) ([]models.Comment, error)

	// CreateFollow creates the (user, author) follow edge. Creating an
	// edge that already exists is a no-op.
	CreateFollow(ctx context.Context, userID, authorID int64) error

	// DeleteFollow removes the (user, author) follow edge. Deleting a
	// missing edge is a no-op.
	DeleteFollow(ctx context.Context, userID, authorID int64) error

	// FollowExists reports whether the (user, author) edge exists.
	FollowExists(ctx context.Context, userID, authorID int64) (bool, error)

	// FollowerIDs returns the IDs of users following the given author.
	// Used to invalidate follower feed caches on post writes.
	FollowerIDs(ctx context.Context, authorID int64) ([]int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close()
}
