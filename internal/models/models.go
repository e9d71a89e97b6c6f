// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package models defines the persisted entities of the application:
// users, groups, posts, comments and follow edges.
package models

import "time"

// User is a registered author. Username is unique and serves as the
// public profile key.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Group is a topical collection of posts. Slug is the unique URL key and
// is immutable once created.
type Group struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Post is a user-authored entry. AuthorID is required and immutable after
// creation; the group association is optional and mutable. Image holds the
// relative path of an uploaded image under the media root, or "" if none.
type Post struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	AuthorID  int64     `json:"author_id"`
	GroupID   *int64    `json:"group_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Hydrated relations, populated by list queries so templates never
	// trigger per-item lookups.
	Author *User  `json:"author,omitempty"`
	Group  *Group `json:"group,omitempty"`
}

// Comment is a reply bound to a post. Post and author are immutable once
// created.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	Author *User `json:"author,omitempty"`
}

// Follow is a directed edge meaning "UserID wants AuthorID's posts in
// their feed". The (UserID, AuthorID) pair is unique.
type Follow struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
