// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

//go:build integration

package store

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/plumehq/plume/internal/models"
)

// skipIfNoDocker skips the test when no Docker daemon is reachable so the
// integration suite degrades gracefully on developer machines.
func skipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// startPostgres launches a disposable Postgres container and returns a
// connected store.
func startPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "plume",
			"POSTGRES_PASSWORD": "plume",
			"POSTGRES_DB":       "plume_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://plume:plume@%s:%s/plume_test?sslmode=disable", host, port.Port())
	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	skipIfNoDocker(t)

	s := startPostgres(t)
	ctx := context.Background()

	author := &models.User{Username: "author", PasswordHash: "hash"}
	if err := s.CreateUser(ctx, author); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{Username: "author", PasswordHash: "x"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate username: got %v, want ErrDuplicate", err)
	}

	group := &models.Group{Title: "Go", Slug: "go", Description: "gophers"}
	if err := s.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	post := &models.Post{Text: "hello postgres", AuthorID: author.ID, GroupID: &group.ID}
	if err := s.CreatePost(ctx, post); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.ID == 0 || post.CreatedAt.IsZero() {
		t.Fatalf("post not assigned id/timestamp: %+v", post)
	}

	got, err := s.PostByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("PostByID: %v", err)
	}
	if got.Author == nil || got.Author.Username != "author" {
		t.Error("author not hydrated")
	}
	if got.Group == nil || got.Group.Slug != "go" {
		t.Error("group not hydrated")
	}

	if _, err := s.PostByID(ctx, 999999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing post: got %v, want ErrNotFound", err)
	}

	// Pagination totals.
	posts, total, err := s.Posts(ctx, 10, 0)
	if err != nil || total != 1 || len(posts) != 1 {
		t.Fatalf("Posts = %d items, total %d, err %v", len(posts), total, err)
	}

	// Follow idempotence through the unique constraint.
	fan := &models.User{Username: "fan", PasswordHash: "x"}
	if err := s.CreateUser(ctx, fan); err != nil {
		t.Fatalf("CreateUser fan: %v", err)
	}
	if err := s.CreateFollow(ctx, fan.ID, author.ID); err != nil {
		t.Fatalf("CreateFollow: %v", err)
	}
	if err := s.CreateFollow(ctx, fan.ID, author.ID); err != nil {
		t.Fatalf("repeat CreateFollow: %v", err)
	}
	followers, err := s.FollowerIDs(ctx, author.ID)
	if err != nil || len(followers) != 1 {
		t.Fatalf("FollowerIDs = %v, %v; want one edge", followers, err)
	}

	feed, err := s.PostsByFollowed(ctx, fan.ID)
	if err != nil || len(feed) != 1 {
		t.Fatalf("PostsByFollowed = %d, %v", len(feed), err)
	}

	if err := s.DeleteFollow(ctx, fan.ID, author.ID); err != nil {
		t.Fatalf("DeleteFollow: %v", err)
	}
	if err := s.DeleteFollow(ctx, fan.ID, author.ID); err != nil {
		t.Fatalf("repeat DeleteFollow: %v", err)
	}

	// Comments.
	comment := &models.Comment{PostID: post.ID, AuthorID: fan.ID, Text: "nice"}
	if err := s.CreateComment(ctx, comment); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	comments, err := s.CommentsByPost(ctx, post.ID)
	if err != nil || len(comments) != 1 || comments[0].Author.Username != "fan" {
		t.Fatalf("CommentsByPost = %+v, %v", comments, err)
	}
}
