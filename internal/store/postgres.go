// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plumehq/plume/internal/models"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// schema is applied at startup. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS groups (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	slug        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS posts (
	id         BIGSERIAL PRIMARY KEY,
	text       TEXT NOT NULL,
	image      TEXT NOT NULL DEFAULT '',
	author_id  BIGINT NOT NULL REFERENCES users(id),
	group_id   BIGINT REFERENCES groups(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS posts_author_created_idx ON posts (author_id, created_at DESC);
CREATE INDEX IF NOT EXISTS posts_group_created_idx ON posts (group_id, created_at DESC);

CREATE TABLE IF NOT EXISTS comments (
	id         BIGSERIAL PRIMARY KEY,
	post_id    BIGINT NOT NULL REFERENCES posts(id),
	author_id  BIGINT NOT NULL REFERENCES users(id),
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS comments_post_idx ON comments (post_id);

CREATE TABLE IF NOT EXISTS follows (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id),
	author_id  BIGINT NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, author_id)
);
`

// postSelect joins the author and group so list pages render without
// per-item lookups.
const postSelect = `
SELECT p.id, p.text, p.image, p.author_id, p.group_id, p.created_at,
       u.username, u.created_at,
       g.title, g.slug, g.description
FROM posts p
JOIN users u ON u.id = p.author_id
LEFT JOIN groups g ON g.id = p.group_id
`

// PostgresStore is a Store backed by PostgreSQL via pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres, verifies connectivity and applies
// the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// isDuplicate reports whether err is a unique constraint violation.
func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateUser implements Store.
func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		u.Username, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// UserByUsername implements Store.
func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UserByID implements Store.
func (s *PostgresStore) UserByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateGroup implements Store.
func (s *PostgresStore) CreateGroup(ctx context.Context, g *models.Group) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO groups (title, slug, description) VALUES ($1, $2, $3) RETURNING id`,
		g.Title, g.Slug, g.Description,
	).Scan(&g.ID)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// GroupBySlug implements Store.
func (s *PostgresStore) GroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	g := &models.Group{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, slug, description FROM groups WHERE slug = $1`,
		slug,
	).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GroupByID implements Store.
func (s *PostgresStore) GroupByID(ctx context.Context, id int64) (*models.Group, error) {
	g := &models.Group{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, slug, description FROM groups WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Groups implements Store.
func (s *PostgresStore) Groups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, slug, description FROM groups ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreatePost implements Store.
func (s *PostgresStore) CreatePost(ctx context.Context, p *models.Post) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO posts (text, image, author_id, group_id) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		p.Text, p.Image, p.AuthorID, p.GroupID,
	).Scan(&p.ID, &p.CreatedAt)
}

// UpdatePost implements Store.
func (s *PostgresStore) UpdatePost(ctx context.Context, p *models.Post) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE posts SET text = $1, group_id = $2, image = $3 WHERE id = $4`,
		p.Text, p.GroupID, p.Image, p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanPost scans a row produced by postSelect.
func scanPost(row pgx.Row) (*models.Post, error) {
	p := &models.Post{Author: &models.User{}}
	var groupTitle, groupSlug, groupDesc *string
	err := row.Scan(
		&p.ID, &p.Text, &p.Image, &p.AuthorID, &p.GroupID, &p.CreatedAt,
		&p.Author.Username, &p.Author.CreatedAt,
		&groupTitle, &groupSlug, &groupDesc,
	)
	if err != nil {
		return nil, err
	}
	p.Author.ID = p.AuthorID
	if p.GroupID != nil {
		p.Group = &models.Group{
			ID:          *p.GroupID,
			Title:       *groupTitle,
			Slug:        *groupSlug,
			Description: *groupDesc,
		}
	}
	return p, nil
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	defer rows.Close()

	out := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// PostByID implements Store.
func (s *PostgresStore) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Posts implements Store.
func (s *PostgresStore) Posts(ctx context.Context, limit, offset int) ([]models.Post, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		postSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	posts, err := collectPosts(rows)
	return posts, total, err
}

// PostsByGroup implements Store.
func (s *PostgresStore) PostsByGroup(ctx context.Context, groupID int64, limit, offset int) ([]models.Post, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM posts WHERE group_id = $1`, groupID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		postSelect+` WHERE p.group_id = $1 ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3`,
		groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	posts, err := collectPosts(rows)
	return posts, total, err
}

// PostsByAuthor implements Store.
func (s *PostgresStore) PostsByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]models.Post, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM posts WHERE author_id = $1`, authorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx,
		postSelect+` WHERE p.author_id = $1 ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3`,
		authorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	posts, err := collectPosts(rows)
	return posts, total, err
}

// PostsByFollowed implements Store.
func (s *PostgresStore) PostsByFollowed(ctx context.Context, userID int64) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx,
		postSelect+` WHERE p.author_id IN (SELECT author_id FROM follows WHERE user_id = $1)
		 ORDER BY p.created_at DESC, p.id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

// CreateComment implements Store.
func (s *PostgresStore) CreateComment(ctx context.Context, c *models.Comment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO comments (post_id, author_id, text) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.PostID, c.AuthorID, c.Text,
	).Scan(&c.ID, &c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign key
		return ErrNotFound
	}
	return err
}

// CommentsByPost implements Store.
func (s *PostgresStore) CommentsByPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.post_id, c.author_id, c.text, c.created_at, u.username
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = $1 ORDER BY c.id`,
		postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Comment, 0)
	for rows.Next() {
		c := models.Comment{Author: &models.User{}}
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt, &c.Author.Username); err != nil {
			return nil, err
		}
		c.Author.ID = c.AuthorID
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateFollow implements Store. ON CONFLICT DO NOTHING makes repeated
// follows a no-op, preserving edge uniqueness.
func (s *PostgresStore) CreateFollow(ctx context.Context, userID, authorID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO follows (user_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, authorID)
	return err
}

// DeleteFollow implements Store.
func (s *PostgresStore) DeleteFollow(ctx context.Context, userID, authorID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM follows WHERE user_id = $1 AND author_id = $2`,
		userID, authorID)
	return err
}

// FollowExists implements Store.
func (s *PostgresStore) FollowExists(ctx context.Context, userID, authorID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND author_id = $2)`,
		userID, authorID).Scan(&exists)
	return exists, err
}

// FollowerIDs implements Store.
func (s *PostgresStore) FollowerIDs(ctx context.Context, authorID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM follows WHERE author_id = $1`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
