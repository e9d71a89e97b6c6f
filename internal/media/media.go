// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package media stores uploaded post images on the local filesystem.
// Files keep their original name where possible; collisions are resolved
// by appending a short unique suffix. Only GIF, JPEG and PNG uploads are
// accepted.
package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// postsSubdir is where post images live under the media root.
const postsSubdir = "posts"

var (
	// ErrUnsupportedType indicates an upload that is not GIF, JPEG or PNG.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrTooLarge indicates an upload exceeding the configured size cap.
	ErrTooLarge = errors.New("image exceeds maximum upload size")
)

// allowedTypes maps accepted content types as detected by sniffing.
var allowedTypes = map[string]bool{
	"image/gif":  true,
	"image/jpeg": true,
	"image/png":  true,
}

// Storage saves and serves uploaded images.
type Storage struct {
	root    string
	maxSize int64
}

// NewStorage creates a Storage rooted at dir. The posts subdirectory is
// created if missing.
func NewStorage(dir string, maxSize int64) (*Storage, error) {
	if err := os.MkdirAll(filepath.Join(dir, postsSubdir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Storage{root: dir, maxSize: maxSize}, nil
}

// Root returns the media root directory.
func (s *Storage) Root() string {
	return s.root
}

// MaxUploadSize returns the configured upload size cap in bytes.
func (s *Storage) MaxUploadSize() int64 {
	return s.maxSize
}

// SavePost stores an uploaded post image and returns its media-relative
// path (e.g. "posts/small.gif"). The content type is detected from the
// file contents, not the client-supplied header.
func (s *Storage) SavePost(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	if !allowedTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := s.uniqueName(sanitize(filename))
	rel := filepath.Join(postsSubdir, name)
	if err := os.WriteFile(filepath.Join(s.root, rel), data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// uniqueName returns name if unused, otherwise name with a short unique
// suffix before the extension.
func (s *Storage) uniqueName(name string) string {
	if _, err := os.Stat(filepath.Join(s.root, postsSubdir, name)); os.IsNotExist(err) {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%s%s", base, suffix, ext)
}

// sanitize strips path components and replaces an empty name.
func sanitize(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload"
	}
	return name
}
