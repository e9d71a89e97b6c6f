// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package pagination slices ordered collections into fixed-size pages.
//
// Page numbers come from the "page" query parameter and are 1-based.
// Invalid or out-of-range numbers never error: they clamp to the nearest
// valid page so a stale link still renders a sensible page.
package pagination

import (
	"net/http"
	"strconv"
)

// DefaultPageSize is the number of items per page used throughout the app
// unless overridden by configuration.
const DefaultPageSize = 10

// Page is a bounded window over an ordered collection plus the metadata
// templates need for prev/next navigation.
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	TotalItems int
	TotalPages int
}

// HasNext reports whether a page after this one exists.
func (p Page[T]) HasNext() bool {
	return p.Number < p.TotalPages
}

// HasPrev reports whether a page before this one exists.
func (p Page[T]) HasPrev() bool {
	return p.Number > 1
}

// NextNumber returns the next page number, or the current one on the last page.
func (p Page[T]) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

// PrevNumber returns the previous page number, or the current one on page 1.
func (p Page[T]) PrevNumber() int {
	if p.HasPrev() {
		return p.Number - 1
	}
	return p.Number
}

// PageNumber extracts the requested page number from the "page" query
// parameter. Absent or non-numeric values degrade to page 1.
func PageNumber(r *http.Request) int {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// PageCount returns the number of pages needed for total items.
// An empty collection still has one (empty) page.
func PageCount(total, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Clamp snaps a requested page number to the nearest valid page for the
// given collection size.
func Clamp(number, size, total int) int {
	if number < 1 {
		return 1
	}
	if last := PageCount(total, size); number > last {
		return last
	}
	return number
}

// Offset returns the query offset for a (1-based) page number.
func Offset(number, size int) int {
	if number < 1 {
		return 0
	}
	return (number - 1) * size
}

// New builds a Page from an already-windowed item slice. The caller is
// expected to have clamped number and queried with Offset/size.
func New[T any](items []T, number, size, total int) Page[T] {
	return Page[T]{
		Items:      items,
		Number:     Clamp(number, size, total),
		Size:       size,
		TotalItems: total,
		TotalPages: PageCount(total, size),
	}
}

// Paginate slices a full in-memory collection into the requested page,
// clamping out-of-range page numbers.
func Paginate[T any](items []T, number, size int) Page[T] {
	if size < 1 {
		size = DefaultPageSize
	}
	total := len(items)
	number = Clamp(number, size, total)

	start := Offset(number, size)
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return New(items[start:end], number, size, total)
}
