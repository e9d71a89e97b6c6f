// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package authz contains authorization policy for content ownership.
// Policy checks return an explicit Decision rather than an error so that
// handlers can choose the response shape (redirect for the HTML app,
// status code for the API) without inspecting error values.
package authz

import "github.com/plumehq/plume/internal/models"

// Decision is the outcome of an authorization check.
type Decision struct {
	allowed bool
	reason  string
}

// Authorized is the permissive decision.
var Authorized = Decision{allowed: true}

// Forbidden builds a denying decision with a human-readable reason.
func Forbidden(reason string) Decision {
	return Decision{reason: reason}
}

// Allowed reports whether the action may proceed.
func (d Decision) Allowed() bool { return d.allowed }

// Reason returns why the action was denied. Empty for allowed decisions.
func (d Decision) Reason() string { return d.reason }

// CanEditPost decides whether the user may edit the post. Only the author
// may edit.
func CanEditPost(userID int64, post *models.Post) Decision {
	if post.AuthorID != userID {
		return Forbidden("only the author may edit a post")
	}
	return Authorized
}

// CanFollow decides whether the user may follow the author. Users cannot
// follow themselves.
func CanFollow(userID, authorID int64) Decision {
	if userID == authorID {
		return Forbidden("users cannot follow themselves")
	}
	return Authorized
}
