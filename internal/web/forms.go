// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

package web

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance serves all forms.
var validate = validator.New(validator.WithRequiredStructEnabled())

// SignupForm carries the signup fields.
type SignupForm struct {
	Username        string `validate:"required,alphanum,min=3,max=30"`
	Password        string `validate:"required,min=8,max=128"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

// LoginForm carries the login fields.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// PostForm carries the post create/edit fields. GroupID zero means no
// group.
type PostForm struct {
	Text    string `validate:"required,max=10000"`
	GroupID int64  `validate:"min=0"`
}

// CommentForm carries the comment fields.
type CommentForm struct {
	Text string `validate:"required,max=2000"`
}

// fieldNames maps struct fields to their form input names.
var fieldNames = map[string]string{
	"Username":        "username",
	"Password":        "password",
	"PasswordConfirm": "password_confirm",
	"Text":            "text",
	"GroupID":         "group",
}

// fieldMessages maps validation tags to user-facing messages.
var fieldMessages = map[string]string{
	"required": "This field is required.",
	"alphanum": "Use letters and digits only.",
	"min":      "Too short.",
	"max":      "Too long.",
	"eqfield":  "Passwords do not match.",
}

// validateForm runs validation and translates failures into a map of
// form input name to message. Returns nil when the form is valid.
func validateForm(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "Invalid input."}
	}

	fieldErrors := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name, ok := fieldNames[fe.Field()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "Invalid value."
		}
		fieldErrors[name] = msg
	}
	return fieldErrors
}

// parseGroupID parses the optional group select value. Empty means no
// group.
func parseGroupID(raw string) (int64, bool) {
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
