// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package api

import (
	"context"
	"net/http"
)

// User is the backend's account record. Token is only populated by the
// login and register endpoints.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

// ProfileUpdate carries the mutable profile fields. Zero-valued fields are
// omitted so the backend only touches what the user changed.
type ProfileUpdate struct {
	Name            string `json:"name,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// Login calls POST /auth/login with the given credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	in := map[string]string{"email": email, "password": password}
	var out User
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register calls POST /auth/register with a new user profile.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	in := map[string]string{"name": name, "email": email, "password": password}
	var out User
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile calls PUT /auth/profile for the current user.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPut, "/auth/profile", upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
