// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package api

import (
	"context"
	"fmt"
	"net/http"
)

// RemoteProject is the server-side project record. Configuration travels
// as an opaque encoded blob in EncryptedPath; identity fields (id,
// timestamps) are owned by the server.
type RemoteProject struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	EncryptedPath string `json:"encrypted_path"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// ProjectPayload is the request body for creating or updating a project.
type ProjectPayload struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	EncryptedPath string `json:"encrypted_path"`
}

// TableInfo describes one table reported by the database-info endpoint.
type TableInfo struct {
	Name        string `json:"name"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
}

// DatabaseInfo is the live connection report for a project's database.
// It is never cached locally; staleness would defeat its purpose.
type DatabaseInfo struct {
	DatabaseName     string      `json:"database_name"`
	Tables           []TableInfo `json:"tables"`
	ConnectionStatus bool        `json:"connection_status"`
}

// ListProjects calls GET /projects.
func (c *Client) ListProjects(ctx context.Context) ([]RemoteProject, error) {
	var out []RemoteProject
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject calls POST /projects. The server assigns id and timestamps.
func (c *Client) CreateProject(ctx context.Context, p ProjectPayload) (*RemoteProject, error) {
	var out RemoteProject
	if err := c.do(ctx, http.MethodPost, "/projects", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProject calls GET /projects/{id}.
func (c *Client) GetProject(ctx context.Context, id int) (*RemoteProject, error) {
	var out RemoteProject
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject calls PUT /projects/{id}.
func (c *Client) UpdateProject(ctx context.Context, id int, p ProjectPayload) (*RemoteProject, error) {
	var out RemoteProject
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/projects/%d", id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject calls DELETE /projects/{id}.
func (c *Client) DeleteProject(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, nil)
}

// DatabaseInfoFor calls GET /projects/{id}/database-info.
func (c *Client) DatabaseInfoFor(ctx context.Context, id int) (*DatabaseInfo, error) {
	var out DatabaseInfo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d/database-info", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
