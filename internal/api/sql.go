// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// ProcessRequest is the body of POST /sql/process. Context carries the
// conversation so the backend can resolve follow-up questions.
type ProcessRequest struct {
	ProjectID int    `json:"project_id"`
	Message   string `json:"message"`
	Context   any    `json:"context,omitempty"`
}

// ProcessEnvelope is the raw reply of POST /sql/process. Content is left
// undecoded; its shape depends on Type and is classified by the pipeline.
type ProcessEnvelope struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// ProcessSQL submits a natural-language or SQL request for a project.
func (c *Client) ProcessSQL(ctx context.Context, req ProcessRequest) (*ProcessEnvelope, error) {
	var out ProcessEnvelope
	if err := c.do(ctx, http.MethodPost, "/sql/process", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
