// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package api

import (
	"context"
	"fmt"
	"net/http"
)

// ChatSession identifies one server-side conversation for a project.
// Sessions are listed newest first.
type ChatSession struct {
	ID        string `json:"id"`
	ProjectID int    `json:"project_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ChatMessage is one message in a server-side session transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ListChatSessions calls GET /chat/sessions/{projectId}.
func (c *Client) ListChatSessions(ctx context.Context, projectID int) ([]ChatSession, error) {
	var out []ChatSession
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/sessions/%d", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChatMessages calls GET /chat/messages/{sessionId}.
func (c *Client) GetChatMessages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	var out []ChatMessage
	if err := c.do(ctx, http.MethodGet, "/chat/messages/"+sessionID, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
