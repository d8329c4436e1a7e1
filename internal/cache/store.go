// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cache provides the persistent key/value store used by the
// session, project, and chat layers. The store holds no business logic;
// higher components decide what to keep under which key. Implementations
// are injected so tests can substitute an in-memory store.
package cache

import "fmt"

// Storage keys shared across components.
const (
	KeySessionToken = "session_token"
	KeySessionUser  = "session_user"
	KeyProjects     = "projects"
)

// ProjectKey returns the cache key holding the encoded record for a project.
func ProjectKey(id int) string { return fmt.Sprintf("project_%d", id) }

// ChatHistoryKey returns the cache key holding the serialized message list
// for a project's chat.
func ChatHistoryKey(projectID int) string { return fmt.Sprintf("chat_history_%d", projectID) }

// Store is a key/value abstraction over durable client-side storage.
// Get reports ok=false when the key is absent; absence is not an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}
