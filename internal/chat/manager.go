// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package chat maintains per-project conversation state: remote-session
// continuity, the optimistic message lifecycle, and local history
// persistence. Sends are serialized per manager; the pending assistant
// placeholder exists only in memory and never reaches the cache.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"qlens/cli/internal/api"
	"qlens/cli/internal/cache"
	"qlens/cli/internal/errs"
	"qlens/cli/internal/sqlpipe"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PendingContent is the placeholder text shown while a reply is in flight.
const PendingContent = "Thinking..."

// ErrBusy is returned when a send is attempted while another is in flight.
var ErrBusy = errs.New(errs.Validation, "a message is already being processed")

// Message is one entry in a project conversation. Pending marks the
// in-flight assistant placeholder; it is stripped before persistence.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"-"`
}

// Backend is the slice of the API the chat manager depends on.
type Backend interface {
	ListChatSessions(ctx context.Context, projectID int) ([]api.ChatSession, error)
	GetChatMessages(ctx context.Context, sessionID string) ([]api.ChatMessage, error)
}

// Pipeline dispatches one request and classifies the reply.
type Pipeline interface {
	Process(ctx context.Context, projectID, message string, convCtx *sqlpipe.Context) (*sqlpipe.Outcome, error)
}

// Manager is the per-project conversation state machine. It starts Idle;
// Send moves it to Sending until the reply settles. Concurrent sends are
// rejected rather than reordered.
type Manager struct {
	projectID int
	be        Backend
	pipe      Pipeline
	cache     cache.Store
	log       *zap.Logger

	mu        sync.Mutex
	messages  []Message
	sessionID string
	sending   bool
}

// NewManager constructs a chat manager for one project.
func NewManager(projectID int, be Backend, pipe Pipeline, c cache.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{projectID: projectID, be: be, pipe: pipe, cache: c, log: log}
}

// Activate loads the conversation: the most recent remote session and its
// transcript when one exists, otherwise the locally cached history,
// otherwise an empty conversation. It never fails; every fallback is
// logged and silent.
func (m *Manager) Activate(ctx context.Context) {
	sessions, err := m.be.ListChatSessions(ctx, m.projectID)
	if err == nil && len(sessions) > 0 {
		latest := sessions[0]
		remote, merr := m.be.GetChatMessages(ctx, latest.ID)
		if merr == nil {
			m.mu.Lock()
			m.sessionID = latest.ID
			m.messages = fromRemote(remote)
			m.mu.Unlock()
			return
		}
		m.log.Warn("failed to load remote chat transcript",
			zap.Int("project_id", m.projectID), zap.String("session_id", latest.ID), zap.Error(merr))
	} else if err != nil {
		m.log.Warn("failed to list remote chat sessions",
			zap.Int("project_id", m.projectID), zap.Error(err))
	}

	m.mu.Lock()
	m.messages = m.loadLocal()
	m.mu.Unlock()
}

// Messages returns a snapshot of the conversation, including any pending
// placeholder.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// SessionID returns the backend session id, empty until one is known.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Sending reports whether a send is in flight.
func (m *Manager) Sending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sending
}

// Send submits the user's text. Empty or whitespace-only text and sends
// attempted while another is in flight fail locally without dispatching a
// request or touching the conversation. On success exactly one user and
// one assistant message have been appended, in that order, and persisted.
// On failure the conversation is restored to its pre-placeholder state
// with the user message retained; no failure message is persisted.
func (m *Manager) Send(ctx context.Context, text string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.New(errs.Validation, "message is empty")
	}

	m.mu.Lock()
	if m.sending {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	m.sending = true

	now := time.Now()
	userMsg := Message{Role: RoleUser, Content: text, Timestamp: now}
	m.messages = append(m.messages, userMsg)
	m.persistLocked()

	convCtx := m.contextLocked()
	m.messages = append(m.messages, Message{
		Role: RoleAssistant, Content: PendingContent, Timestamp: now, Pending: true,
	})
	m.mu.Unlock()

	out, err := m.pipe.Process(ctx, strconv.Itoa(m.projectID), text, convCtx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropPendingLocked()
	m.sending = false

	if err != nil {
		return nil, err
	}

	reply := Message{Role: RoleAssistant, Content: renderOutcome(out), Timestamp: time.Now()}
	m.messages = append(m.messages, reply)
	m.persistLocked()
	return &reply, nil
}

// contextLocked builds the conversational context: everything before the
// just-appended user message as previous_messages, the full list as
// chat_history.
func (m *Manager) contextLocked() *sqlpipe.Context {
	hist := make([]sqlpipe.ContextMessage, 0, len(m.messages))
	for _, msg := range m.messages {
		if msg.Pending {
			continue
		}
		hist = append(hist, sqlpipe.ContextMessage{Role: msg.Role, Content: msg.Content})
	}
	prev := hist
	if len(hist) > 0 {
		prev = hist[:len(hist)-1]
	}
	return &sqlpipe.Context{PreviousMessages: prev, ChatHistory: hist}
}

func (m *Manager) dropPendingLocked() {
	out := m.messages[:0]
	for _, msg := range m.messages {
		if !msg.Pending {
			out = append(out, msg)
		}
	}
	m.messages = out
}

// persistLocked mirrors the settled conversation to the cache.
// Best-effort: a failed write degrades to in-memory history.
func (m *Manager) persistLocked() {
	settled := make([]Message, 0, len(m.messages))
	for _, msg := range m.messages {
		if !msg.Pending {
			settled = append(settled, msg)
		}
	}
	raw, err := json.Marshal(settled)
	if err != nil {
		m.log.Warn("failed to encode chat history", zap.Int("project_id", m.projectID), zap.Error(err))
		return
	}
	if err := m.cache.Set(cache.ChatHistoryKey(m.projectID), string(raw)); err != nil {
		m.log.Warn("failed to save chat history", zap.Int("project_id", m.projectID), zap.Error(err))
	}
}

// loadLocal reads the cached history; corrupt entries degrade to empty.
func (m *Manager) loadLocal() []Message {
	raw, ok, err := m.cache.Get(cache.ChatHistoryKey(m.projectID))
	if err != nil || !ok {
		if err != nil {
			m.log.Warn("failed to read chat history", zap.Int("project_id", m.projectID), zap.Error(err))
		}
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		m.log.Warn("corrupt chat history, starting empty",
			zap.Int("project_id", m.projectID), zap.Error(err))
		return nil
	}
	return msgs
}

// renderOutcome flattens a pipeline outcome into the assistant reply
// text, appending follow-up suggestions as a formatted list when present.
func renderOutcome(out *sqlpipe.Outcome) string {
	var text string
	var followUp []string
	switch out.Type {
	case sqlpipe.OutcomeText:
		text = out.Message
	case sqlpipe.OutcomeAnalysis:
		text = out.Analysis.Explanation
		followUp = out.Analysis.FollowUp
	}
	if len(followUp) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n\n**Suggested Follow-up Questions:**\n")
		for _, q := range followUp {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		return b.String()
	}
	return text
}

func fromRemote(remote []api.ChatMessage) []Message {
	out := make([]Message, 0, len(remote))
	for _, msg := range remote {
		out = append(out, Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
