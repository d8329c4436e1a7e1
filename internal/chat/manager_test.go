// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlens/cli/internal/api"
	"qlens/cli/internal/cache"
	"qlens/cli/internal/errs"
	"qlens/cli/internal/sqlpipe"
)

// fakeChatBackend serves canned remote sessions and transcripts.
type fakeChatBackend struct {
	sessions    []api.ChatSession
	messages    []api.ChatMessage
	sessionsErr error
	messagesErr error
}

func (f *fakeChatBackend) ListChatSessions(ctx context.Context, projectID int) ([]api.ChatSession, error) {
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	return f.sessions, nil
}

func (f *fakeChatBackend) GetChatMessages(ctx context.Context, sessionID string) ([]api.ChatMessage, error) {
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.messages, nil
}

// fakePipeline replays one outcome or error and records inputs.
type fakePipeline struct {
	out   *sqlpipe.Outcome
	err   error
	calls int
	ctx   *sqlpipe.Context

	// observe, when set, is called mid-flight with the manager under test.
	observe func()
}

func (f *fakePipeline) Process(ctx context.Context, projectID, message string, convCtx *sqlpipe.Context) (*sqlpipe.Outcome, error) {
	f.calls++
	f.ctx = convCtx
	if f.observe != nil {
		f.observe()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func textOutcome(msg string) *sqlpipe.Outcome {
	return &sqlpipe.Outcome{Type: sqlpipe.OutcomeText, Message: msg}
}

func newTestManager(be Backend, pipe Pipeline, c cache.Store) *Manager {
	if be == nil {
		be = &fakeChatBackend{}
	}
	if c == nil {
		c = cache.NewMemory()
	}
	return NewManager(7, be, pipe, c, nil)
}

func cachedMessages(t *testing.T, c cache.Store, projectID int) []Message {
	t.Helper()
	raw, ok, err := c.Get(cache.ChatHistoryKey(projectID))
	require.NoError(t, err)
	if !ok {
		return nil
	}
	var msgs []Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msgs))
	return msgs
}

func TestActivatePrefersRemoteTranscript(t *testing.T) {
	be := &fakeChatBackend{
		sessions: []api.ChatSession{{ID: "sess-9", ProjectID: 7}},
		messages: []api.ChatMessage{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
	}
	c := cache.NewMemory()
	stale, _ := json.Marshal([]Message{{Role: RoleUser, Content: "stale local"}})
	require.NoError(t, c.Set(cache.ChatHistoryKey(7), string(stale)))

	m := newTestManager(be, &fakePipeline{}, c)
	m.Activate(context.Background())

	assert.Equal(t, "sess-9", m.SessionID())
	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestActivateFallsBackToLocalHistory(t *testing.T) {
	be := &fakeChatBackend{sessionsErr: errors.New("offline")}
	c := cache.NewMemory()
	local, _ := json.Marshal([]Message{{Role: RoleUser, Content: "from cache"}})
	require.NoError(t, c.Set(cache.ChatHistoryKey(7), string(local)))

	m := newTestManager(be, &fakePipeline{}, c)
	m.Activate(context.Background())

	assert.Equal(t, "", m.SessionID())
	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "from cache", msgs[0].Content)
}

func TestActivateCorruptLocalHistoryStartsEmpty(t *testing.T) {
	be := &fakeChatBackend{}
	c := cache.NewMemory()
	require.NoError(t, c.Set(cache.ChatHistoryKey(7), "not json"))

	m := newTestManager(be, &fakePipeline{}, c)
	m.Activate(context.Background())
	assert.Empty(t, m.Messages())
}

func TestSendRejectsEmptyInput(t *testing.T) {
	pipe := &fakePipeline{}
	m := newTestManager(nil, pipe, nil)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := m.Send(context.Background(), input)
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.Validation))
	}
	assert.Equal(t, 0, pipe.calls)
	assert.Empty(t, m.Messages())
}

func TestSendSuccess(t *testing.T) {
	pipe := &fakePipeline{out: textOutcome("You have 12 tables.")}
	c := cache.NewMemory()
	m := newTestManager(nil, pipe, c)

	reply, err := m.Send(context.Background(), "how many tables?")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, reply.Role)
	assert.Equal(t, "You have 12 tables.", reply.Content)

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "how many tables?", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.False(t, msgs[1].Pending)
	assert.False(t, m.Sending())

	persisted := cachedMessages(t, c, 7)
	require.Len(t, persisted, 2)
	assert.Equal(t, "You have 12 tables.", persisted[1].Content)
}

func TestSendShowsPendingPlaceholderInFlight(t *testing.T) {
	pipe := &fakePipeline{out: textOutcome("done")}
	m := newTestManager(nil, pipe, nil)

	pipe.observe = func() {
		msgs := m.Messages()
		require.Len(t, msgs, 2)
		assert.True(t, msgs[1].Pending)
		assert.Equal(t, PendingContent, msgs[1].Content)
		assert.True(t, m.Sending())
	}
	_, err := m.Send(context.Background(), "q")
	require.NoError(t, err)
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	pipe := &fakePipeline{out: textOutcome("done")}
	m := newTestManager(nil, pipe, nil)

	var busyErr error
	pipe.observe = func() {
		if pipe.calls == 1 {
			_, busyErr = m.Send(context.Background(), "while busy")
		}
	}
	_, err := m.Send(context.Background(), "q")
	require.NoError(t, err)
	assert.ErrorIs(t, busyErr, ErrBusy)
	assert.Equal(t, 1, pipe.calls)
}

func TestSendFailureRemovesPlaceholderKeepsUserMessage(t *testing.T) {
	pipe := &fakePipeline{err: errs.New(errs.Server, "Server error occurred while processing your request")}
	c := cache.NewMemory()
	m := newTestManager(nil, pipe, c)

	_, err := m.Send(context.Background(), "bad question")
	require.Error(t, err)

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.False(t, m.Sending())

	// only the user message is persisted, never a failure reply
	persisted := cachedMessages(t, c, 7)
	require.Len(t, persisted, 1)
	assert.Equal(t, RoleUser, persisted[0].Role)

	// the manager accepts the next send
	pipe.err = nil
	pipe.out = textOutcome("recovered")
	_, err = m.Send(context.Background(), "retry")
	require.NoError(t, err)
	assert.Len(t, m.Messages(), 3)
}

func TestSendBuildsConversationContext(t *testing.T) {
	pipe := &fakePipeline{out: textOutcome("second reply")}
	m := newTestManager(nil, pipe, nil)

	pipe.out = textOutcome("first reply")
	_, err := m.Send(context.Background(), "first question")
	require.NoError(t, err)

	pipe.out = textOutcome("second reply")
	_, err = m.Send(context.Background(), "second question")
	require.NoError(t, err)

	require.NotNil(t, pipe.ctx)
	// chat_history includes the just-sent message, previous_messages does not
	require.Len(t, pipe.ctx.ChatHistory, 3)
	assert.Equal(t, "second question", pipe.ctx.ChatHistory[2].Content)
	require.Len(t, pipe.ctx.PreviousMessages, 2)
	assert.Equal(t, "first reply", pipe.ctx.PreviousMessages[1].Content)
}

func TestRenderOutcome(t *testing.T) {
	tests := []struct {
		name string
		out  *sqlpipe.Outcome
		want string
	}{
		{
			name: "text",
			out:  textOutcome("plain reply"),
			want: "plain reply",
		},
		{
			name: "analysis without follow up",
			out: &sqlpipe.Outcome{
				Type:     sqlpipe.OutcomeAnalysis,
				Analysis: &sqlpipe.Analysis{Explanation: "these are your rows"},
			},
			want: "these are your rows",
		},
		{
			name: "analysis with follow up",
			out: &sqlpipe.Outcome{
				Type: sqlpipe.OutcomeAnalysis,
				Analysis: &sqlpipe.Analysis{
					Explanation: "these are your rows",
					FollowUp:    []string{"only last month?", "group by region?"},
				},
			},
			want: "these are your rows\n\n**Suggested Follow-up Questions:**\n- only last month?\n- group by region?\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderOutcome(tt.out))
		})
	}
}
