// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session owns the bearer credential and the current-user record.
// A session lives from a successful login or registration until logout or
// an authorization failure. Token and user are persisted to the injected
// cache store under the session_token and session_user keys so the session
// survives process restarts.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"qlens/cli/internal/api"
	"qlens/cli/internal/cache"
	"qlens/cli/internal/errs"
)

// User is the locally persisted account record.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session pairs the bearer credential with its account.
type Session struct {
	Token string
	User  User
}

// Credentials are the login inputs.
type Credentials struct {
	Email    string
	Password string
}

// Profile are the registration inputs.
type Profile struct {
	Name     string
	Email    string
	Password string
}

// Backend is the slice of the API the session manager depends on.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.User, error)
	Register(ctx context.Context, name, email, password string) (*api.User, error)
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error)
}

// Manager performs authentication operations and persists the resulting
// session. It is also the process-wide reaction point for 401 replies.
type Manager struct {
	be    Backend
	store cache.Store
	log   *zap.Logger

	// onTeardown runs after an authorization failure has cleared the
	// session, so the UI can steer the user back to login.
	onTeardown func()
}

// NewManager constructs a session manager over the given backend and store.
func NewManager(be Backend, store cache.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{be: be, store: store, log: log}
}

// OnTeardown installs the hook run after a forced session teardown.
func (m *Manager) OnTeardown(fn func()) { m.onTeardown = fn }

// Login authenticates with email and password. On success the token and
// user record are persisted; a cache write failure fails the login because
// an unpersisted session would silently vanish on the next command.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, errs.New(errs.Validation, "email and password are required")
	}
	u, err := m.be.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	return m.persist(u)
}

// Register creates a new account. Uniqueness conflicts come back from the
// backend as 400s and are surfaced as validation errors.
func (m *Manager) Register(ctx context.Context, p Profile) (*Session, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Email) == "" || p.Password == "" {
		return nil, errs.New(errs.Validation, "name, email and password are required")
	}
	u, err := m.be.Register(ctx, p.Name, p.Email, p.Password)
	if err != nil {
		if errs.IsKind(err, errs.BadRequest) {
			return nil, errs.Wrap(errs.Validation, errs.MessageOf(err), err)
		}
		return nil, err
	}
	return m.persist(u)
}

// UpdateProfile applies profile changes and refreshes the persisted user
// record. Requires an active session.
func (m *Manager) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*Session, error) {
	u, err := m.be.UpdateProfile(ctx, upd)
	if err != nil {
		return nil, err
	}
	token := m.Token()
	if u.Token != "" {
		token = u.Token
	}
	u.Token = token
	return m.persist(u)
}

// Logout clears the persisted token and user record. Idempotent; no
// network call is made.
func (m *Manager) Logout() error {
	if err := m.store.Delete(cache.KeySessionToken); err != nil {
		return err
	}
	return m.store.Delete(cache.KeySessionUser)
}

// Current reads the session from the cache without a network call.
// Returns nil when no session exists. A corrupt user record is treated as
// no session and logged, never surfaced.
func (m *Manager) Current() *Session {
	token, ok, err := m.store.Get(cache.KeySessionToken)
	if err != nil || !ok || token == "" {
		return nil
	}
	raw, ok, err := m.store.Get(cache.KeySessionUser)
	if err != nil || !ok {
		return &Session{Token: token}
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		m.log.Warn("corrupt session_user record, ignoring", zap.Error(err))
		return &Session{Token: token}
	}
	return &Session{Token: token, User: u}
}

// Token returns the current bearer credential, empty when logged out.
// Suitable as an api.TokenSource.
func (m *Manager) Token() string {
	token, ok, err := m.store.Get(cache.KeySessionToken)
	if err != nil || !ok {
		return ""
	}
	return token
}

// HandleUnauthorized is the process-wide reaction to a 401 reply: the
// persisted session is cleared and the teardown hook fires. Safe to call
// repeatedly.
func (m *Manager) HandleUnauthorized() {
	hadSession := m.Token() != ""
	if err := m.Logout(); err != nil {
		m.log.Warn("failed to clear session after authorization failure", zap.Error(err))
	}
	if hadSession && m.onTeardown != nil {
		m.onTeardown()
	}
}

// TokenExpiry peeks at the bearer token's exp claim without verifying the
// signature (the backend owns verification). Returns ok=false when the
// token is absent or carries no usable expiry.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	token := m.Token()
	if token == "" {
		return time.Time{}, false
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (m *Manager) persist(u *api.User) (*Session, error) {
	if u.Token == "" {
		return nil, errs.New(errs.Server, "server did not return a session token")
	}
	user := User{ID: u.ID, Name: u.Name, Email: u.Email}
	raw, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode user record: %w", err)
	}
	if err := m.store.Set(cache.KeySessionToken, u.Token); err != nil {
		return nil, fmt.Errorf("persist session token: %w", err)
	}
	if err := m.store.Set(cache.KeySessionUser, string(raw)); err != nil {
		return nil, fmt.Errorf("persist session user: %w", err)
	}
	return &Session{Token: u.Token, User: user}, nil
}
