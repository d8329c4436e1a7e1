// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package project

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"qlens/cli/internal/api"
	"qlens/cli/internal/cache"
	"qlens/cli/internal/errs"
)

// Backend is the slice of the API the project store depends on.
type Backend interface {
	ListProjects(ctx context.Context) ([]api.RemoteProject, error)
	CreateProject(ctx context.Context, p api.ProjectPayload) (*api.RemoteProject, error)
	GetProject(ctx context.Context, id int) (*api.RemoteProject, error)
	UpdateProject(ctx context.Context, id int, p api.ProjectPayload) (*api.RemoteProject, error)
	DeleteProject(ctx context.Context, id int) error
	DatabaseInfoFor(ctx context.Context, id int) (*api.DatabaseInfo, error)
}

// Store reconciles remote project records with the local cache.
//
// Cache writes are best-effort everywhere: a failed local write never
// fails an operation that already succeeded remotely.
type Store struct {
	be    Backend
	cache cache.Store
	log   *zap.Logger
}

// NewStore constructs a project store.
func NewStore(be Backend, c cache.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{be: be, cache: c, log: log}
}

// List fetches all remote projects and merges each with its cached local
// configuration.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	remotes, err := s.be.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Project, 0, len(remotes))
	for _, r := range remotes {
		out = append(out, s.merge(r))
	}
	return out, nil
}

// Get fetches one remote project and merges it with the cached local
// configuration.
func (s *Store) Get(ctx context.Context, id int) (*Project, error) {
	r, err := s.be.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := s.merge(*r)
	return &merged, nil
}

// Create validates the input, registers the project with the backend and
// writes the merged local record (password stripped) plus the index entry.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Project, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	wire, err := EncodeWire(in.DBConfig, nil, Metrics{})
	if err != nil {
		return nil, err
	}
	r, err := s.be.CreateProject(ctx, api.ProjectPayload{
		Name:          in.Name,
		Description:   in.Description,
		EncryptedPath: wire,
	})
	if err != nil {
		return nil, err
	}

	local := Project{
		ID:          r.ID,
		Name:        in.Name,
		Description: in.Description,
		DBConfig:    in.DBConfig,
		Queries:     []QueryRecord{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	s.writeLocal(local)
	local = Redact(local)
	return &local, nil
}

// Update pushes changed fields to the backend and rewrites the cached
// record and index entry.
func (s *Store) Update(ctx context.Context, id int, in UpdateInput) (*Project, error) {
	wire, err := EncodeWire(in.DBConfig, in.Queries, in.Performance)
	if err != nil {
		return nil, err
	}
	r, err := s.be.UpdateProject(ctx, id, api.ProjectPayload{
		Name:          in.Name,
		Description:   in.Description,
		EncryptedPath: wire,
	})
	if err != nil {
		return nil, err
	}

	local := Project{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		DBConfig:    in.DBConfig,
		Queries:     in.Queries,
		Performance: in.Performance,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	s.writeLocal(local)
	local = Redact(local)
	return &local, nil
}

// Delete removes the project remotely, then purges the cached record, the
// project's chat history and the index entry.
func (s *Store) Delete(ctx context.Context, id int) error {
	if err := s.be.DeleteProject(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(cache.ProjectKey(id)); err != nil {
		s.log.Warn("failed to purge cached project", zap.Int("project_id", id), zap.Error(err))
	}
	if err := s.cache.Delete(cache.ChatHistoryKey(id)); err != nil {
		s.log.Warn("failed to purge chat history", zap.Int("project_id", id), zap.Error(err))
	}
	s.removeFromIndex(id)
	return nil
}

// DatabaseInfo is a pure passthrough: connection status must never come
// from a cache.
func (s *Store) DatabaseInfo(ctx context.Context, id int) (*api.DatabaseInfo, error) {
	return s.be.DatabaseInfoFor(ctx, id)
}

// merge combines a remote record with the cached local configuration.
// Identity fields always come from the remote record; configuration and
// metrics come from the cache when a decodable entry exists. A missing or
// undecodable entry is synthesized from the remote record and written
// back so future reads hit the cache.
func (s *Store) merge(r api.RemoteProject) Project {
	merged := Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Queries:     []QueryRecord{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	blob, ok, err := s.cache.Get(cache.ProjectKey(r.ID))
	if err != nil {
		s.log.Warn("cache read failed", zap.Int("project_id", r.ID), zap.Error(err))
	}
	if ok && err == nil {
		local, derr := Decode(blob)
		if derr == nil {
			merged.DBConfig = local.DBConfig
			merged.DBConfig.Password = ""
			merged.Queries = local.Queries
			merged.Performance = local.Performance
			return merged
		}
		s.log.Warn("cached project blob undecodable, falling back to remote",
			zap.Int("project_id", r.ID), zap.Error(derr))
	}

	s.writeLocal(merged)
	return merged
}

// writeLocal persists the redacted record and refreshes the index entry.
// Best-effort: failures are logged, never returned.
func (s *Store) writeLocal(p Project) {
	blob, err := Encode(p)
	if err != nil {
		s.log.Warn("failed to encode project for cache", zap.Int("project_id", p.ID), zap.Error(err))
		return
	}
	if err := s.cache.Set(cache.ProjectKey(p.ID), blob); err != nil {
		s.log.Warn("failed to store project locally", zap.Int("project_id", p.ID), zap.Error(err))
		return
	}
	s.upsertIndex(Redact(p))
}

func (s *Store) readIndex() []Project {
	raw, ok, err := s.cache.Get(cache.KeyProjects)
	if err != nil || !ok {
		return nil
	}
	var idx []Project
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		s.log.Warn("corrupt project index, resetting", zap.Error(err))
		return nil
	}
	return idx
}

func (s *Store) writeIndex(idx []Project) {
	raw, err := json.Marshal(idx)
	if err != nil {
		s.log.Warn("failed to encode project index", zap.Error(err))
		return
	}
	if err := s.cache.Set(cache.KeyProjects, string(raw)); err != nil {
		s.log.Warn("failed to store project index", zap.Error(err))
	}
}

func (s *Store) upsertIndex(p Project) {
	idx := s.readIndex()
	for i := range idx {
		if idx[i].ID == p.ID {
			idx[i] = p
			s.writeIndex(idx)
			return
		}
	}
	s.writeIndex(append(idx, p))
}

func (s *Store) removeFromIndex(id int) {
	idx := s.readIndex()
	if idx == nil {
		return
	}
	out := idx[:0]
	for _, p := range idx {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.writeIndex(out)
}

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errs.New(errs.Validation, "project name is required")
	}
	cfg := in.DBConfig
	if strings.TrimSpace(cfg.Host) == "" ||
		strings.TrimSpace(cfg.Database) == "" ||
		strings.TrimSpace(cfg.User) == "" {
		return errs.New(errs.Validation, "database host, database name and user are required")
	}
	return nil
}
