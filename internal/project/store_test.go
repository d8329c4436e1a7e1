// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlens/cli/internal/api"
	"qlens/cli/internal/cache"
	"qlens/cli/internal/errs"
)

// fakeBackend serves canned remote records and counts calls.
type fakeBackend struct {
	projects map[int]api.RemoteProject
	info     *api.DatabaseInfo
	err      error

	createCalls int
	deleteCalls int
}

func (f *fakeBackend) ListProjects(ctx context.Context) ([]api.RemoteProject, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]api.RemoteProject, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeBackend) CreateProject(ctx context.Context, p api.ProjectPayload) (*api.RemoteProject, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createCalls++
	r := api.RemoteProject{
		ID:            len(f.projects) + 1,
		Name:          p.Name,
		Description:   p.Description,
		EncryptedPath: p.EncryptedPath,
		CreatedAt:     "2025-06-01T00:00:00Z",
		UpdatedAt:     "2025-06-01T00:00:00Z",
	}
	if f.projects == nil {
		f.projects = map[int]api.RemoteProject{}
	}
	f.projects[r.ID] = r
	return &r, nil
}

func (f *fakeBackend) GetProject(ctx context.Context, id int) (*api.RemoteProject, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.projects[id]
	if !ok {
		return nil, errs.Status(errs.NotFound, 404, "Project not found")
	}
	return &p, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, id int, p api.ProjectPayload) (*api.RemoteProject, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := f.projects[id]
	r.Name = p.Name
	r.Description = p.Description
	r.EncryptedPath = p.EncryptedPath
	r.UpdatedAt = "2025-06-02T00:00:00Z"
	f.projects[id] = r
	return &r, nil
}

func (f *fakeBackend) DeleteProject(ctx context.Context, id int) error {
	if f.err != nil {
		return f.err
	}
	f.deleteCalls++
	delete(f.projects, id)
	return nil
}

func (f *fakeBackend) DatabaseInfoFor(ctx context.Context, id int) (*api.DatabaseInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

// failingStore wraps a Store and fails all writes.
type failingStore struct{ cache.Store }

func (f failingStore) Set(key, value string) error { return errors.New("disk full") }

func remoteRecord(id int, name string) api.RemoteProject {
	return api.RemoteProject{
		ID:        id,
		Name:      name,
		CreatedAt: "2025-06-01T00:00:00Z",
		UpdatedAt: "2025-06-01T00:00:00Z",
	}
}

func TestGetMergesCachedConfig(t *testing.T) {
	be := &fakeBackend{projects: map[int]api.RemoteProject{
		7: remoteRecord(7, "warehouse"),
	}}
	c := cache.NewMemory()
	blob, err := Encode(Project{
		ID:       7,
		Name:     "stale local name",
		DBConfig: DBConfig{Host: "db.internal", Database: "warehouse", User: "analyst"},
		Queries:  []QueryRecord{{SQL: "SELECT 1"}},
		Performance: Metrics{
			TotalQueries: 4,
		},
	})
	require.NoError(t, err)
	require.NoError(t, c.Set(cache.ProjectKey(7), blob))

	s := NewStore(be, c, nil)
	p, err := s.Get(context.Background(), 7)
	require.NoError(t, err)

	// identity comes from the remote record, configuration from the cache
	assert.Equal(t, "warehouse", p.Name)
	assert.Equal(t, "db.internal", p.DBConfig.Host)
	assert.Equal(t, "", p.DBConfig.Password)
	assert.Len(t, p.Queries, 1)
	assert.Equal(t, 4, p.Performance.TotalQueries)
}

func TestGetCacheMissWritesBack(t *testing.T) {
	be := &fakeBackend{projects: map[int]api.RemoteProject{
		7: remoteRecord(7, "warehouse"),
	}}
	c := cache.NewMemory()
	s := NewStore(be, c, nil)

	p, err := s.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "warehouse", p.Name)
	assert.NotNil(t, p.Queries)

	// the synthesized record is cached for the next read
	blob, ok, _ := c.Get(cache.ProjectKey(7))
	assert.True(t, ok)
	cached, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, 7, cached.ID)
}

func TestGetCorruptBlobFallsBackToRemote(t *testing.T) {
	be := &fakeBackend{projects: map[int]api.RemoteProject{
		7: remoteRecord(7, "warehouse"),
	}}
	c := cache.NewMemory()
	require.NoError(t, c.Set(cache.ProjectKey(7), "!!!corrupt!!!"))

	s := NewStore(be, c, nil)
	p, err := s.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "warehouse", p.Name)
	assert.Equal(t, "", p.DBConfig.Host)

	// the corrupt blob was replaced with a decodable one
	blob, ok, _ := c.Get(cache.ProjectKey(7))
	require.True(t, ok)
	_, err = Decode(blob)
	assert.NoError(t, err)
}

func TestCreate(t *testing.T) {
	be := &fakeBackend{}
	c := cache.NewMemory()
	s := NewStore(be, c, nil)

	p, err := s.Create(context.Background(), CreateInput{
		Name: "warehouse",
		DBConfig: DBConfig{
			Host: "db.internal", Database: "warehouse", User: "analyst", Password: "hunter2",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, be.createCalls)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, "", p.DBConfig.Password)

	// the wire payload carries the password, the cached record does not
	wire, err := Decode(be.projects[1].EncryptedPath)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", wire.DBConfig.Password)

	blob, ok, _ := c.Get(cache.ProjectKey(1))
	require.True(t, ok)
	cached, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, "", cached.DBConfig.Password)

	// the index has the new entry
	raw, ok, _ := c.Get(cache.KeyProjects)
	require.True(t, ok)
	var idx []Project
	require.NoError(t, json.Unmarshal([]byte(raw), &idx))
	require.Len(t, idx, 1)
	assert.Equal(t, 1, idx[0].ID)
}

func TestCreateValidation(t *testing.T) {
	be := &fakeBackend{}
	s := NewStore(be, cache.NewMemory(), nil)

	tests := []struct {
		name string
		in   CreateInput
	}{
		{name: "missing name", in: CreateInput{DBConfig: DBConfig{Host: "h", Database: "d", User: "u"}}},
		{name: "missing host", in: CreateInput{Name: "p", DBConfig: DBConfig{Database: "d", User: "u"}}},
		{name: "missing database", in: CreateInput{Name: "p", DBConfig: DBConfig{Host: "h", User: "u"}}},
		{name: "missing user", in: CreateInput{Name: "p", DBConfig: DBConfig{Host: "h", Database: "d"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.Validation))
		})
	}
	assert.Equal(t, 0, be.createCalls, "validation failures must not reach the backend")
}

func TestCreateSucceedsWhenCacheWriteFails(t *testing.T) {
	be := &fakeBackend{}
	s := NewStore(be, failingStore{cache.NewMemory()}, nil)

	p, err := s.Create(context.Background(), CreateInput{
		Name:     "warehouse",
		DBConfig: DBConfig{Host: "h", Database: "d", User: "u"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
}

func TestUpdateRewritesLocalRecord(t *testing.T) {
	be := &fakeBackend{projects: map[int]api.RemoteProject{
		7: remoteRecord(7, "warehouse"),
	}}
	c := cache.NewMemory()
	s := NewStore(be, c, nil)

	p, err := s.Update(context.Background(), 7, UpdateInput{
		Name:        "warehouse v2",
		DBConfig:    DBConfig{Host: "db2.internal", Database: "warehouse", User: "analyst", Password: "hunter2"},
		Queries:     []QueryRecord{{SQL: "SELECT 1"}},
		Performance: Metrics{TotalQueries: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "warehouse v2", p.Name)
	assert.Equal(t, "", p.DBConfig.Password)
	assert.Equal(t, "2025-06-02T00:00:00Z", p.UpdatedAt)

	// wire payload carries the password, local record does not
	wire, err := Decode(be.projects[7].EncryptedPath)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", wire.DBConfig.Password)

	blob, ok, _ := c.Get(cache.ProjectKey(7))
	require.True(t, ok)
	cached, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, "db2.internal", cached.DBConfig.Host)
	assert.Equal(t, "", cached.DBConfig.Password)
	assert.Equal(t, 1, cached.Performance.TotalQueries)
}

func TestDeletePurgesLocalState(t *testing.T) {
	be := &fakeBackend{projects: map[int]api.RemoteProject{
		7: remoteRecord(7, "warehouse"),
	}}
	c := cache.NewMemory()
	require.NoError(t, c.Set(cache.ProjectKey(7), "blob"))
	require.NoError(t, c.Set(cache.ChatHistoryKey(7), "[]"))
	idx, _ := json.Marshal([]Project{{ID: 7, Name: "warehouse"}, {ID: 8, Name: "other"}})
	require.NoError(t, c.Set(cache.KeyProjects, string(idx)))

	s := NewStore(be, c, nil)
	require.NoError(t, s.Delete(context.Background(), 7))
	assert.Equal(t, 1, be.deleteCalls)

	_, ok, _ := c.Get(cache.ProjectKey(7))
	assert.False(t, ok)
	_, ok, _ = c.Get(cache.ChatHistoryKey(7))
	assert.False(t, ok)

	raw, ok, _ := c.Get(cache.KeyProjects)
	require.True(t, ok)
	var left []Project
	require.NoError(t, json.Unmarshal([]byte(raw), &left))
	require.Len(t, left, 1)
	assert.Equal(t, 8, left[0].ID)
}

func TestDeleteKeepsLocalStateOnRemoteFailure(t *testing.T) {
	be := &fakeBackend{err: fmt.Errorf("boom")}
	c := cache.NewMemory()
	require.NoError(t, c.Set(cache.ProjectKey(7), "blob"))

	s := NewStore(be, c, nil)
	require.Error(t, s.Delete(context.Background(), 7))

	_, ok, _ := c.Get(cache.ProjectKey(7))
	assert.True(t, ok, "remote failure must not purge the cache")
}

func TestDatabaseInfoPassthrough(t *testing.T) {
	info := &api.DatabaseInfo{
		DatabaseName:     "warehouse",
		ConnectionStatus: true,
		Tables:           []api.TableInfo{{Name: "orders", RowCount: 100, ColumnCount: 8}},
	}
	be := &fakeBackend{info: info}
	s := NewStore(be, cache.NewMemory(), nil)

	got, err := s.DatabaseInfo(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}
