// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"path/filepath"
	"sync"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"qlens/cli/internal/api"
	"qlens/cli/internal/cache"
	"qlens/cli/internal/config"
	"qlens/cli/internal/keychain"
	"qlens/cli/internal/logging"
	"qlens/cli/internal/project"
	"qlens/cli/internal/session"
	"qlens/cli/internal/sqlpipe"
	"qlens/cli/internal/xdg"
)

// app wires the service layer together once per process. Commands obtain
// it via getApp; construction is lazy so --help and --version never touch
// the keychain or the cache database.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    cache.Store
	sqlite   *cache.SQLite
	client   *api.Client
	sessions *session.Manager
	projects *project.Store
	pipeline *sqlpipe.Pipeline
}

var (
	appOnce sync.Once
	appInst *app
	appErr  error
)

func getApp() (*app, error) {
	appOnce.Do(func() {
		appInst, appErr = newApp()
	})
	return appInst, appErr
}

func closeApp() {
	if appInst != nil && appInst.sqlite != nil {
		_ = appInst.sqlite.Close()
	}
	if appInst != nil && appInst.log != nil {
		_ = appInst.log.Sync()
	}
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel)

	stateDir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	sqlite, err := cache.OpenSQLite(filepath.Join(stateDir, "cache.db"))
	if err != nil {
		return nil, err
	}

	// Route the session token through the OS keychain when one is
	// available; everything else lives in the cache database.
	var store cache.Store = sqlite
	if ring, kerr := keychain.Open(); kerr == nil {
		store = cache.SplitSecrets(sqlite, ring, cache.KeySessionToken)
	} else {
		log.Warn("OS keychain unavailable, session token stored in cache db", zap.Error(kerr))
	}

	client := api.New(cfg.APIURL, log)
	sessions := session.NewManager(client, store, log)
	sessions.OnTeardown(func() {
		pterm.Warning.Println("Your session has expired. Please run: qlens login")
	})
	client.SetTokenSource(sessions.Token)
	client.OnUnauthorized(sessions.HandleUnauthorized)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		sqlite:   sqlite,
		client:   client,
		sessions: sessions,
		projects: project.NewStore(client, store, log),
		pipeline: sqlpipe.New(client, log),
	}, nil
}
