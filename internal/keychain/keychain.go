// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores secrets in the OS credential store. It exposes
// the keyring as a cache.Store so the session token can be routed there
// while everything else stays in the regular cache. On platforms without a
// native credential store the keyring falls back to an encrypted file in
// the XDG state directory.
package keychain

import (
	"errors"
	"path/filepath"

	"github.com/99designs/keyring"

	"qlens/cli/internal/xdg"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "qlens"

// Store implements cache.Store over the OS keyring.
type Store struct {
	ring keyring.Keyring
}

// Open initializes the OS keyring for qlens.
func Open() (*Store, error) {
	stateDir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.FileBackend,
		},
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(stateDir, "keyring"),
		FilePasswordFunc:         keyring.FixedStringPrompt(ServiceName),
	})
	if err != nil {
		return nil, err
	}
	return &Store{ring: ring}, nil
}

func (s *Store) Get(key string) (string, bool, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(item.Data), true, nil
}

func (s *Store) Set(key, value string) error {
	return s.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
