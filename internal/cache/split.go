// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cache

// SplitSecrets returns a Store that routes the named keys to the secrets
// store and everything else to the primary store. It lets the session
// token live in the OS keychain while the rest of the cache stays in the
// durable key/value database, without the consumers knowing the difference.
func SplitSecrets(primary, secrets Store, secretKeys ...string) Store {
	keys := make(map[string]bool, len(secretKeys))
	for _, k := range secretKeys {
		keys[k] = true
	}
	return &splitStore{primary: primary, secrets: secrets, keys: keys}
}

type splitStore struct {
	primary Store
	secrets Store
	keys    map[string]bool
}

func (s *splitStore) pick(key string) Store {
	if s.keys[key] {
		return s.secrets
	}
	return s.primary
}

func (s *splitStore) Get(key string) (string, bool, error) { return s.pick(key).Get(key) }
func (s *splitStore) Set(key, value string) error          { return s.pick(key).Set(key, value) }
func (s *splitStore) Delete(key string) error              { return s.pick(key).Delete(key) }
