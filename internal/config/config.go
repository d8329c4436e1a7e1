// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the session token goes to the OS
// keychain. Values can be overridden through the environment or a local
// .env file.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"qlens/cli/internal/xdg"
)

// DefaultAPIURL is the backend base URL used when nothing else is configured.
const DefaultAPIURL = "http://localhost:8000/api/v1"

// Config holds non-sensitive CLI settings.
type Config struct {
	APIURL   string `json:"api_url"`
	LogLevel string `json:"log_level"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file returns defaults. Environment
// variables QLENS_API_URL and QLENS_LOG_LEVEL (optionally from a .env file
// in the working directory) take precedence over the stored values.
func Load() (Config, error) {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	c := Config{APIURL: DefaultAPIURL, LogLevel: "info"}
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, err
	}
	if err == nil {
		if err := json.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}
	applyEnv(&c)
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv("QLENS_API_URL")); v != "" {
		c.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("QLENS_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
}
