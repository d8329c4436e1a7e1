// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package project

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"qlens/cli/internal/errs"
)

// The cached blob format is base64 over JSON: a reversible, text-safe
// encoding, not encryption. Anyone holding the blob can read it, which is
// why the password is redacted before a record is ever encoded for the
// cache.

// Encode serializes a project for the local cache with the password
// redacted.
func Encode(p Project) (string, error) {
	return encodeRaw(Redact(p))
}

// EncodeWire serializes the configuration payload sent to the server
// inside encrypted_path. The password is kept: the backend needs it to
// open connections on the user's behalf.
func EncodeWire(cfg DBConfig, queries []QueryRecord, perf Metrics) (string, error) {
	payload := struct {
		DBConfig    DBConfig      `json:"dbConfig"`
		Queries     []QueryRecord `json:"queries"`
		Performance Metrics       `json:"performance"`
	}{cfg, ensureQueries(queries), perf}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Redact returns a copy of p with the password removed and nil slices
// normalized, ready for persistence.
func Redact(p Project) Project {
	p.DBConfig.Password = ""
	p.Queries = ensureQueries(p.Queries)
	return p
}

// decoder is one strategy in the ordered decode chain.
type decoder struct {
	name string
	fn   func(string) (*Project, error)
}

// decoders are tried in order: the current base64(JSON) format first,
// then the legacy plain-JSON format written by early builds.
var decoders = []decoder{
	{name: "base64-json", fn: decodeBase64JSON},
	{name: "legacy-json", fn: decodeLegacyJSON},
}

// Decode parses a cached blob, trying each known scheme in order. The
// returned error carries errs.Decode; callers log it and fall back to the
// remote record, they never propagate it.
func Decode(blob string) (*Project, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, errs.New(errs.Decode, "empty cached blob")
	}
	var lastErr error
	for _, d := range decoders {
		p, err := d.fn(blob)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return nil, errs.Wrap(errs.Decode, "cached blob matches no known format", lastErr)
}

func decodeBase64JSON(blob string) (*Project, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, err
	}
	return unmarshalProject(raw)
}

func decodeLegacyJSON(blob string) (*Project, error) {
	return unmarshalProject([]byte(blob))
}

func unmarshalProject(raw []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	p.Queries = ensureQueries(p.Queries)
	return &p, nil
}

func encodeRaw(p Project) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func ensureQueries(q []QueryRecord) []QueryRecord {
	if q == nil {
		return []QueryRecord{}
	}
	return q
}
