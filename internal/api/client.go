// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package api implements the HTTP client for the Quantum Lens backend
// REST surface. Every authenticated request carries the current bearer
// credential supplied by the token source; a 401 reply triggers the
// process-wide unauthorized hook exactly once per response before the
// error is returned to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"qlens/cli/internal/errs"
	"qlens/cli/internal/logging"
)

// TokenSource supplies the current bearer credential, empty when no
// session exists.
type TokenSource func() string

// Client talks to the backend over REST.
type Client struct {
	baseURL        string
	client         *http.Client
	tokens         TokenSource
	onUnauthorized func()
	log            *zap.Logger
}

// New creates a Client for the given base URL (e.g. "http://host:8000/api/v1").
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// SetTokenSource installs the credential supplier used for outgoing calls.
func (c *Client) SetTokenSource(ts TokenSource) { c.tokens = ts }

// OnUnauthorized installs the process-wide reaction to 401 replies
// (session teardown plus whatever the UI needs to do).
func (c *Client) OnUnauthorized(fn func()) { c.onUnauthorized = fn }

// do performs one JSON round trip. in may be nil for body-less requests;
// out may be nil when the response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errs.Wrap(errs.Validation, "could not encode request", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errs.Wrap(errs.Network, "could not build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("path", path), zap.String("error", logging.Mask(err.Error())))
		return errs.Wrap(errs.Network, "cannot reach the Quantum Lens service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail := readDetail(resp.Body)
		c.log.Debug("backend error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", logging.Mask(detail)))
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return statusError(resp.StatusCode, detail)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.Server, "unexpected response from server", err)
	}
	return nil
}

// readDetail extracts the backend's {"detail": ...} message, falling back
// to the raw body text.
func readDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(b, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(b))
}

// statusError maps an HTTP status and detail message onto the error taxonomy.
func statusError(status int, detail string) error {
	if detail == "" {
		detail = fmt.Sprintf("request failed with status %d", status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return errs.Status(errs.Auth, status, detail)
	case status == http.StatusNotFound:
		return errs.Status(errs.NotFound, status, detail)
	case status >= 500:
		return errs.Status(errs.Server, status, detail)
	default:
		return errs.Status(errs.BadRequest, status, detail)
	}
}
