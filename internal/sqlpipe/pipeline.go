// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlpipe turns a natural-language or SQL request into a typed
// outcome. Input is validated before any network call; the heterogeneous
// backend reply is classified into an explicit tagged variant; failures
// are normalized into fixed human-readable categories.
package sqlpipe

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"qlens/cli/internal/api"
	"qlens/cli/internal/errs"
)

// OutcomeType discriminates the two result variants.
type OutcomeType string

const (
	// OutcomeText is a plain conversational reply.
	OutcomeText OutcomeType = "text"
	// OutcomeAnalysis is a full SQL analysis with query, result and explanation.
	OutcomeAnalysis OutcomeType = "analysis"
)

// Metadata summarizes the execution of an analysis query.
type Metadata struct {
	ExecutionTime float64
	RowCount      int
	AffectedRows  int
}

// ResultSet is the executed query's result payload.
type ResultSet struct {
	Rows          []map[string]any `json:"rows"`
	Columns       json.RawMessage  `json:"columns,omitempty"`
	TotalRows     int              `json:"total_rows"`
	ExecutionTime float64          `json:"execution_time"`
	AffectedRows  int              `json:"affected_rows"`
}

// Analysis is the populated variant for SQL-bearing replies.
type Analysis struct {
	Query        string
	Result       ResultSet
	Explanation  string
	Optimization string
	FollowUp     []string
	Metadata     Metadata
}

// Outcome is the tagged result union: exactly one variant is populated.
// Type selects it; Message belongs to the text variant, Analysis to the
// analysis variant.
type Outcome struct {
	Type     OutcomeType
	Message  string
	Analysis *Analysis
}

// ContextMessage is one prior message passed as conversational context.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context carries the conversation around the request.
type Context struct {
	PreviousMessages []ContextMessage `json:"previous_messages"`
	ChatHistory      []ContextMessage `json:"chat_history"`
}

// Backend is the slice of the API the pipeline depends on.
type Backend interface {
	ProcessSQL(ctx context.Context, req api.ProcessRequest) (*api.ProcessEnvelope, error)
}

// Pipeline classifies backend replies and normalizes failures.
type Pipeline struct {
	be  Backend
	log *zap.Logger
}

// New constructs a pipeline over the given backend.
func New(be Backend, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{be: be, log: log}
}

// Process submits a request for the given project. projectID must parse
// to a positive integer and message must be non-empty after trimming;
// violations fail locally without a network round trip.
func (p *Pipeline) Process(ctx context.Context, projectID, message string, convCtx *Context) (*Outcome, error) {
	id, err := strconv.Atoi(strings.TrimSpace(projectID))
	if err != nil || id <= 0 {
		return nil, errs.New(errs.Validation, "valid project ID is required")
	}
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, errs.New(errs.Validation, "valid message is required")
	}

	req := api.ProcessRequest{ProjectID: id, Message: trimmed}
	if convCtx != nil {
		req.Context = convCtx
	}
	env, err := p.be.ProcessSQL(ctx, req)
	if err != nil {
		return nil, p.mapError(err)
	}
	return p.classify(env)
}

// classify turns the raw envelope into an Outcome, rejecting shapes that
// match neither variant instead of coercing them.
func (p *Pipeline) classify(env *api.ProcessEnvelope) (*Outcome, error) {
	if !env.Success {
		return nil, protocolError("server reported failure without an error status")
	}
	if env.Type == "text" {
		var msg string
		if err := json.Unmarshal(env.Content, &msg); err != nil || msg == "" {
			return nil, protocolError("text reply carried no message")
		}
		return &Outcome{Type: OutcomeText, Message: msg}, nil
	}

	var content struct {
		Query        string     `json:"query"`
		Result       *ResultSet `json:"result"`
		Analysis     string     `json:"analysis"`
		Optimization string     `json:"optimization"`
		FollowUp     []string   `json:"follow_up_questions"`
	}
	if err := json.Unmarshal(env.Content, &content); err != nil {
		return nil, protocolError("analysis reply was not an object")
	}
	if content.Result == nil {
		return nil, protocolError("analysis reply carried no result payload")
	}
	return &Outcome{
		Type: OutcomeAnalysis,
		Analysis: &Analysis{
			Query:        content.Query,
			Result:       *content.Result,
			Explanation:  content.Analysis,
			Optimization: content.Optimization,
			FollowUp:     content.FollowUp,
			Metadata: Metadata{
				ExecutionTime: content.Result.ExecutionTime,
				RowCount:      content.Result.TotalRows,
				AffectedRows:  content.Result.AffectedRows,
			},
		},
	}, nil
}

// mapError converts transport/status failures into the fixed
// human-readable categories of this pipeline.
func (p *Pipeline) mapError(err error) error {
	var e *errs.E
	if !errors.As(err, &e) {
		return errs.Wrap(errs.Server, "Failed to process SQL request", err)
	}
	switch {
	case e.Kind == errs.Validation:
		return e
	case e.Status == 404:
		return errs.Wrap(errs.NotFound, "Project not found or you do not have access to it", err)
	case e.Status == 400:
		return errs.Wrap(errs.BadRequest, badRequestMessage(e.Message), err)
	case e.Status == 401 || e.Kind == errs.Auth:
		return errs.Wrap(errs.Auth, "Authentication required. Please log in again.", err)
	case e.Status >= 500:
		return errs.Wrap(errs.Server, "Server error occurred while processing your request", err)
	case e.Kind == errs.Network:
		return errs.Wrap(errs.Network, "Failed to process SQL request", err)
	default:
		return errs.Wrap(e.Kind, "Failed to process SQL request", err)
	}
}

// badRequestMessage refines a 400 by inspecting the backend detail string.
// The client synthesizes "request failed with status N" for empty reply
// bodies; that placeholder counts as no detail here.
func badRequestMessage(detail string) string {
	switch {
	case strings.Contains(detail, "Invalid project configuration"):
		return "Project configuration is invalid. Please check your database settings."
	case strings.Contains(detail, "Database connection failed"):
		return "Cannot connect to your database. Please verify your connection settings."
	case strings.Contains(detail, "Message cannot be empty"):
		return "Please enter a valid question or SQL query."
	case detail == "" || strings.HasPrefix(detail, "request failed with status"):
		return "Invalid request data"
	default:
		return detail
	}
}

func protocolError(msg string) error {
	return errs.New(errs.Server, "unexpected response from server: "+msg)
}
