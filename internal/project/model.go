// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package project reconciles remote project records with the locally
// cached configuration. Identity fields (id, timestamps) are owned by the
// server; connection details and cached metrics are owned by the local
// cache once a record exists there.
package project

// DBConfig holds the connection details for a project's database.
// Password is never written to the local cache; it only travels inside
// the encoded payload sent to the server.
type DBConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
}

// QueryRecord is one past query kept in the local project history.
type QueryRecord struct {
	SQL           string  `json:"sql"`
	ExecutedAt    string  `json:"executed_at,omitempty"`
	ExecutionTime float64 `json:"execution_time,omitempty"`
	RowCount      int     `json:"row_count,omitempty"`
}

// Metrics is the locally aggregated performance snapshot for a project.
type Metrics struct {
	TotalQueries     int     `json:"total_queries,omitempty"`
	AvgExecutionTime float64 `json:"avg_execution_time,omitempty"`
	SlowQueries      int     `json:"slow_queries,omitempty"`
}

// Project is the merged view over the remote record and the local cache.
type Project struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	DBConfig    DBConfig      `json:"dbConfig"`
	Queries     []QueryRecord `json:"queries"`
	Performance Metrics       `json:"performance"`
	CreatedAt   string        `json:"created_at,omitempty"`
	UpdatedAt   string        `json:"updated_at,omitempty"`
}

// CreateInput is the caller-supplied data for a new project.
type CreateInput struct {
	Name        string
	Description string
	DBConfig    DBConfig
}

// UpdateInput is the caller-supplied data for updating a project.
// Queries and Performance are carried so locally accumulated history
// survives the rewrite of the cached record.
type UpdateInput struct {
	Name        string
	Description string
	DBConfig    DBConfig
	Queries     []QueryRecord
	Performance Metrics
}
