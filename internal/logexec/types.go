// Package logexec implements the Execution Logger of spec.md §4.G: a
// structured capture pipeline that records every tool invocation's
// request/response, extracted screenshots, and an equivalent high-level
// script snippet, with a 7-day retention sweep.
package logexec

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Status is an ExecutionLog's terminal outcome.
type Status string

const (
	StatusOK    Status = "executed_without_error"
	StatusError Status = "executed_with_error"
)

// ExecutionContext is opened by LogRequest and closed by LogResponse
// (spec.md §3 "ExecutionContext"). Prefix is the deterministic
// `YYYYMMDD_HHMMSS_<workflow|standalone>_<step|full>_<tool>` file-stem every
// artifact for this invocation shares.
type ExecutionContext struct {
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	StepID     string         `json:"step_id,omitempty"`
	StepIndex  *int           `json:"step_index,omitempty"`
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args"`
	Prefix     string         `json:"-"`
	dir        string
	spanCtx    context.Context
	span       trace.Span
}

// Screenshots records the file references an ExecutionLog captured.
// Invariant E4: Before is set at most once; After, when present, is a
// non-empty ordered vector.
type Screenshots struct {
	Before string   `json:"before,omitempty"`
	After  []string `json:"after,omitempty"`
}

// CapturedLogEntry is one console line captured during a tool invocation
// (spec.md §3 "Captured Log Entry").
type CapturedLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // ERROR|WARN|INFO|DEBUG
	Message   string    `json:"message"`
}

// ExecutionLog is the full `<prefix>.json` artifact: the ExecutionContext
// plus the outcome of the call (spec.md §3 "ExecutionLog").
type ExecutionLog struct {
	Timestamp  time.Time          `json:"timestamp"`
	WorkflowID string             `json:"workflow_id,omitempty"`
	StepID     string             `json:"step_id,omitempty"`
	StepIndex  *int               `json:"step_index,omitempty"`
	Tool       string             `json:"tool"`
	Args       map[string]any     `json:"args"`
	Status     Status             `json:"status"`
	DurationMS int64              `json:"duration_ms"`
	Result     any                `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
	Screenshots Screenshots       `json:"screenshots"`
	Logs       []CapturedLogEntry `json:"logs,omitempty"`
}

// EventKind is the tag of a Workflow Event's closed union (spec.md §3
// "Workflow Event").
type EventKind string

const (
	EventProgress     EventKind = "progress"
	EventStepStarted  EventKind = "step_started"
	EventStepComplete EventKind = "step_completed"
	EventStepFailed   EventKind = "step_failed"
	EventLog          EventKind = "log"
)

// WorkflowEvent is the closed tagged union a workflow driver may emit over
// the event pipe; only the fields relevant to Kind are populated.
type WorkflowEvent struct {
	Kind EventKind `json:"kind"`

	// Progress
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`

	// StepStarted / StepCompleted / StepFailed
	StepID     string `json:"step_id,omitempty"`
	StepName   string `json:"step_name,omitempty"`
	StepIndex  *int   `json:"step_index,omitempty"`
	DurationMS *int64 `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`

	// Log
	Level string `json:"level,omitempty"`

	Data json.RawMessage `json:"data,omitempty"`
}
