// Package workflow implements the Workflow Host of spec.md §4.F: a process
// supervisor that launches a JavaScript workflow runtime, streams structured
// events and logs over a pipe-based IPC, and extracts a result from the
// subprocess's mixed stdout.
package workflow

import (
	"encoding/json"
	"time"
)

// Mode selects where a workflow actually executes.
type Mode string

const (
	ModeDirect    Mode = "direct"
	ModeLocalCopy Mode = "local-copy"
)

// Event is one line of the event pipe: a host-parseable frame tagged
// `__mcp_event__:true` per spec.md §6; any other line on that pipe is
// free-form text and is ignored, not treated as a parse failure.
type Event struct {
	Marker    bool            `json:"__mcp_event__"`
	Type      string          `json:"type"`
	StepID    string          `json:"step_id,omitempty"`
	StepIndex int             `json:"step_index,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"-"`
}

// LogEntry is one line of the log pipe.
type LogEntry struct {
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RunOptions parameterizes a single workflow run() call.
type RunOptions struct {
	Inputs        map[string]any `json:"inputs,omitempty"`
	StartFromStep string         `json:"startFromStep,omitempty"`
	EndAtStep     string         `json:"endAtStep,omitempty"`
	RestoredState map[string]any `json:"restoredState,omitempty"`
}

// RunResult is the driver's single stdout JSON object:
// {metadata, result:{status, message?, data?, last_step_id?, last_step_index?}, state}.
type RunResult struct {
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Result   StepResult      `json:"result"`
	State    map[string]any  `json:"state,omitempty"`
}

// StepResult is the run() return's `result` field.
type StepResult struct {
	Status        string         `json:"status"`
	Message       string         `json:"message,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	LastStepID    string         `json:"last_step_id,omitempty"`
	LastStepIndex int            `json:"last_step_index,omitempty"`
}

// Outcome is what Execute returns to the caller: the parsed result plus the
// full captured log buffer for the invocation (the Execution Logger wants
// this even on success, per spec.md §4.F "captured logs").
type Outcome struct {
	Result RunResult
	Logs   []LogEntry
}

// Entry describes a resolved workflow entry point.
type Entry struct {
	Root string // workflow folder, or its containing folder when Entry is a loose file
	File string // absolute path to terminator.ts
}

// TriggerKind identifies which shape of a workflow's optional `trigger`
// export is in play.
type TriggerKind string

const (
	TriggerCron    TriggerKind = "cron"
	TriggerManual  TriggerKind = "manual"
	TriggerWebhook TriggerKind = "webhook"
)

// Trigger is the parsed form of a workflow module's optional `trigger`
// metadata export: a workflow's entry file may declare how it expects to be
// invoked outside of a direct, on-demand run (a cron schedule, a webhook
// path, or plain manual invocation). The host does not itself schedule
// anything on this - that belongs to whatever calls Execute - it only
// parses and validates the declaration so a caller can act on it.
type Trigger struct {
	Type     TriggerKind `json:"type"`
	Schedule string      `json:"schedule,omitempty"` // Cron only
	Timezone string      `json:"timezone,omitempty"` // Cron only, IANA name
	Path     string      `json:"path,omitempty"`     // Webhook only
	Enabled  bool        `json:"enabled"`
}

// WorkflowMetadata is the parsed form of RunResult.Metadata: whatever the
// workflow entry itself declared (name, description, version, trigger),
// merged with what the driver fills in (entry path).
type WorkflowMetadata struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Entry       string   `json:"entry,omitempty"`
	Trigger     *Trigger `json:"trigger,omitempty"`
}
