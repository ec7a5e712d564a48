package logexec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mediar-ai/terminator/internal/logging"
)

var tracer = otel.Tracer("terminator/logexec")

const (
	traceAttrTool       = "terminator.tool_name"
	traceAttrWorkflowID = "terminator.workflow_id"
	traceAttrStepID     = "terminator.step_id"
	traceAttrStatus     = "terminator.status"
)

// Config configures a Logger.
type Config struct {
	Disabled      bool
	RootDir       string // "" means the OS user-data directory
	RetentionDays int
	Logger        logging.Logger
}

func (c Config) withDefaults() Config {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 7
	}
	return c
}

// Logger is the Execution Logger of spec.md §4.G. The zero value is not
// usable; construct with New.
type Logger struct {
	cfg Config
	log logging.Logger
}

// New constructs a Logger. When cfg.Disabled (or
// TERMINATOR_DISABLE_EXECUTION_LOGS is set, spec.md §6), LogRequest still
// returns a usable ExecutionContext but LogResponse is a no-op — per spec.md
// §4.G/§7 "the Execution Logger never fails the caller", a disabled logger
// must never change the caller's control flow.
func New(cfg Config) *Logger {
	cfg = cfg.withDefaults()
	if v := os.Getenv("TERMINATOR_DISABLE_EXECUTION_LOGS"); v == "1" || v == "true" {
		cfg.Disabled = true
	}
	log := logging.OrNop(cfg.Logger).With(map[string]any{"component": "logexec"})
	return &Logger{cfg: cfg, log: log}
}

var toolNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// filePrefix builds the deterministic
// `YYYYMMDD_HHMMSS_<workflow|standalone>_<step|full>_<tool>` stem of spec.md
// §3 "ExecutionContext".
func filePrefix(ts time.Time, workflowID, stepID string, stepIndex *int, tool string) string {
	scope := "standalone"
	if workflowID != "" {
		scope = "workflow"
	}

	step := "full"
	switch {
	case stepID != "":
		step = stepID
	case stepIndex != nil:
		step = strconv.Itoa(*stepIndex)
	}

	safeTool := toolNameSanitizer.ReplaceAllString(tool, "_")
	safeStep := toolNameSanitizer.ReplaceAllString(step, "_")

	return fmt.Sprintf("%s_%s_%s_%s", ts.UTC().Format("20060102_150405"), scope, safeStep, safeTool)
}

// LogRequest opens an ExecutionContext for one tool invocation, starting
// the span that LogResponse later ends — so the span covers the whole
// invocation, not just its write path. Lifetime ends at LogResponse
// (spec.md §3).
func (l *Logger) LogRequest(ctx context.Context, tool string, args map[string]any, workflowID, stepID string, stepIndex *int) *ExecutionContext {
	now := time.Now()
	dir, err := executionDir(l.cfg.RootDir, workflowID)
	if err != nil {
		l.log.Warn("logexec: failed to resolve execution dir: %v", err)
		dir = ""
	}

	ec := &ExecutionContext{
		Timestamp:  now,
		WorkflowID: workflowID,
		StepID:     stepID,
		StepIndex:  stepIndex,
		Tool:       tool,
		Args:       args,
		Prefix:     filePrefix(now, workflowID, stepID, stepIndex, tool),
		dir:        dir,
	}
	ec.spanCtx, ec.span = tracer.Start(ctx, "logexec.tool_execute", trace.WithAttributes(ec.spanAttrs()...))
	return ec
}

// spanAttrs builds this ExecutionContext's fixed tracing attributes.
func (ec *ExecutionContext) spanAttrs() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(traceAttrTool, ec.Tool)}
	if ec.WorkflowID != "" {
		attrs = append(attrs, attribute.String(traceAttrWorkflowID, ec.WorkflowID))
	}
	if ec.StepID != "" {
		attrs = append(attrs, attribute.String(traceAttrStepID, ec.StepID))
	}
	return attrs
}

// Result is the caller-supplied outcome passed to LogResponse: exactly one
// of Value or Err is meaningful, mirroring a Result<T,E> the core's Rust
// ancestry expressed as `Ok(result)|Err(msg)` (spec.md §4.G item 2).
type Result struct {
	Value any
	Err   error
}

// LogResponse closes ec, writing `<prefix>.json`, any extracted screenshot
// PNGs, and a `<prefix>.ts` snippet. logs is optional (spec.md §14's open
// question: log_response is one entry point with an optional logs argument,
// not two near-duplicate functions). Per spec.md §7, LogResponse never
// returns an error to the caller: any write failure is logged and swallowed.
func (l *Logger) LogResponse(ctx context.Context, ec *ExecutionContext, res Result, durationMS int64, logs []CapturedLogEntry) {
	if ec == nil {
		return
	}
	span := ec.span
	if span != nil {
		defer span.End()
	}

	if l.cfg.Disabled {
		return
	}

	status := StatusOK
	var errMsg string
	if res.Err != nil {
		status = StatusError
		errMsg = res.Err.Error()
	}
	if span != nil {
		span.SetAttributes(attribute.String(traceAttrStatus, string(status)))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, errMsg)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if ec.dir == "" {
		l.log.Warn("logexec: no execution directory resolved, dropping artifacts for %s", ec.Tool)
		return
	}
	if err := os.MkdirAll(ec.dir, 0o755); err != nil {
		l.log.Warn("logexec: failed to create execution dir %s: %v", ec.dir, err)
		return
	}

	spanCtx := ctx
	if ec.spanCtx != nil {
		spanCtx = ec.spanCtx
	}
	stripped, screenshots, err := extractScreenshots(spanCtx, ec.dir, ec.Prefix, res.Value)
	if err != nil {
		l.log.Warn("logexec: screenshot extraction failed for %s: %v", ec.Tool, err)
		stripped = res.Value
	}

	entry := ExecutionLog{
		Timestamp:   ec.Timestamp,
		WorkflowID:  ec.WorkflowID,
		StepID:      ec.StepID,
		StepIndex:   ec.StepIndex,
		Tool:        ec.Tool,
		Args:        ec.Args,
		Status:      status,
		DurationMS:  durationMS,
		Result:      stripped,
		Error:       errMsg,
		Screenshots: screenshots,
		Logs:        sortedLogs(logs),
	}

	l.writeJSON(ec.dir, ec.Prefix, entry)
	l.writeSnippet(ec.dir, ec.Prefix, entry)
}

func (l *Logger) writeJSON(dir, prefix string, entry ExecutionLog) {
	path := filepath.Join(dir, prefix+".json")
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		l.log.Warn("logexec: failed to marshal execution log: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		l.log.Warn("logexec: failed to write %s: %v", path, err)
	}
}

func (l *Logger) writeSnippet(dir, prefix string, entry ExecutionLog) {
	path := filepath.Join(dir, prefix+".ts")
	snippet := renderSnippet(entry)
	if err := os.WriteFile(path, []byte(snippet), 0o644); err != nil {
		l.log.Warn("logexec: failed to write %s: %v", path, err)
	}
}

func sortedLogs(logs []CapturedLogEntry) []CapturedLogEntry {
	if len(logs) < 2 {
		return logs
	}
	out := make([]CapturedLogEntry, len(logs))
	copy(out, logs)
	// Insertion sort: invocation-local buffers are small and typically
	// already ordered; this preserves stability (spec.md P6).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Timestamp.Before(out[j-1].Timestamp); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
