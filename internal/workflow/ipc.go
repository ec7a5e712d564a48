package workflow

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/mediar-ai/terminator/internal/logging"
)

// pipePair is a pair of named-pipe paths for one execution's event/log IPC.
// When the platform has no native named-pipe abstraction the host uses no
// pipePair (nil) and falls back to parsing stderr.
type pipePair struct {
	EventPath string
	LogPath   string
	cleanup   func()
}

// ipcReceiver collects events and logs forwarded from a running workflow,
// either over named pipes or (fallback) by tagging lines of the
// subprocess's stderr.
type ipcReceiver struct {
	mu     sync.Mutex
	events []Event
	logs   []LogEntry
	log    logging.Logger
	done   chan struct{}
}

func newIPCReceiver(log logging.Logger) *ipcReceiver {
	return &ipcReceiver{log: logging.OrNop(log), done: make(chan struct{})}
}

func (r *ipcReceiver) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *ipcReceiver) Logs() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.logs))
	copy(out, r.logs)
	return out
}

func (r *ipcReceiver) addEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *ipcReceiver) addLog(l LogEntry) {
	r.mu.Lock()
	r.logs = append(r.logs, l)
	r.mu.Unlock()
}

// drainPipe reads JSON-lines from src until EOF or the pipe closes,
// dispatching each to the receiver via parse. Runs in its own goroutine;
// callers must wait on the returned channel before treating the receiver's
// buffers as final (spec.md §5 "always drains the log receiver task").
func drainPipe(src io.Reader, parse func(line string)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(src)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			parse(line)
		}
	}()
	return done
}

// parseEventLine accepts only lines tagged `__mcp_event__:true` (spec.md
// §6); anything else on the event pipe is free-form text and is silently
// ignored rather than logged as malformed.
func (r *ipcReceiver) parseEventLine(line string) {
	var e Event
	if err := json.Unmarshal([]byte(line), &e); err != nil || !e.Marker {
		return
	}
	r.addEvent(e)
}

func (r *ipcReceiver) parseLogLine(line string) {
	var l LogEntry
	if err := json.Unmarshal([]byte(line), &l); err == nil && l.Level != "" {
		r.addLog(l)
		return
	}
	r.addLog(parseStderrFallback(line))
}

// parseStderrFallback recovers a LogEntry from a `[LEVEL] message` prefixed
// stderr line on platforms without named pipes (spec.md §4.F).
func parseStderrFallback(line string) LogEntry {
	if strings.HasPrefix(line, "[") {
		if end := strings.Index(line, "]"); end > 0 {
			level := strings.ToLower(strings.TrimSpace(line[1:end]))
			msg := strings.TrimSpace(line[end+1:])
			return LogEntry{Level: level, Message: msg}
		}
	}
	return LogEntry{Level: "info", Message: line}
}
