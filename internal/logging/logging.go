// Package logging provides the structured logger every core component
// receives through constructor injection, following the teacher's
// OrNop/IsNil nil-safety convention so a zero-value Logger field never
// panics a caller.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Level is a logging verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger is the interface every component depends on.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	With(fields map[string]any) Logger
}

// Config controls how New builds a Logger.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // text|json
	Output io.Writer
	Color  bool // true forces color on; false auto-detects via term for an *os.File Output, else no color
}

type logger struct {
	mu      *sync.Mutex
	out     io.Writer
	level   Level
	format  string
	color   bool
	fields  map[string]any
	colored struct {
		debug, info, warn, err func(format string, a ...any) string
	}
}

// New builds a Logger from cfg. Output defaults to os.Stderr.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	useColor := cfg.Color
	if f, ok := out.(*os.File); ok && !cfg.Color {
		useColor = term.IsTerminal(int(f.Fd()))
	}
	l := &logger{
		mu:     &sync.Mutex{},
		out:    out,
		level:  parseLevel(cfg.Level),
		format: cfg.Format,
		color:  useColor,
		fields: map[string]any{},
	}
	l.colored.debug = color.New(color.FgHiBlack).SprintfFunc()
	l.colored.info = color.New(color.FgBlue).SprintfFunc()
	l.colored.warn = color.New(color.FgYellow).SprintfFunc()
	l.colored.err = color.New(color.FgRed).SprintfFunc()
	return l
}

func parseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *logger) log(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.format == "json" {
		fmt.Fprintf(l.out, `{"ts":%q,"level":%q,"msg":%q,"fields":%v}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano), level.String(), msg, l.fields)
		return
	}
	line := fmt.Sprintf("%s [%s] %s", time.Now().UTC().Format(time.RFC3339), level.String(), msg)
	if len(l.fields) > 0 {
		line += fmt.Sprintf(" %v", l.fields)
	}
	if l.color {
		switch level {
		case LevelDebug:
			line = l.colored.debug(line)
		case LevelInfo:
			line = l.colored.info(line)
		case LevelWarn:
			line = l.colored.warn(line)
		case LevelError:
			line = l.colored.err(line)
		}
	}
	fmt.Fprintln(l.out, line)
}

func (l *logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

func (l *logger) With(fields map[string]any) Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	clone := *l
	clone.fields = merged
	return &clone
}

// nop is a Logger that discards everything, returned by OrNop for a nil
// Logger so callers never need a nil check before logging.
type nop struct{}

func (nop) Debug(string, ...any)         {}
func (nop) Info(string, ...any)          {}
func (nop) Warn(string, ...any)          {}
func (nop) Error(string, ...any)         {}
func (n nop) With(map[string]any) Logger { return n }

var nopLogger Logger = nop{}

// IsNil reports whether l is a nil interface or a nil pointer boxed in a
// non-nil interface (the classic typed-nil trap that a naive `l == nil`
// check misses).
func IsNil(l Logger) bool {
	if l == nil {
		return true
	}
	if lg, ok := l.(*logger); ok {
		return lg == nil
	}
	return false
}

// OrNop returns l, or a no-op Logger if l is nil (including typed-nil).
func OrNop(l Logger) Logger {
	if IsNil(l) {
		return nopLogger
	}
	return l
}
