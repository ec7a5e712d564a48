package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrNopHandlesTypedNilPointer(t *testing.T) {
	var legacy *logger
	var l Logger = legacy
	assert.True(t, IsNil(l))
	safe := OrNop(l)
	assert.False(t, IsNil(safe))
	assert.NotPanics(t, func() { safe.Info("hello %s", "world") })
}

func TestNewFormatsTextMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Level: "info", Format: "text", Output: buf})
	l.Info("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")
}

func TestLevelFilterDropsBelowThreshold(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Level: "warn", Format: "text", Output: buf})
	l.Info("should not appear")
	l.Warn("should appear")
	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWithMergesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Level: "debug", Format: "text", Output: buf}).With(map[string]any{"component": "bridge"})
	l.Debug("starting")
	assert.Contains(t, buf.String(), "component")
}
