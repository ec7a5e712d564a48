package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStderrFallbackWithLevelPrefix(t *testing.T) {
	entry := parseStderrFallback("[WARN] disk is getting full")
	assert.Equal(t, "warn", entry.Level)
	assert.Equal(t, "disk is getting full", entry.Message)
}

func TestParseStderrFallbackWithoutPrefixDefaultsToInfo(t *testing.T) {
	entry := parseStderrFallback("just a line")
	assert.Equal(t, "info", entry.Level)
	assert.Equal(t, "just a line", entry.Message)
}

func TestIPCReceiverParseLogLineAcceptsStructuredJSON(t *testing.T) {
	r := newIPCReceiver(nil)
	r.parseLogLine(`{"level":"error","message":"bad thing happened"}`)
	logs := r.Logs()
	require := assert.New(t)
	require.Len(logs, 1)
	require.Equal("error", logs[0].Level)
}

func TestIPCReceiverParseLogLineFallsBackOnPlainText(t *testing.T) {
	r := newIPCReceiver(nil)
	r.parseLogLine("[INFO] plain text from stderr")
	logs := r.Logs()
	assert.Len(t, logs, 1)
	assert.Equal(t, "info", logs[0].Level)
}

func TestDrainPipeDispatchesEachLine(t *testing.T) {
	src := strings.NewReader("one\ntwo\nthree\n")
	var got []string
	<-drainPipe(src, func(line string) { got = append(got, line) })
	assert.Equal(t, []string{"one", "two", "three"}, got)
}
