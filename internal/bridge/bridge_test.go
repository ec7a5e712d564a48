package bridge

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ancestorPort extracts the numeric port a test bridge bound to, for
// pointing a proxy-mode bridge's Config.Port at the same address.
func ancestorPort(t *testing.T, addr string) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func startTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b := New(Config{Port: 0, ClientWaitTimeout: 2 * time.Second})
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func dialTestClient(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestHandshakeSendsWelcomeAndHealthRequest(t *testing.T) {
	b := startTestBridge(t)
	conn := dialTestClient(t, b.Addr())

	require.NoError(t, conn.WriteJSON(Frame{Type: frameTypeHello, ID: "h1", Hello: &HelloFrame{Browser: "chrome"}}))

	welcome := readFrame(t, conn)
	assert.Equal(t, frameTypeWelcome, welcome.Type)

	health := readFrame(t, conn)
	assert.Equal(t, frameTypeHealth, health.Type)
}

func TestEvalInActiveTabRoundTrips(t *testing.T) {
	b := startTestBridge(t)
	conn := dialTestClient(t, b.Addr())
	require.NoError(t, conn.WriteJSON(Frame{Type: frameTypeHello, ID: "h1"}))
	readFrame(t, conn) // welcome
	readFrame(t, conn) // health request

	go func() {
		evalFrame := readFrame(t, conn)
		require.Equal(t, frameTypeEval, evalFrame.Type)
		raw, _ := json.Marshal(map[string]any{"value": 42})
		_ = conn.WriteJSON(Frame{
			Type:   frameTypeEvalResult,
			ID:     evalFrame.ID,
			Result: &EvalResult{ID: evalFrame.ID, OK: true, Result: raw},
		})
	}()

	result, err := b.EvalInActiveTab(context.Background(), "document.title", time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.OK)
}

func TestEvalInActiveTabTimesOutWithoutError(t *testing.T) {
	b := startTestBridge(t)
	_ = dialTestClient(t, b.Addr())

	result, err := b.EvalInActiveTab(context.Background(), "slow()", 80*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEvalInBrowserPrefersNamedClientMatch(t *testing.T) {
	b := startTestBridge(t)
	chromeConn := dialTestClient(t, b.Addr())
	require.NoError(t, chromeConn.WriteJSON(Frame{Type: frameTypeHello, Hello: &HelloFrame{Browser: "chrome"}}))
	readFrame(t, chromeConn)
	readFrame(t, chromeConn)

	firefoxConn := dialTestClient(t, b.Addr())
	require.NoError(t, firefoxConn.WriteJSON(Frame{Type: frameTypeHello, Hello: &HelloFrame{Browser: "firefox"}}))
	readFrame(t, firefoxConn)
	readFrame(t, firefoxConn)

	go func() {
		evalFrame := readFrame(t, firefoxConn)
		_ = firefoxConn.WriteJSON(Frame{
			Type:   frameTypeEvalResult,
			ID:     evalFrame.ID,
			Result: &EvalResult{ID: evalFrame.ID, OK: true},
		})
	}()

	result, err := b.EvalInBrowser(context.Background(), "firefox", "1+1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.OK)
}

func TestEvalInBrowserNoMatchListsConnected(t *testing.T) {
	b := startTestBridge(t)
	conn := dialTestClient(t, b.Addr())
	require.NoError(t, conn.WriteJSON(Frame{Type: frameTypeHello, Hello: &HelloFrame{Browser: "chrome"}}))
	readFrame(t, conn)
	readFrame(t, conn)

	_, err := b.EvalInBrowser(context.Background(), "safari", "1+1", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome")
}

func TestDisconnectClearsPendingRequests(t *testing.T) {
	b := startTestBridge(t)
	conn := dialTestClient(t, b.Addr())
	require.NoError(t, conn.WriteJSON(Frame{Type: frameTypeHello}))
	readFrame(t, conn)
	readFrame(t, conn)

	done := make(chan error, 1)
	go func() {
		_, err := b.EvalInActiveTab(context.Background(), "never answered", 3*time.Second)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	_ = conn.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("eval did not resolve after client disconnect")
	}
}

func TestHealthStatusReflectsClientCount(t *testing.T) {
	b := startTestBridge(t)
	status := b.HealthStatus()
	assert.Equal(t, StatusWaitingForClients, status.Status)

	conn := dialTestClient(t, b.Addr())
	require.NoError(t, conn.WriteJSON(Frame{Type: frameTypeHello}))
	readFrame(t, conn)
	readFrame(t, conn)

	assert.Eventually(t, func() bool {
		return b.HealthStatus().Status == StatusHealthy
	}, time.Second, 10*time.Millisecond)
}

func TestIsLegacyClientAgeThreshold(t *testing.T) {
	c := &Client{ConnectedAt: time.Now().Add(-600 * time.Millisecond)}
	assert.True(t, isLegacyClient(c, time.Now(), 500*time.Millisecond))

	fresh := &Client{ConnectedAt: time.Now()}
	assert.False(t, isLegacyClient(fresh, time.Now(), 500*time.Millisecond))
}

type fakeWalker struct{ ancestors []ProcessAncestor }

func (f *fakeWalker) Ancestors(ctx context.Context, maxHops int) ([]ProcessAncestor, error) {
	return f.ancestors, nil
}

func TestStartSwitchesToProxyModeWhenAncestorMatches(t *testing.T) {
	ancestor := startTestBridge(t)

	b := New(Config{
		Port:   ancestorPort(t, ancestor.Addr()),
		Walker: &fakeWalker{ancestors: []ProcessAncestor{{PID: 1, Name: "terminator-mcp-agent"}}},
	})
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	assert.Equal(t, ModeProxy, b.Mode())
	assert.Equal(t, 1, b.clientCount())
}

// TestProxyModeForwardsEvalToAncestorAndBack proves the consequential path
// of spec.md §4.E's proxy mode end to end: a proxy-mode bridge's
// EvalInActiveTab call is carried over its upstream connection, forwarded
// by the ancestor to its own real extension client, and the extension's
// answer is relayed all the way back to the proxying bridge's caller.
func TestProxyModeForwardsEvalToAncestorAndBack(t *testing.T) {
	ancestor := startTestBridge(t)
	extConn := dialTestClient(t, ancestor.Addr())
	require.NoError(t, extConn.WriteJSON(Frame{Type: frameTypeHello, Hello: &HelloFrame{Browser: "chrome"}}))
	readFrame(t, extConn) // welcome
	readFrame(t, extConn) // health request

	proxy := New(Config{
		Port:   ancestorPort(t, ancestor.Addr()),
		Walker: &fakeWalker{ancestors: []ProcessAncestor{{PID: 1, Name: "terminator-mcp-agent"}}},
	})
	require.NoError(t, proxy.Start(context.Background()))
	t.Cleanup(func() { _ = proxy.Close(context.Background()) })
	require.Equal(t, ModeProxy, proxy.Mode())

	go func() {
		evalFrame := readFrame(t, extConn)
		require.Equal(t, frameTypeEval, evalFrame.Type)
		raw, _ := json.Marshal("2")
		_ = extConn.WriteJSON(Frame{
			Type:   frameTypeEvalResult,
			ID:     evalFrame.ID,
			Result: &EvalResult{ID: evalFrame.ID, OK: true, Result: raw},
		})
	}()

	result, err := proxy.EvalInActiveTab(context.Background(), "1+1", time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.OK)
	assert.JSONEq(t, `"2"`, string(result.Result))
}

func TestStartUsesServerModeWithoutMatchingAncestor(t *testing.T) {
	b := New(Config{
		Port:   0,
		Walker: &fakeWalker{ancestors: []ProcessAncestor{{PID: 1, Name: "explorer.exe"}}},
	})
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Close(context.Background()) })

	assert.Equal(t, ModeServer, b.Mode())
	assert.NotEmpty(t, b.Addr())
}
