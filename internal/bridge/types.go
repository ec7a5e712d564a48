// Package bridge implements the Extension Bridge of spec.md §4.E: a
// per-process singleton WebSocket coordinator between the core and a
// browser extension, with a proxy-client fallback when another process
// already owns the well-known port.
package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientKind distinguishes a real browser connection from the synthetic
// "fake" client injected in proxy-client mode (spec.md §4.E).
type ClientKind string

const (
	KindBrowser    ClientKind = "browser"
	KindSubprocess ClientKind = "subprocess"
)

// Client is one connected peer: a real browser extension, or the single
// synthetic Subprocess client standing in for the upstream bridge in proxy
// mode.
type Client struct {
	ID          string
	Kind        ClientKind
	BrowserName string
	ConnectedAt time.Time
	LastSeen    time.Time

	conn *websocket.Conn
	send chan []byte
	mu   sync.Mutex
	dead bool
}

func (c *Client) isDead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead
}

func (c *Client) markDead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dead {
		c.dead = true
		close(c.send)
	}
}

// Frame is the wire envelope every message on the socket carries. Exactly
// one of the payload fields is populated per spec.md §4.E's frame set.
type Frame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Hello  *HelloFrame     `json:"hello,omitempty"`
	Eval   *EvalFrame      `json:"eval,omitempty"`
	Result *EvalResult     `json:"result,omitempty"`
	Close  *CloseTabFrame  `json:"close,omitempty"`
	Closed *CloseTabResult `json:"closed,omitempty"`
	Health *HealthFrame    `json:"health,omitempty"`
}

const (
	frameTypeHello      = "hello"
	frameTypeWelcome    = "welcome"
	frameTypeEval       = "eval"
	frameTypeEvalResult = "eval_result"
	frameTypeCloseTab   = "close_tab"
	frameTypeCloseTabOK = "close_tab_result"
	frameTypeHealth     = "get_extension_health"
)

// HelloFrame is the first frame a real browser client is expected to send.
type HelloFrame struct {
	Browser string `json:"browser,omitempty"`
}

// EvalFrame carries code for the extension to evaluate in the active or a
// named tab.
type EvalFrame struct {
	Code    string `json:"code"`
	Timeout int    `json:"timeout_ms,omitempty"`
}

// EvalResult is the response to an EvalFrame, delivered asynchronously and
// keyed by the originating Frame.ID.
type EvalResult struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// CloseTabFrame requests closing a tab identified by (in priority order)
// tab id, URL, title, or the active tab.
type CloseTabFrame struct {
	TabID   string `json:"tab_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Timeout int    `json:"timeout_ms,omitempty"`
}

// TabInfo describes the tab a close_tab call acted on.
type TabInfo struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
	WindowID string `json:"window_id,omitempty"`
}

// CloseTabResult answers a CloseTabFrame.
type CloseTabResult struct {
	Closed bool     `json:"closed"`
	Tab    *TabInfo `json:"tab,omitempty"`
}

// HealthFrame carries extension self-reported health, gathered right after
// a Hello handshake.
type HealthFrame struct {
	Version     string   `json:"version,omitempty"`
	Heartbeat   int64    `json:"heartbeat,omitempty"`
	RecentLogs  []string `json:"recent_logs,omitempty"`
}

// Status is the health_status() outcome enum (spec.md §4.E).
type Status string

const (
	StatusNotInitialized    Status = "not_initialized"
	StatusDead              Status = "dead"
	StatusHealthy           Status = "healthy"
	StatusWaitingForClients Status = "waiting_for_clients"
)

// HealthStatus is the result of health_status().
type HealthStatus struct {
	Connected       bool   `json:"connected"`
	Status          Status `json:"status"`
	Clients         int    `json:"clients"`
	ServerTaskAlive bool   `json:"server_task_alive"`
}
