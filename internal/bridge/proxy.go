package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

// startProxy connects to the ancestor process's own bridge and installs a
// synthetic Subprocess client whose send channel is drained by proxyWriter
// onto that connection; proxyReader delivers eval_result/close_tab_result
// frames arriving from the ancestor to this process's own pending table, so
// EvalInActiveTab/EvalInBrowser/CloseTab work unmodified whether this
// bridge ended up in server or proxy mode (spec.md §4.E).
func (b *Bridge) startProxy(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", b.cfg.BindAddr, b.cfg.Port)
	url := fmt.Sprintf("ws://%s/", addr)

	dialCtx, cancel := context.WithTimeout(ctx, b.cfg.HandshakeTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return coreerrors.Platform(fmt.Sprintf("connect to ancestor bridge at %s", url), err, map[string]any{"addr": addr})
	}

	fake := &Client{ID: uuid.NewString(), Kind: KindSubprocess, ConnectedAt: time.Now(), send: make(chan []byte, 16)}

	b.mu.Lock()
	b.mode = ModeProxy
	b.alive = true
	b.upstream = conn
	b.clients[fake.ID] = fake
	b.mu.Unlock()
	gaugeServerAlive.Set(1)
	gaugeConnectedClients.Set(float64(len(b.clients)))

	go b.proxyWriter(fake, conn)
	go b.proxyReader(conn, fake)

	return nil
}

// proxyWriter forwards every frame enqueued for the synthetic Subprocess
// client - eval/close_tab requests this process makes locally - out over
// the upstream connection to the ancestor bridge.
func (b *Bridge) proxyWriter(c *Client, conn *websocket.Conn) {
	defer b.markProxyDone(c)
	for payload := range c.send {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// proxyReader receives frames the ancestor bridge relays back - eval_result
// and close_tab_result answers to requests this process proxied upstream -
// and delivers them to this bridge's own pending table.
func (b *Bridge) proxyReader(conn *websocket.Conn, c *Client) {
	defer b.markProxyDone(c)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			b.log.Warn("bridge: malformed frame from ancestor: %v", err)
			continue
		}
		switch frame.Type {
		case frameTypeEvalResult:
			if frame.Result != nil {
				b.deliverFrame(frame.Result.ID, frame)
			}
		case frameTypeCloseTabOK:
			b.deliverFrame(frame.ID, frame)
		}
	}
}

// markProxyDone runs once, whichever of proxyWriter/proxyReader notices the
// upstream connection is gone first: it marks the synthetic client and the
// bridge itself dead and clears any pending requests, since they can never
// be answered now (spec.md §4.E "Disconnect & leak control"), and closes
// b.done so Supervised() recreates the bridge on next use.
func (b *Bridge) markProxyDone(c *Client) {
	b.proxyDone.Do(func() {
		c.markDead()
		b.mu.Lock()
		delete(b.clients, c.ID)
		b.alive = false
		for id, ch := range b.pending {
			close(ch)
			delete(b.pending, id)
		}
		b.mu.Unlock()
		gaugeServerAlive.Set(0)
		gaugeConnectedClients.Set(0)
		close(b.done)
	})
}
