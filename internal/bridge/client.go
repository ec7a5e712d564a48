package bridge

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

func (b *Bridge) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("bridge: websocket upgrade failed: %v", err)
		return
	}
	client := &Client{
		ID:          uuid.NewString(),
		Kind:        KindBrowser,
		ConnectedAt: time.Now(),
		LastSeen:    time.Now(),
		conn:        conn,
		send:        make(chan []byte, 64),
	}

	b.mu.Lock()
	b.clients[client.ID] = client
	b.mu.Unlock()
	gaugeConnectedClients.Set(float64(b.clientCount()))

	go b.writePump(client)
	b.readPump(client)
}

func (b *Bridge) clientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Bridge) writePump(c *Client) {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (b *Bridge) readPump(c *Client) {
	defer func() {
		c.markDead()
		b.sweepDeadClients()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.LastSeen = time.Now()

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			b.log.Warn("bridge: malformed frame from client %s: %v", c.ID, err)
			continue
		}
		b.handleFrame(c, frame)
	}
}

func (b *Bridge) handleFrame(c *Client, frame Frame) {
	switch frame.Type {
	case frameTypeHello:
		if frame.Hello != nil {
			c.BrowserName = normalizeBrowserName(frame.Hello.Browser)
		}
		b.sendFrame(c, Frame{Type: frameTypeWelcome, ID: frame.ID})
		b.sendFrame(c, Frame{Type: frameTypeHealth, ID: uuid.NewString()})
	case frameTypeEval:
		if frame.Eval != nil {
			b.forwardProxiedRequest(c, frame)
		}
	case frameTypeCloseTab:
		if frame.Close != nil {
			b.forwardProxiedRequest(c, frame)
		}
	case frameTypeEvalResult:
		if frame.Result != nil {
			b.deliverFrame(frame.Result.ID, frame)
			b.relayToProxyOrigin(frame.Result.ID, frame)
		}
	case frameTypeCloseTabOK:
		b.deliverFrame(frame.ID, frame)
		b.relayToProxyOrigin(frame.ID, frame)
	case frameTypeHealth:
		if frame.Health != nil {
			b.log.Debug("bridge: health from %s: version=%s heartbeat=%d", c.ID, frame.Health.Version, frame.Health.Heartbeat)
		}
	}
}

func (b *Bridge) sendFrame(c *Client, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if c.isDead() {
		return
	}
	select {
	case c.send <- payload:
	default:
		b.log.Warn("bridge: send buffer full for client %s, dropping frame", c.ID)
	}
}

// forwardProxiedRequest handles an eval/close_tab frame arriving FROM a
// connected client instead of originating locally: a proxy-mode child
// forwarding its own request through this bridge, which it reached as the
// ancestor's server (spec.md §4.E). The frame is rebroadcast to this
// bridge's other connected clients, and the origin is remembered so the
// eventual result frame can be relayed back down the connection that asked
// for it once it arrives.
func (b *Bridge) forwardProxiedRequest(origin *Client, frame Frame) {
	b.mu.Lock()
	b.proxyOrigins[frame.ID] = origin
	var targets []*Client
	for _, c := range b.clients {
		if c != origin && !c.isDead() {
			targets = append(targets, c)
		}
	}
	b.mu.Unlock()
	for _, c := range targets {
		b.sendFrame(c, frame)
	}
}

// relayToProxyOrigin completes a proxied request by forwarding its result
// frame back down the connection that originally asked for it, if any.
func (b *Bridge) relayToProxyOrigin(id string, frame Frame) {
	b.mu.Lock()
	origin, ok := b.proxyOrigins[id]
	if ok {
		delete(b.proxyOrigins, id)
	}
	b.mu.Unlock()
	if ok {
		b.sendFrame(origin, frame)
	}
}

// sweepDeadClients removes closed-channel clients and, when the last client
// disconnects, clears all pending requests since they can never be
// answered (spec.md §4.E "Disconnect & leak control").
func (b *Bridge) sweepDeadClients() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		if c.isDead() {
			delete(b.clients, id)
			for reqID, origin := range b.proxyOrigins {
				if origin == c {
					delete(b.proxyOrigins, reqID)
				}
			}
		}
	}
	gaugeConnectedClients.Set(float64(len(b.clients)))
	if len(b.clients) == 0 {
		for id, ch := range b.pending {
			close(ch)
			delete(b.pending, id)
		}
	}
}

func normalizeBrowserName(name string) string {
	aliases := map[string]string{
		"msedge": "edge", "microsoft edge": "edge",
		"google chrome": "chrome",
		"brave browser": "brave",
	}
	if canonical, ok := aliases[lower(name)]; ok {
		return canonical
	}
	return name
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		out[i] = ch
	}
	return string(out)
}

func (b *Bridge) deliverFrame(id string, frame Frame) {
	b.mu.Lock()
	ch, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- frame:
	default:
		b.log.Warn("bridge: duplicate response for request %s, overwriting", id)
	}
	close(ch)
}

var errNoMatchingClient = coreerrors.ElementNotFound("no matching extension client is connected", nil)
