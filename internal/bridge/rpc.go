package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

func (b *Bridge) registerPending(id string) chan Frame {
	ch := make(chan Frame, 1)
	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()
	return ch
}

func (b *Bridge) unregisterPending(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// waitForAnyClient blocks (up to b.cfg.ClientWaitTimeout) until at least one
// client is connected. Proxy mode already has the synthetic client
// registered, so it returns immediately.
func (b *Bridge) waitForAnyClient(ctx context.Context) error {
	deadline := time.Now().Add(b.cfg.ClientWaitTimeout)
	for {
		if b.clientCount() > 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return coreerrors.ElementNotFound("no extension client connected within the wait timeout", nil)
		}
		select {
		case <-ctx.Done():
			return coreerrors.Cancelled("wait for client cancelled")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// pickClient chooses the target client for eval_in_browser(target), per
// spec.md §4.E's preference order: exact alias-normalized name match on the
// most recently connected client; else, if only unnamed legacy clients have been
// connected longer than LegacyClientAge, use one of those; else error
// listing what's connected.
func (b *Bridge) pickClient(target string) (*Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var named []*Client
	var legacy []*Client
	var names []string
	for _, c := range b.clients {
		if c.isDead() {
			continue
		}
		if c.BrowserName != "" {
			names = append(names, c.BrowserName)
		}
		if target != "" && normalizeBrowserName(c.BrowserName) == normalizeBrowserName(target) {
			named = append(named, c)
		}
		if c.BrowserName == "" && isLegacyClient(c, time.Now(), b.cfg.LegacyClientAge) {
			legacy = append(legacy, c)
		}
	}

	if len(named) > 0 {
		sort.Slice(named, func(i, j int) bool { return named[i].ConnectedAt.After(named[j].ConnectedAt) })
		return named[0], nil
	}
	if len(legacy) > 0 {
		return legacy[0], nil
	}
	if len(names) > 0 {
		return nil, coreerrors.ElementNotFound(
			fmt.Sprintf("no client named %q is connected; connected: %s", target, strings.Join(names, ", ")),
			map[string]any{"target": target, "connected": names})
	}
	return nil, errNoMatchingClient
}

// isLegacyClient reports whether c predates the Hello handshake convention
// and has been connected long enough to be treated as a usable fallback,
// per spec.md §4.E ("if only unnamed legacy clients are connected >500ms").
// Isolated so a future bridge revision that requires Hello on every client
// can delete this fallback without touching the routing logic above.
func isLegacyClient(c *Client, now time.Time, age time.Duration) bool {
	return now.Sub(c.ConnectedAt) > age
}

func (b *Bridge) pickAnyClient() (*Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var best *Client
	for _, c := range b.clients {
		if c.isDead() {
			continue
		}
		if best == nil || c.ConnectedAt.After(best.ConnectedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, errNoMatchingClient
	}
	return best, nil
}

// EvalInActiveTab sends code to the most recently connected client and
// evaluates it in that client's active tab.
func (b *Bridge) EvalInActiveTab(ctx context.Context, code string, timeout time.Duration) (*EvalResult, error) {
	if err := b.waitForAnyClient(ctx); err != nil {
		return nil, err
	}
	client, err := b.pickAnyClient()
	if err != nil {
		return nil, err
	}
	return b.eval(ctx, client, code, timeout)
}

// EvalInBrowser evaluates code in the named browser's client.
func (b *Bridge) EvalInBrowser(ctx context.Context, targetBrowser, code string, timeout time.Duration) (*EvalResult, error) {
	if err := b.waitForAnyClient(ctx); err != nil {
		return nil, err
	}
	client, err := b.pickClient(targetBrowser)
	if err != nil {
		return nil, err
	}
	return b.eval(ctx, client, code, timeout)
}

func (b *Bridge) eval(ctx context.Context, client *Client, code string, timeout time.Duration) (*EvalResult, error) {
	id := uuid.NewString()
	ch := b.registerPending(id)

	b.sendFrame(client, Frame{
		Type: frameTypeEval,
		ID:   id,
		Eval: &EvalFrame{Code: code, Timeout: int(timeout.Milliseconds())},
	})

	select {
	case frame, ok := <-ch:
		if !ok || frame.Result == nil {
			return nil, nil // Ok(None): bridge up, slot closed without an answer
		}
		return frame.Result, nil
	case <-time.After(timeout):
		b.unregisterPending(id)
		return nil, nil // documented convention: timeout => Ok(None)
	case <-ctx.Done():
		b.unregisterPending(id)
		return nil, coreerrors.Cancelled("eval cancelled")
	}
}

// CloseTab implements close_tab (spec.md §4.E).
func (b *Bridge) CloseTab(ctx context.Context, tabID, url, title string, timeout time.Duration) (*CloseTabResult, error) {
	if err := b.waitForAnyClient(ctx); err != nil {
		return nil, err
	}
	client, err := b.pickAnyClient()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ch := b.registerPending(id)
	b.sendFrame(client, Frame{
		Type:  frameTypeCloseTab,
		ID:    id,
		Close: &CloseTabFrame{TabID: tabID, URL: url, Title: title, Timeout: int(timeout.Milliseconds())},
	})

	select {
	case frame, ok := <-ch:
		if !ok || frame.Closed == nil {
			return &CloseTabResult{Closed: false}, nil
		}
		return frame.Closed, nil
	case <-time.After(timeout):
		b.unregisterPending(id)
		return &CloseTabResult{Closed: false}, nil
	case <-ctx.Done():
		b.unregisterPending(id)
		return nil, coreerrors.Cancelled("close_tab cancelled")
	}
}

// MarshalEvalResult is a small helper for tests/callers that need to build
// an EvalResult payload from an arbitrary value.
func MarshalEvalResult(id string, ok bool, v any, evalErr string) (EvalResult, error) {
	var raw json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return EvalResult{}, err
		}
		raw = b
	}
	return EvalResult{ID: id, OK: ok, Result: raw, Error: evalErr}, nil
}
