package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/mediar-ai/terminator/internal/logging"
)

// Mode is the bridge's operating mode (spec.md §4.E).
type Mode string

const (
	ModeServer Mode = "server"
	ModeProxy  Mode = "proxy"
)

// ProcessAncestor is one hop of the OS process-ancestry walk used to decide
// server-vs-proxy mode.
type ProcessAncestor struct {
	PID  int
	Name string
}

// AncestryWalker walks the current process's ancestry, nearest parent
// first, up to maxHops entries.
type AncestryWalker interface {
	Ancestors(ctx context.Context, maxHops int) ([]ProcessAncestor, error)
}

// PortOwner resolves and can terminate the process currently bound to a
// TCP port, used by the port-contention recovery path (spec.md §4.E).
type PortOwner interface {
	HolderOf(ctx context.Context, port int) (ProcessAncestor, error)
	Kill(ctx context.Context, pid int) error
}

const ancestryMaxHops = 10

// ancestryAliasTokens is the closed set of ancestor-process-name substrings
// (case-insensitive) that trigger proxy-client mode.
var ancestryAliasTokens = []string{"terminator-mcp-agent", "mediar"}

// portHolderKillable is the closed set of port-holder-process-name
// substrings (case-insensitive) this core is willing to force-kill.
var portHolderKillable = []string{"terminator", "mediar", "node", "bun"}

// Config configures a Bridge.
type Config struct {
	BindAddr          string
	Port              int
	HandshakeTimeout  time.Duration
	EvalTimeout       time.Duration
	ClientWaitTimeout time.Duration
	LegacyClientAge   time.Duration
	PortRecoveryDelay time.Duration
	Walker            AncestryWalker
	PortOwner         PortOwner
	Logger            logging.Logger
}

func (c Config) withDefaults() Config {
	if c.BindAddr == "" {
		c.BindAddr = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 17373
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.EvalTimeout <= 0 {
		c.EvalTimeout = 10 * time.Second
	}
	if c.ClientWaitTimeout <= 0 {
		c.ClientWaitTimeout = 10 * time.Second
	}
	if c.LegacyClientAge <= 0 {
		c.LegacyClientAge = 500 * time.Millisecond
	}
	if c.PortRecoveryDelay <= 0 {
		c.PortRecoveryDelay = 1 * time.Second
	}
	return c
}

var (
	gaugeConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "terminator_bridge_connected_clients",
		Help: "Number of clients currently connected to the extension bridge.",
	})
	gaugeServerAlive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "terminator_bridge_server_alive",
		Help: "1 if the bridge's server task is alive, 0 otherwise.",
	})
)

func init() {
	prometheus.MustRegister(gaugeConnectedClients, gaugeServerAlive)
}

// Bridge is the per-process singleton WebSocket coordinator of spec.md
// §4.E.
type Bridge struct {
	cfg     Config
	log     logging.Logger
	mode    Mode
	mu      sync.Mutex
	clients map[string]*Client
	pending map[string]chan Frame

	// proxyOrigins maps a proxied eval/close_tab request's frame ID back to
	// the client connection that forwarded it, so this bridge can relay the
	// eventual result frame to the right place when acting as the ancestor
	// a proxy-mode child is dialed into (spec.md §4.E).
	proxyOrigins map[string]*Client

	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader

	upstream *websocket.Conn // set in proxy mode

	done      chan struct{}
	proxyDone sync.Once
	alive     bool
}

// New constructs a Bridge in an unstarted state.
func New(cfg Config) *Bridge {
	cfg = cfg.withDefaults()
	return &Bridge{
		cfg:          cfg,
		log:          logging.OrNop(cfg.Logger),
		clients:      map[string]*Client{},
		pending:      map[string]chan Frame{},
		proxyOrigins: map[string]*Client{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Addr returns the bridge's bound address in server mode, or "" otherwise.
func (b *Bridge) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Mode reports which mode the bridge ended up running in.
func (b *Bridge) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Start brings the bridge up: binds a listener in server mode, recovering
// from port contention per spec.md §4.E, or connects upstream in proxy
// mode when an ancestor process already owns the bridge.
func (b *Bridge) Start(ctx context.Context) error {
	if b.cfg.Walker != nil {
		ancestors, err := b.cfg.Walker.Ancestors(ctx, ancestryMaxHops)
		if err == nil {
			for _, a := range ancestors {
				if matchesAnyToken(a.Name, ancestryAliasTokens) {
					return b.startProxy(ctx)
				}
			}
		}
	}
	return b.startServer(ctx)
}

func matchesAnyToken(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func (b *Bridge) startServer(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", b.cfg.BindAddr, b.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if b.cfg.PortOwner != nil {
			holder, herr := b.cfg.PortOwner.HolderOf(ctx, b.cfg.Port)
			if herr == nil && matchesAnyToken(holder.Name, portHolderKillable) {
				if kerr := b.cfg.PortOwner.Kill(ctx, holder.PID); kerr == nil {
					select {
					case <-ctx.Done():
						return coreerrors.Cancelled("bridge start cancelled during port recovery")
					case <-time.After(b.cfg.PortRecoveryDelay):
					}
					ln, err = net.Listen("tcp", addr)
				}
			} else if herr == nil {
				b.log.Warn("bridge: port %d held by %q, not killing", b.cfg.Port, holder.Name)
				return coreerrors.PortInUse(fmt.Sprintf("port %d is in use by %q", b.cfg.Port, holder.Name), map[string]any{"port": b.cfg.Port})
			}
		}
		if err != nil {
			return coreerrors.PortBindError(fmt.Sprintf("failed to bind %s", addr), err)
		}
	}

	b.mu.Lock()
	b.listener = ln
	b.mode = ModeServer
	b.alive = true
	b.mu.Unlock()
	gaugeServerAlive.Set(1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", b.handleWebSocket)
	b.httpServer = &http.Server{Handler: mux}

	go func() {
		_ = b.httpServer.Serve(ln)
		b.mu.Lock()
		b.alive = false
		b.mu.Unlock()
		gaugeServerAlive.Set(0)
		close(b.done)
	}()
	return nil
}

// Close shuts the bridge down: closes the listener/http server, every
// client connection, and clears pending requests.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.httpServer != nil {
		_ = b.httpServer.Close()
	}
	if b.upstream != nil {
		_ = b.upstream.Close()
	}
	for _, c := range b.clients {
		if !c.isDead() {
			c.markDead()
		}
	}
	b.clients = map[string]*Client{}
	b.proxyOrigins = map[string]*Client{}
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
	b.alive = false
	gaugeServerAlive.Set(0)
	gaugeConnectedClients.Set(0)
	return nil
}

// HealthStatus implements health_status() (spec.md §4.E).
func (b *Bridge) HealthStatus() HealthStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.clients)
	status := StatusNotInitialized
	switch {
	case !b.alive:
		status = StatusDead
	case n == 0:
		status = StatusWaitingForClients
	default:
		status = StatusHealthy
	}
	return HealthStatus{
		Connected:       n > 0,
		Status:          status,
		Clients:         n,
		ServerTaskAlive: b.alive,
	}
}

// --- per-process singleton supervisor ---

var supervisor struct {
	mu sync.Mutex
	b  *Bridge
}

// Supervised returns the process-wide Bridge singleton, creating it on
// first call via newFn and recreating it if the previous instance's server
// task has finished (spec.md §4.E "first caller creates it; subsequent
// callers either receive the live instance or trigger a recreate").
func Supervised(ctx context.Context, newFn func() *Bridge) (*Bridge, error) {
	supervisor.mu.Lock()
	defer supervisor.mu.Unlock()

	if supervisor.b != nil {
		select {
		case <-supervisor.b.done:
			// server task finished; fall through to recreate
		default:
			return supervisor.b, nil
		}
	}

	b := newFn()
	if err := b.Start(ctx); err != nil {
		return nil, err
	}
	supervisor.b = b
	return b, nil
}

// ResetSupervisorForTest clears the process-wide singleton. Exported only
// for tests that need a clean supervisor between cases.
func ResetSupervisorForTest() {
	supervisor.mu.Lock()
	defer supervisor.mu.Unlock()
	supervisor.b = nil
}
