package fchat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WireConn is the message-oriented transport the connection writes to and
// the read pump reads from. *websocket.Conn satisfies it; tests substitute
// scripted implementations.
type WireConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens the underlying transport. The production dialer performs a
// websocket upgrade; tests inject doubles instead of reaching for ambient
// global hooks.
type Dialer interface {
	Dial(ctx context.Context, url string) (WireConn, error)
}

// websocketDialer is the production Dialer over gorilla/websocket.
type websocketDialer struct {
	timeout time.Duration
}

// Dial performs the websocket upgrade against the chat server.
func (d websocketDialer) Dial(ctx context.Context, url string) (WireConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.timeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// transport owns the socket write path and the writability gate. Writes are
// guarded by a send-failure-reason string rather than a live socket probe:
// it starts as "not yet open", clears when the socket opens, and is set
// again on close or error. Whatever reason is recorded surfaces on the next
// write attempt.
type transport struct {
	mu            sync.Mutex
	ws            WireConn
	failureReason string

	writeMu sync.Mutex // gorilla permits one concurrent writer
	tap     *wireTap
}

// newTransport creates an unopened transport.
func newTransport() *transport {
	return &transport{
		failureReason: "not yet open",
		tap:           newWireTap(),
	}
}

// attach wires the opened socket and clears the failure reason.
func (t *transport) attach(ws WireConn) {
	t.mu.Lock()
	t.ws = ws
	t.failureReason = ""
	t.mu.Unlock()
}

// fail records why the transport is no longer writable. The first recorded
// reason wins.
func (t *transport) fail(reason string) {
	t.mu.Lock()
	if t.failureReason == "" {
		t.failureReason = reason
	}
	t.mu.Unlock()
}

// writeFrame sends one text frame, or fails with the recorded reason.
func (t *transport) writeFrame(frame string) error {
	t.mu.Lock()
	reason := t.failureReason
	ws := t.ws
	t.mu.Unlock()
	if reason != "" {
		return fmt.Errorf("cannot send: %s", reason)
	}

	t.tap.record(">>", frame)

	t.writeMu.Lock()
	err := ws.WriteMessage(websocket.TextMessage, []byte(frame))
	t.writeMu.Unlock()
	if err != nil {
		t.fail(fmt.Sprintf("write failed: %v", err))
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// close tears down the socket. Safe to call before attach and repeatedly.
func (t *transport) close() {
	t.mu.Lock()
	ws := t.ws
	if t.failureReason == "" {
		t.failureReason = "closed"
	}
	t.mu.Unlock()
	if ws != nil {
		ws.Close()
	}
}

// readPump feeds inbound frames into the connection's incoming buffer. The
// buffer decouples socket reads from message processing, so a slow handler
// never stalls transport reads. Runs until the socket fails or closes.
func (t *transport) readPump(conn *Conn) {
	for {
		_, data, err := t.ws.ReadMessage()
		if err != nil {
			t.fail(fmt.Sprintf("transport closed: %v", err))
			conn.transportClosed(err)
			return
		}
		frame := string(data)
		t.tap.record("<<", frame)
		conn.incoming.Enqueue(frame)
	}
}

// Process-wide registry of live connections. This is a debug/test teardown
// affordance, not a correctness requirement.
var (
	openConnsMu sync.Mutex
	openConns   = map[*Conn]struct{}{}
)

func registerConn(c *Conn) {
	openConnsMu.Lock()
	openConns[c] = struct{}{}
	openConnsMu.Unlock()
}

func unregisterConn(c *Conn) {
	openConnsMu.Lock()
	delete(openConns, c)
	openConnsMu.Unlock()
}

// DebugKillOpenSockets disposes every live connection in the process.
// Intended for test teardown.
func DebugKillOpenSockets() {
	openConnsMu.Lock()
	conns := make([]*Conn, 0, len(openConns))
	for c := range openConns {
		conns = append(conns, c)
	}
	openConnsMu.Unlock()

	for _, c := range conns {
		c.Dispose()
	}
}

// Connect opens a websocket to the configured endpoint and returns a live
// connection with its dispatch loop running. A transport failure before the
// open completes is returned as an error; failures after open dispose the
// connection and report a classified disconnect through the sink instead.
func Connect(ctx context.Context, cfg ClientConfig, sink ChatConnectionSink) (*Conn, error) {
	cfg = cfg.withDefaults()
	return ConnectWithDialer(ctx, cfg, sink, websocketDialer{timeout: cfg.DialTimeout})
}

// ConnectWithDialer is Connect with an injected transport dialer.
func ConnectWithDialer(ctx context.Context, cfg ClientConfig, sink ChatConnectionSink, dialer Dialer) (*Conn, error) {
	cfg = cfg.withDefaults()
	if sink == nil {
		sink = PartialSink{}.Complete()
	}

	t := newTransport()
	ws, err := dialer.Dial(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("open transport: %w", err)
	}
	t.attach(ws)

	conn := newConn(cfg, sink, t)
	registerConn(conn)

	go conn.dispatchLoop()
	go t.readPump(conn)

	log.Debug().Str("endpoint", cfg.Endpoint).Msg("transport open")
	return conn, nil
}
