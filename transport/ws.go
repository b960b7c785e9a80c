package transport

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultReadDeadline  = 15 * time.Second
	defaultWriteDeadline = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSTransport is the reference Transport implementation: one listening
// HTTP server accepting inbound WebSocket upgrades, plus outbound dials to
// peer addresses ("host:port"). Mirrors the teacher's net.Conn-based
// PeerSession (node/p2p_runtime.go) but framed over gorilla/websocket
// instead of a raw length-prefixed TCP stream.
type WSTransport struct {
	listenAddr string
	server     *http.Server
	listener   net.Listener

	mu    sync.Mutex
	conns map[ConnectionID]*websocket.Conn

	events chan Event
	done   chan struct{}
}

// NewWSTransport creates a transport that will listen on listenAddr once
// Start is called. listenAddr may be empty to disable the inbound listener
// (dial-only mode).
func NewWSTransport(listenAddr string) *WSTransport {
	return &WSTransport{
		listenAddr: listenAddr,
		conns:      make(map[ConnectionID]*websocket.Conn),
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
	}
}

func (t *WSTransport) Events() <-chan Event { return t.events }

// Addr returns the listener's actual bound address, useful when listenAddr
// was given as "host:0" and the OS picked the port. Empty until Start runs.
func (t *WSTransport) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// Start begins accepting inbound connections, if a listen address was
// configured.
func (t *WSTransport) Start() error {
	if t.listenAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", t.listenAddr)
	if err != nil {
		return transportErrWrap(ErrDial, "listen "+t.listenAddr, err)
	}
	t.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleUpgrade)
	t.server = &http.Server{Handler: mux}

	go func() {
		_ = t.server.Serve(ln)
	}()
	return nil
}

// Stop closes the listener and every established connection.
func (t *WSTransport) Stop() error {
	close(t.done)
	if t.listener != nil {
		_ = t.listener.Close()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, c := range t.conns {
		_ = c.Close()
		delete(t.conns, id)
	}
	return nil
}

func (t *WSTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := NewConnectionID()
	t.registerConn(id, conn, r.RemoteAddr)
}

// Connect dials address and registers the resulting connection. A bare
// "host:port" is dialed as "ws://host:port/"; an address that already
// carries a scheme ("ws://host:port/") is dialed verbatim.
func (t *WSTransport) Connect(address string) (ConnectionID, error) {
	url := address
	if !strings.Contains(address, "://") {
		url = "ws://" + address + "/"
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return "", transportErrWrap(ErrDial, "dial "+address, err)
	}
	id := NewConnectionID()
	t.registerConn(id, conn, address)
	return id, nil
}

func (t *WSTransport) registerConn(id ConnectionID, conn *websocket.Conn, address string) {
	t.mu.Lock()
	t.conns[id] = conn
	t.mu.Unlock()

	t.emit(Event{Kind: EventConnectionEstablished, Conn: id, Address: address})
	go t.readLoop(id, conn, address)
}

func (t *WSTransport) readLoop(id ConnectionID, conn *websocket.Conn, address string) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(defaultReadDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			delete(t.conns, id)
			t.mu.Unlock()
			t.emit(Event{Kind: EventConnectionLost, Conn: id, Address: address, Err: err})
			return
		}
		t.emit(Event{Kind: EventMessageReceived, Conn: id, Address: address, Payload: payload})
	}
}

// Disconnect closes and forgets a connection.
func (t *WSTransport) Disconnect(id ConnectionID) error {
	t.mu.Lock()
	conn, ok := t.conns[id]
	delete(t.conns, id)
	t.mu.Unlock()
	if !ok {
		return transportErr(ErrUnknownConn, "unknown connection")
	}
	return conn.Close()
}

// Send writes payload as a single binary WebSocket frame to id.
func (t *WSTransport) Send(id ConnectionID, payload []byte) error {
	t.mu.Lock()
	conn, ok := t.conns[id]
	t.mu.Unlock()
	if !ok {
		return transportErr(ErrUnknownConn, "unknown connection")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline))
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return transportErrWrap(ErrSend, "write to "+string(id), err)
	}
	return nil
}

func (t *WSTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

var _ Transport = (*WSTransport)(nil)
