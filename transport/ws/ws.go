// Package ws is the websocket transport: it upgrades an HTTP request
// to a gorilla/websocket connection, validates its Origin header the
// way go-ethereum's rpc.wsHandshakeValidator does, and wraps the
// connection as a router.Conn so listener.Accept can drive it.
package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/gorilla/websocket"

	"github.com/thinktopic/peer/listener"
	"github.com/thinktopic/peer/router"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 1 << 20
)

// originValidator reports whether an Origin header value is allowed.
// A single "*" entry allows any origin.
type originValidator struct {
	allowAll bool
	allowed  mapset.Set
}

func newOriginValidator(origins []string) *originValidator {
	v := &originValidator{allowed: mapset.NewSet()}
	for _, o := range origins {
		if o == "*" {
			v.allowAll = true
			continue
		}
		if o != "" {
			v.allowed.Add(o)
		}
	}
	return v
}

func (v *originValidator) Allowed(origin string) bool {
	if v.allowAll || origin == "" {
		return true
	}
	return v.allowed.Contains(origin)
}

// Handler upgrades connections at its registered path and hands them
// to a listener.
type Handler struct {
	listener *listener.Listener
	origins  *originValidator
	upgrader websocket.Upgrader
}

// NewHandler builds a websocket upgrade handler bound to l, accepting
// connections only from allowedOrigins ("*" to allow any origin).
func NewHandler(l *listener.Listener, allowedOrigins []string) *Handler {
	v := newOriginValidator(allowedOrigins)
	return &Handler{
		listener: l,
		origins:  v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return v.Allowed(r.Header.Get("Origin")) },
		},
	}
}

// ServeHTTP implements http.Handler, upgrading the request and handing
// the resulting connection to the listener's handshake.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wrapped := newConn(conn)
	if err := h.listener.Accept(wrapped, r); err != nil {
		wrapped.Close()
	}
}

// conn adapts a *websocket.Conn to router.Conn: ReadMessage/Write/Close
// with a serializing write mutex (gorilla connections are not
// safe for concurrent writers) and idle-connection liveness via
// ping/pong deadlines.
type conn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	c := &conn{ws: ws, closed: make(chan struct{})}
	ws.SetReadLimit(maxFrame)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.pingLoop()
	return c
}

func (c *conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// ReadMessage blocks for the next text/binary frame. It returns
// (nil, io.EOF)-equivalent behavior on a normal close via the
// underlying error from gorilla, which callers treat as end-of-stream.
func (c *conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *conn) Write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}

// Dial connects to a peer listener's websocket endpoint and returns
// the connection as a router.Conn. It does not send the peer-id
// handshake frame or read the connect-reply; the caller does both.
// origin, if non-empty, is sent as the Origin header the remote
// listener's allowedOrigins will be checked against.
func Dial(url, origin string) (router.Conn, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newConn(ws), nil
}
