package hub

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/classware-tech/switchboard/core/logger"
)

// wsConn wraps one websocket connection with a write mutex so that command
// pushes and session replies from different goroutines never interleave on
// the wire.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Send implements Conn.
func (c *wsConn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close implements Conn.
func (c *wsConn) Close() error {
	return c.ws.Close()
}

// RemoteAddr implements Conn.
func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// handleDeviceSocket upgrades the request and runs the connection's read
// loop until the peer goes away. One goroutine per connection; messages on
// one connection are handled in order, there is no ordering across
// connections.
func (h *Hub) handleDeviceSocket(w http.ResponseWriter, r *http.Request) {
	ctx, rlog := logger.ContextWithLogger(r.Context())
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rlog.Warnln("websocket upgrade failed:", err)
		return
	}
	conn := &wsConn{ws: ws}
	session := NewSession(conn, h.store, h.registry, h.emitter, h.onMessage)
	rlog.Debugln("device connection from", conn.RemoteAddr())

	defer func() {
		session.HandleClose(ctx)
		conn.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			rlog.Debugln("device connection closed:", err)
			return
		}
		session.HandleMessage(ctx, data)
	}
}
