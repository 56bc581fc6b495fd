package hub

import (
	"context"
	"sync"
)

// Conn is the live channel used to push messages to one device.
type Conn interface {
	// Send delivers one message to the device. Sends on one connection are
	// serialized by the implementation.
	Send(ctx context.Context, payload []byte) error
	// Close closes the channel. Safe to call more than once.
	Close() error
	// RemoteAddr returns the network address of the peer.
	RemoteAddr() string
}

// Registry binds device identities to their live connections. At most one
// connection is bound per identity at any instant; a reconnect replaces the
// previous binding, it never merges. The raw map is never exposed.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register binds the identity to the connection, replacing any prior binding
// (last-write-wins). The previous connection is returned, or nil; the caller
// is responsible for closing it.
func (r *Registry) Register(mac string, conn Conn) Conn {
	r.mu.Lock()
	prev := r.conns[mac]
	r.conns[mac] = conn
	r.mu.Unlock()
	if prev == conn {
		return nil
	}
	return prev
}

// Lookup returns the live connection for the identity, if any.
func (r *Registry) Lookup(mac string) (Conn, bool) {
	r.mu.RLock()
	conn, ok := r.conns[mac]
	r.mu.RUnlock()
	return conn, ok
}

// Unregister removes the binding only if it still equals conn. This guards
// against the race where a new connection has already replaced the binding.
func (r *Registry) Unregister(mac string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.conns[mac]
	if !ok || current != conn {
		return false
	}
	delete(r.conns, mac)
	return true
}

// Len returns the number of live bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
