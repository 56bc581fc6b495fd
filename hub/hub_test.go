package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/events"
)

// fakeConn records everything sent to it.
type fakeConn struct {
	mu       sync.Mutex
	sent     [][]byte
	closed   bool
	failSend bool
}

func (c *fakeConn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("connection gone")
	}
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return "10.0.0.7:52100"
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeConn) lastSent() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	var decoded map[string]interface{}
	json.Unmarshal(c.sent[len(c.sent)-1], &decoded)
	return decoded
}

// failingStore simulates an unavailable device record store.
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) FindByMAC(context.Context, string) (*devices.DeviceRecord, error) {
	return nil, errStoreDown
}
func (failingStore) FindByID(context.Context, uuid.UUID) (*devices.DeviceRecord, error) {
	return nil, errStoreDown
}
func (failingStore) List(context.Context) ([]*devices.DeviceRecord, error) {
	return nil, errStoreDown
}
func (failingStore) Save(context.Context, *devices.DeviceRecord) error {
	return errStoreDown
}
func (failingStore) FindStale(context.Context, time.Time) ([]*devices.DeviceRecord, error) {
	return nil, errStoreDown
}

// harness bundles the collaborators a session needs.
type harness struct {
	store    *devices.MemoryStore
	registry *Registry
	fanout   *events.Fanout
	emitter  *Emitter
	sub      *events.Subscription
}

func newHarness() *harness {
	fanout := events.NewFanout()
	return &harness{
		store:    devices.NewMemoryStore(),
		registry: NewRegistry(),
		fanout:   fanout,
		emitter:  NewEmitter(fanout),
		sub:      fanout.Subscribe(32),
	}
}

func (h *harness) newSession(conn Conn) *Session {
	return NewSession(conn, h.store, h.registry, h.emitter, nil)
}

// nextEvent returns the next broadcast event, or ok=false if none is pending.
func (h *harness) nextEvent() (events.StateChangeEvent, bool) {
	select {
	case event := <-h.sub.C:
		return event, true
	default:
		return events.StateChangeEvent{}, false
	}
}

func (h *harness) drainEvents() {
	for {
		if _, ok := h.nextEvent(); !ok {
			return
		}
	}
}

func identifyMsg(mac, secret string) []byte {
	data, _ := json.Marshal(map[string]string{
		"type":   "identify",
		"mac":    mac,
		"secret": secret,
	})
	return data
}

func livenessMsg(msgType, mac string) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"type":   msgType,
		"mac":    mac,
		"uptime": 1234,
	})
	return data
}
