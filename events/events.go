/*Package events carries state-change events of relay-controller boards to
arbitrary subscribers.

Delivery is fire-and-forget and at-most-once per observer; there is no
replay log. Events carry a per-device sequence number together with the
emitting process epoch, so consumers can detect stale or out-of-order
deliveries for one device and disambiguate across process restarts.
*/
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classware-tech/switchboard/core/logger"
	"github.com/classware-tech/switchboard/devices"
)

// Source tags for state-change events.
const (
	SourceIdentify     = "identify"
	SourceReconnect    = "reconnect"
	SourceStateUpdate  = "state-update"
	SourceManualSwitch = "manual-switch"
	SourceDispatch     = "dispatch"
	SourceDisconnect   = "disconnect"
	SourceOfflineScan  = "offline-scan"
)

// StateChangeEvent is one observable change of a device's state. Seq is
// strictly increasing without gaps per device for the lifetime of one
// emitter process; Epoch changes on process restart.
type StateChangeEvent struct {
	DeviceID  uuid.UUID             `json:"device_id"`
	MAC       string                `json:"mac"`
	Snapshot  *devices.DeviceRecord `json:"snapshot"`
	Epoch     int64                 `json:"epoch"`
	Seq       uint64                `json:"seq"`
	Timestamp time.Time             `json:"timestamp"`
	Source    string                `json:"source"`
	Note      string                `json:"note,omitempty"`
}

// Broadcaster delivers state-change events to subscribers. Implementations
// must not block the caller.
type Broadcaster interface {
	Broadcast(ctx context.Context, event StateChangeEvent)
}

// Subscription is one observer of a Fanout. Events are received on C.
type Subscription struct {
	C      chan StateChangeEvent
	fanout *Fanout
}

// Close cancels the subscription.
func (s *Subscription) Close() {
	s.fanout.unsubscribe(s)
}

// Fanout is an in-process broadcaster. A slow observer whose channel buffer
// is full misses the event; observers detect the gap via Seq.
type Fanout struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewFanout returns an empty in-process broadcaster.
func NewFanout() *Fanout {
	return &Fanout{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new observer with the given channel buffer size.
func (f *Fanout) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{C: make(chan StateChangeEvent, buffer), fanout: f}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *Fanout) unsubscribe(sub *Subscription) {
	f.mu.Lock()
	if _, ok := f.subs[sub]; ok {
		delete(f.subs, sub)
		close(sub.C)
	}
	f.mu.Unlock()
}

// Broadcast delivers the event to all current subscribers without blocking.
func (f *Fanout) Broadcast(ctx context.Context, event StateChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs {
		select {
		case sub.C <- event:
		default:
			logger.FromContext(ctx).Debugf("dropping event seq %d for %s, observer is not keeping up",
				event.Seq, event.MAC)
		}
	}
}

// Tee is a broadcaster that forwards every event to all wrapped
// broadcasters, e.g. an in-process fanout plus a Kafka topic.
type Tee []Broadcaster

// Broadcast implements Broadcaster.
func (t Tee) Broadcast(ctx context.Context, event StateChangeEvent) {
	for _, b := range t {
		b.Broadcast(ctx, event)
	}
}
