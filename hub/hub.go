package hub

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/events"
)

// Defaults for the liveness window and the sweep interval.
const (
	DefaultFreshness     = 90 * time.Second
	DefaultSweepInterval = 30 * time.Second
)

// Builder is a builder helper for the Hub.
type Builder struct {
	// Store is the device record store. This is mandatory.
	Store devices.Store
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Broadcaster receives all state-change events. This is mandatory.
	Broadcaster events.Broadcaster
	// Freshness is the liveness window T: a device silent for longer is
	// presumed offline. The same value drives the sweep and the
	// client-facing online computation. Defaults to DefaultFreshness.
	Freshness time.Duration
	// SweepInterval is how often the liveness monitor runs.
	// Defaults to DefaultSweepInterval.
	SweepInterval time.Duration
	// OnDeviceMessage reconciles switch payloads of state_update and
	// manual_switch messages. Optional.
	OnDeviceMessage DeviceMessageHandler
}

// Hub is the device connectivity core. It owns the connection registry, the
// session handling for every device connection, the command dispatcher and
// the liveness monitor.
type Hub struct {
	store      devices.Store
	registry   *Registry
	emitter    *Emitter
	dispatcher *Dispatcher
	monitor    *Monitor
	onMessage  DeviceMessageHandler
	freshness  time.Duration
	upgrader   websocket.Upgrader
}

// MustNewHub realizes the hub and adds the device websocket route to the
// router. It panics when the builder is incomplete.
func MustNewHub(b *Builder) *Hub {
	if b.Store == nil {
		panic("store is missing")
	}
	if b.Router == nil {
		panic("router is missing")
	}
	if b.Broadcaster == nil {
		panic("broadcaster is missing")
	}
	freshness := b.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	sweepInterval := b.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	h := &Hub{
		store:     b.Store,
		registry:  NewRegistry(),
		emitter:   NewEmitter(b.Broadcaster),
		onMessage: b.OnDeviceMessage,
		freshness: freshness,
		upgrader: websocket.Upgrader{
			// boards do not send an Origin header
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	h.dispatcher = NewDispatcher(b.Store, h.registry)
	h.monitor = NewMonitor(b.Store, h.emitter, freshness, sweepInterval)

	log.Println("hub: handle route /devices/ws GET")
	b.Router.HandleFunc("/devices/ws", h.handleDeviceSocket).Methods(http.MethodGet)

	return h
}

// Run runs the liveness monitor until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.monitor.Run(ctx)
}

// Dispatcher returns the command dispatcher.
func (h *Hub) Dispatcher() *Dispatcher {
	return h.dispatcher
}

// Registry returns the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Emitter returns the state-change event emitter.
func (h *Hub) Emitter() *Emitter {
	return h.emitter
}

// Freshness returns the liveness window T.
func (h *Hub) Freshness() time.Duration {
	return h.freshness
}

// IsOnline computes the client-facing online state of a record, using the
// same freshness window as the liveness sweep. The stored status alone is
// only asynchronously consistent with the liveness timestamp.
func (h *Hub) IsOnline(record *devices.DeviceRecord) bool {
	return record.Status == devices.StatusOnline &&
		time.Since(record.LastSeenAt) <= h.freshness
}
