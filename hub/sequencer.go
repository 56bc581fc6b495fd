package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/events"
)

// Sequencer hands out per-device monotonic sequence numbers, starting at 1
// for a device's first call within one process lifetime. Sequences are held
// in memory only and reset on restart; the process epoch lets consumers tell
// restarts apart.
type Sequencer struct {
	mu    sync.Mutex
	epoch int64
	seqs  map[uuid.UUID]uint64
}

// NewSequencer returns a sequencer whose epoch is the current unix time.
func NewSequencer() *Sequencer {
	return &Sequencer{
		epoch: time.Now().Unix(),
		seqs:  make(map[uuid.UUID]uint64),
	}
}

// Next returns the next sequence number for the device. Numbers increase by
// exactly 1 per call, independently per device.
func (s *Sequencer) Next(deviceID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[deviceID]++
	return s.seqs[deviceID]
}

// Epoch returns the process epoch paired with every sequence number.
func (s *Sequencer) Epoch() int64 {
	return s.epoch
}

// Emitter builds sequenced state-change events and hands them to the
// broadcaster, fire-and-forget.
type Emitter struct {
	sequencer   *Sequencer
	broadcaster events.Broadcaster
}

// NewEmitter returns an emitter publishing through the given broadcaster.
func NewEmitter(broadcaster events.Broadcaster) *Emitter {
	return &Emitter{
		sequencer:   NewSequencer(),
		broadcaster: broadcaster,
	}
}

// Emit broadcasts a state-change event carrying a full snapshot of the
// device and the next sequence number. The built event is returned.
func (e *Emitter) Emit(ctx context.Context, device *devices.DeviceRecord, source, note string) events.StateChangeEvent {
	event := events.StateChangeEvent{
		DeviceID:  device.ID,
		MAC:       device.MAC,
		Snapshot:  device.Clone(),
		Epoch:     e.sequencer.Epoch(),
		Seq:       e.sequencer.Next(device.ID),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Note:      note,
	}
	e.broadcaster.Broadcast(ctx, event)
	return event
}
