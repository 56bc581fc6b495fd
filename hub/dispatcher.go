package hub

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/classware-tech/switchboard/core/logger"
	"github.com/classware-tech/switchboard/devices"
)

// ErrUnreachable is returned when a device has no live connection at
// dispatch time. The intent is dropped at this layer; callers surface the
// condition to the user.
var ErrUnreachable = errors.New("device unreachable")

// ErrUnknownSwitch is returned when the addressed switch does not exist on
// the device record.
var ErrUnknownSwitch = errors.New("unknown switch")

// SingleCommand is one switch intent for one device.
type SingleCommand struct {
	DeviceID uuid.UUID
	SwitchID uuid.UUID
	State    bool
}

// BulkCommand targets the matching switches of many devices at once.
// Switches are matched by type; an empty filter matches all switches.
// Resolving devices by location is a collaborator concern and arrives here
// as the DeviceIDs list.
type BulkCommand struct {
	State      bool
	DeviceIDs  []uuid.UUID
	SwitchType string
}

// Dispatcher fans out switch intents to live device connections. Delivery
// is at-most-once and best-effort: no queueing, no acknowledgements, no
// retries. Confirmation of a new switch state is the device's own later
// state-update message.
type Dispatcher struct {
	store    devices.Store
	registry *Registry
}

// NewDispatcher returns a dispatcher resolving devices through the given
// store and connections through the given registry.
func NewDispatcher(store devices.Store, registry *Registry) *Dispatcher {
	return &Dispatcher{store: store, registry: registry}
}

// DispatchSingle sends exactly one command to the addressed device, or
// returns ErrUnreachable when it has no live connection.
func (d *Dispatcher) DispatchSingle(ctx context.Context, cmd SingleCommand) error {
	record, err := d.store.FindByID(ctx, cmd.DeviceID)
	if err != nil {
		return err
	}
	sw := record.SwitchByID(cmd.SwitchID)
	if sw == nil {
		return ErrUnknownSwitch
	}
	conn, ok := d.registry.Lookup(record.MAC)
	if !ok {
		return ErrUnreachable
	}
	return conn.Send(ctx, newSwitchCommand(sw.GPIO, cmd.State, sw.ID))
}

// DispatchBulk sends one command per matching switch to every reachable
// device in the set. Devices are processed independently; one unreachable
// device never blocks the others. Cross-device ordering is unspecified. The
// returned count is the number of commands actually sent, which can be less
// than the theoretical maximum.
func (d *Dispatcher) DispatchBulk(ctx context.Context, cmd BulkCommand) int {
	rlog := logger.FromContext(ctx)
	sent := 0
	for _, deviceID := range cmd.DeviceIDs {
		record, err := d.store.FindByID(ctx, deviceID)
		if err != nil {
			rlog.Warnln("bulk dispatch skipping device", deviceID, ":", err)
			continue
		}
		conn, ok := d.registry.Lookup(record.MAC)
		if !ok {
			rlog.Debugln("bulk dispatch skipping unreachable device:", record.MAC)
			continue
		}
		for _, sw := range record.Switches {
			if cmd.SwitchType != "" && sw.Type != cmd.SwitchType {
				continue
			}
			if err := conn.Send(ctx, newSwitchCommand(sw.GPIO, cmd.State, sw.ID)); err != nil {
				rlog.Warnln("bulk dispatch send to", record.MAC, "failed:", err)
				break
			}
			sent++
		}
	}
	return sent
}
