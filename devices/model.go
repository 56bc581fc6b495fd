/*Package devices holds the device record model for relay-controller boards
and the store interface to persist them.
*/
package devices

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a device.
type Status string

// Lifecycle states of a device record.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// ManualMode describes how a switch reacts to its manual-override input.
type ManualMode string

// Manual-override behaviors.
const (
	ManualModeToggle    ManualMode = "toggle"
	ManualModeMomentary ManualMode = "momentary"
	ManualModeSync      ManualMode = "sync"
)

// Switch is one relay channel on a controller board.
type Switch struct {
	ID         uuid.UUID  `json:"switch_id"`
	Name       string     `json:"name"`
	GPIO       int        `json:"gpio"`
	ManualPin  *int       `json:"manual_pin,omitempty"`
	Type       string     `json:"type,omitempty"`
	State      bool       `json:"state"`
	ManualMode ManualMode `json:"manual_mode,omitempty"`
}

// MotionSensorConfig is the optional motion-sensor input of a board.
type MotionSensorConfig struct {
	Enabled        bool `json:"enabled"`
	Pin            int  `json:"pin"`
	TimeoutSeconds int  `json:"timeout_seconds,omitempty"`
}

// PendingCommand is a deferred switch intent queued while a device is
// unreachable. The queue is populated by external collaborators; this core
// only carries it along with the record.
type PendingCommand struct {
	SwitchID uuid.UUID `json:"switch_id"`
	GPIO     int       `json:"gpio"`
	State    bool      `json:"state"`
	QueuedAt time.Time `json:"queued_at"`
}

// DeviceRecord is the persistent record of one relay-controller board.
// The MAC address is the stable hardware identity; the secret is stored on
// first contact and compared on every later identify handshake. The secret
// is never marshalled into state snapshots.
type DeviceRecord struct {
	ID              uuid.UUID           `json:"device_id"`
	MAC             string              `json:"mac"`
	Name            string              `json:"name,omitempty"`
	IP              string              `json:"ip,omitempty"`
	Secret          string              `json:"-"`
	Platform        string              `json:"platform,omitempty"`
	Status          Status              `json:"status"`
	LastSeenAt      time.Time           `json:"last_seen_at"`
	Switches        []Switch            `json:"switches"`
	MotionSensor    *MotionSensorConfig `json:"motion_sensor,omitempty"`
	PendingCommands []PendingCommand    `json:"pending_commands,omitempty"`
}

// Clone returns a deep copy of the record.
func (d *DeviceRecord) Clone() *DeviceRecord {
	if d == nil {
		return nil
	}
	c := *d
	c.Switches = append([]Switch(nil), d.Switches...)
	if d.MotionSensor != nil {
		ms := *d.MotionSensor
		c.MotionSensor = &ms
	}
	c.PendingCommands = append([]PendingCommand(nil), d.PendingCommands...)
	return &c
}

// SwitchByID returns the switch with the given id, or nil.
func (d *DeviceRecord) SwitchByID(id uuid.UUID) *Switch {
	for i := range d.Switches {
		if d.Switches[i].ID == id {
			return &d.Switches[i]
		}
	}
	return nil
}
