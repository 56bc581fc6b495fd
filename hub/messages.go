package hub

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Message types understood on a device connection.
const (
	MessageTypeIdentify     = "identify"
	MessageTypeHeartbeat    = "heartbeat"
	MessageTypeStateUpdate  = "state_update"
	MessageTypeManualSwitch = "manual_switch"
)

// Message is one inbound message from a device. All message types share the
// envelope; fields beyond the envelope stay raw for the payload handler.
type Message struct {
	Type   string `json:"type"`
	MAC    string `json:"mac"`
	Secret string `json:"secret,omitempty"`
	Uptime int64  `json:"uptime,omitempty"`
	GPIO   *int   `json:"gpio,omitempty"`
	State  *bool  `json:"state,omitempty"`

	// Raw is the complete message as received, for collaborators that
	// reconcile switch payloads.
	Raw json.RawMessage `json:"-"`
}

func parseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	msg.Raw = append(json.RawMessage(nil), data...)
	return msg, nil
}

type identifiedReply struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

type errorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newIdentifiedReply() []byte {
	data, _ := json.Marshal(identifiedReply{Type: "identified", Mode: "online"})
	return data
}

func newErrorReply(message string) []byte {
	data, _ := json.Marshal(errorReply{Type: "error", Message: message})
	return data
}

type switchCommand struct {
	Type     string `json:"type"`
	GPIO     int    `json:"gpio"`
	State    bool   `json:"state"`
	SwitchID string `json:"switchId"`
	TS       int64  `json:"ts"`
}

func newSwitchCommand(gpio int, state bool, switchID uuid.UUID) []byte {
	data, _ := json.Marshal(switchCommand{
		Type:     "switch_command",
		GPIO:     gpio,
		State:    state,
		SwitchID: switchID.String(),
		TS:       time.Now().UnixMilli(),
	})
	return data
}
