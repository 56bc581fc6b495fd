package hub

import (
	"context"
	"time"

	"github.com/classware-tech/switchboard/core/logger"
	"github.com/classware-tech/switchboard/devices"
	"github.com/classware-tech/switchboard/events"
	"github.com/classware-tech/switchboard/gpio"
)

// SessionState is the per-connection state of the handshake state machine.
type SessionState string

// Session states. StateError is reached on a failed secret comparison; the
// connection stays open and a successful identify retry leaves it again.
const (
	StateUnidentified   SessionState = "unidentified"
	StateAuthenticating SessionState = "authenticating"
	StateOnline         SessionState = "online"
	StateOffline        SessionState = "offline"
	StateError          SessionState = "error"
)

// DeviceMessageHandler reconciles the switch payload of a state_update or
// manual_switch message into the device record. The handler may mutate the
// record in place; the session persists it afterwards. Reconciliation itself
// is a collaborator concern, the hub only carries the hook.
type DeviceMessageHandler func(ctx context.Context, record *devices.DeviceRecord, msg Message) error

// Session drives the handshake and liveness state machine for one device
// connection. A session is driven by the connection's single read loop, so
// its state needs no locking. Failures on one session never affect another
// connection.
type Session struct {
	conn      Conn
	store     devices.Store
	registry  *Registry
	emitter   *Emitter
	onMessage DeviceMessageHandler

	state SessionState
	mac   string
}

// NewSession returns a session in state Unidentified.
func NewSession(conn Conn, store devices.Store, registry *Registry, emitter *Emitter, onMessage DeviceMessageHandler) *Session {
	return &Session{
		conn:      conn,
		store:     store,
		registry:  registry,
		emitter:   emitter,
		onMessage: onMessage,
		state:     StateUnidentified,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// HandleMessage processes one raw message from the device. Malformed
// messages are logged and ignored; the connection stays open.
func (s *Session) HandleMessage(ctx context.Context, data []byte) {
	msg, err := parseMessage(data)
	if err != nil || msg.Type == "" || msg.MAC == "" {
		logger.FromContext(ctx).Warnln("ignoring malformed device message:", err)
		return
	}
	ctx, rlog := logger.ContextWithLoggerDevice(ctx, msg.MAC)

	switch msg.Type {
	case MessageTypeIdentify:
		s.handleIdentify(ctx, msg)
	case MessageTypeHeartbeat:
		s.handleLiveness(ctx, msg, "")
	case MessageTypeStateUpdate:
		s.handleLiveness(ctx, msg, events.SourceStateUpdate)
	case MessageTypeManualSwitch:
		s.handleLiveness(ctx, msg, events.SourceManualSwitch)
	default:
		rlog.Warnln("ignoring message of unknown type:", msg.Type)
	}
}

func (s *Session) handleIdentify(ctx context.Context, msg Message) {
	rlog := logger.FromContext(ctx)
	s.state = StateAuthenticating

	source := events.SourceReconnect
	record, err := s.store.FindByMAC(ctx, msg.MAC)
	switch {
	case err == devices.ErrNotFound:
		// first contact, provision the record and adopt the secret
		record = &devices.DeviceRecord{
			MAC:      msg.MAC,
			Secret:   msg.Secret,
			Platform: gpio.DefaultPlatform,
			Switches: []devices.Switch{},
		}
		source = events.SourceIdentify
		rlog.Infoln("first contact, provisioning device record")
	case err != nil:
		rlog.Errorln("store unavailable during identify:", err)
		return
	case record.Secret != "" && record.Secret != msg.Secret:
		rlog.Warnln("identify rejected, secret mismatch")
		s.state = StateError
		if err := s.conn.Send(ctx, newErrorReply("authentication failed")); err != nil {
			rlog.Debugln("cannot send error reply:", err)
		}
		// the connection is left open so the peer can retry or close
		return
	case record.Secret == "":
		// write-once: a record provisioned without a secret adopts the
		// first secret presented
		record.Secret = msg.Secret
	}

	record.Status = devices.StatusOnline
	record.LastSeenAt = time.Now().UTC()
	record.IP = s.conn.RemoteAddr()
	if err := s.store.Save(ctx, record); err != nil {
		rlog.Errorln("store unavailable during identify:", err)
		return
	}

	s.mac = record.MAC
	if prev := s.registry.Register(record.MAC, s.conn); prev != nil {
		prev.Close()
	}
	s.state = StateOnline

	if err := s.conn.Send(ctx, newIdentifiedReply()); err != nil {
		rlog.Debugln("cannot send identified reply:", err)
	}
	s.emitter.Emit(ctx, record, source, "")
	rlog.Infoln("device identified")
}

// handleLiveness refreshes the record's liveness timestamp. For state_update
// and manual_switch messages, the payload handler gets a chance to reconcile
// the reported switch state before the record is saved and an event emitted.
func (s *Session) handleLiveness(ctx context.Context, msg Message, source string) {
	rlog := logger.FromContext(ctx)
	if s.state != StateOnline {
		rlog.Debugln("ignoring", msg.Type, "from unidentified connection")
		return
	}
	if msg.MAC != s.mac {
		rlog.Warnln("ignoring", msg.Type, "for foreign identity:", msg.MAC)
		return
	}

	record, err := s.store.FindByMAC(ctx, s.mac)
	if err != nil {
		rlog.Errorln("store unavailable during", msg.Type+":", err)
		return
	}

	wasOffline := record.Status != devices.StatusOnline
	record.Status = devices.StatusOnline
	record.LastSeenAt = time.Now().UTC()

	if source != "" && s.onMessage != nil {
		if err := s.onMessage(ctx, record, msg); err != nil {
			rlog.Errorln("device message handler:", err)
		}
	}

	if err := s.store.Save(ctx, record); err != nil {
		rlog.Errorln("store unavailable during", msg.Type+":", err)
		return
	}

	switch {
	case wasOffline:
		s.emitter.Emit(ctx, record, events.SourceReconnect, "")
	case source != "":
		s.emitter.Emit(ctx, record, source, "")
	}
}

// HandleClose releases the connection's registry binding. The record is
// marked offline only when this connection still owns the binding; a newer
// connection that already replaced it is left alone.
func (s *Session) HandleClose(ctx context.Context) {
	if s.state != StateOnline {
		return
	}
	s.state = StateOffline
	if !s.registry.Unregister(s.mac, s.conn) {
		return
	}

	ctx, rlog := logger.ContextWithLoggerDevice(ctx, s.mac)
	record, err := s.store.FindByMAC(ctx, s.mac)
	if err != nil {
		rlog.Errorln("store unavailable during disconnect:", err)
		return
	}
	if record.Status != devices.StatusOnline {
		return
	}
	record.Status = devices.StatusOffline
	if err := s.store.Save(ctx, record); err != nil {
		rlog.Errorln("store unavailable during disconnect:", err)
		return
	}
	s.emitter.Emit(ctx, record, events.SourceDisconnect, "")
	rlog.Infoln("device disconnected")
}
