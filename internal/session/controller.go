// Package session implements the client side room session: the state
// machine that creates and joins rooms, sends chat, and folds server
// frames into the session, chat log and presence snapshot.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BioHazard786/roomtalk/internal/protocol"
	"github.com/BioHazard786/roomtalk/internal/roomstate"
	"github.com/BioHazard786/roomtalk/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	msgSocketNotOpen    = "Socket not open"
	msgCreateFailed     = "Room creation failed"
	msgJoinFailed       = "Failed to join room"
	msgConnectionClosed = "Connection closed"
	msgCodeCopied       = "Room code copied to clipboard!"
)

// Conn is the part of the transport the controller drives.
type Conn interface {
	Send(frame []byte) error
	State() transport.State
}

// Config wires a Controller to its collaborators. Nil fields get no-op
// or default implementations.
type Config struct {
	Notifier  Notifier
	Clipboard Clipboard
	Codes     *CodeGenerator
	Logger    *zerolog.Logger
}

// Controller owns the Session, ChatLog and PresenceTracker. It is the only
// component that sends protocol requests, and the only one that mutates
// that state. All methods are safe for concurrent use.
type Controller struct {
	notifier  Notifier
	clipboard Clipboard
	codes     *CodeGenerator
	logger    zerolog.Logger

	mu          sync.Mutex
	conn        Conn
	session     Session
	chat        *roomstate.ChatLog
	presence    *roomstate.PresenceTracker
	memberHint  int
	candidate   string
	createdRoom string
	pendingRoom string
	pendingName string
	lastFailure *ProtocolFailure
	notes       []notification

	updates chan struct{}
}

// NewController creates a controller in the pre-session phase with no
// connection attached.
func NewController(cfg Config) *Controller {
	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	codes := cfg.Codes
	if codes == nil {
		codes = NewCodeGenerator(DefaultRoomPrefix, DefaultRoomSuffixMax)
	}

	return &Controller{
		notifier:  cfg.Notifier,
		clipboard: cfg.Clipboard,
		codes:     codes,
		logger:    base.With().Str("component", "session").Logger(),
		chat:      roomstate.NewChatLog(),
		presence:  roomstate.NewPresenceTracker(),
		updates:   make(chan struct{}, 1),
	}
}

// Updates signals after every state change. Signals coalesce; read
// Snapshot to get the current state.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// Attach binds the controller to conn and resets the session to
// pre-session. The returned listener must be the one passed to conn's
// Connect; events from previously attached connections are ignored.
func (c *Controller) Attach(conn Conn) transport.Listener {
	c.do(func() error {
		c.conn = conn
		c.resetLocked()
		c.logger.Debug().Msg("connection attached")
		return nil
	})
	return &binding{c: c, conn: conn}
}

// Leave drops the current room locally and returns to pre-session.
func (c *Controller) Leave() {
	c.do(func() error {
		c.resetLocked()
		return nil
	})
}

// RequestCreateRoom asks the server to create a room under a freshly
// generated candidate code.
func (c *Controller) RequestCreateRoom() error {
	return c.do(func() error {
		if err := c.checkIdleLocked("create room"); err != nil {
			return err
		}

		code := c.codes.Next()
		if err := c.sendLocked(protocol.NewSave(code)); err != nil {
			return NewError("create room", err)
		}

		c.candidate = code
		c.lastFailure = nil
		c.session.Phase = PhaseAwaitingRoomCreated
		c.logger.Info().Str("candidate", code).Msg("room creation requested")
		return nil
	})
}

// RequestJoin asks the server to seat displayName in roomID.
func (c *Controller) RequestJoin(roomID, displayName string) error {
	return c.do(func() error {
		if err := c.checkIdleLocked("join room"); err != nil {
			return err
		}

		if err := c.sendLocked(protocol.NewJoin(roomID, displayName)); err != nil {
			return NewError("join room", err)
		}

		c.pendingRoom = roomID
		c.pendingName = displayName
		c.lastFailure = nil
		c.session.Phase = PhaseAwaitingJoinResult
		// Snapshots for roomID that beat the reply are kept.
		c.presence.Reset(roomID)
		c.logger.Info().Str("room", roomID).Str("name", displayName).Msg("join requested")
		return nil
	})
}

// SendChat sends text to the current room. The message shows up in the
// chat log only once the server echoes it back.
func (c *Controller) SendChat(text string) error {
	return c.do(func() error {
		if c.session.Phase != PhaseInRoom {
			return WrapError("send chat", ErrInvalidPhase, c.session.Phase.String())
		}
		if err := c.sendLocked(protocol.NewChat(text, c.session.DisplayName)); err != nil {
			return NewError("send chat", err)
		}
		return nil
	})
}

// CopyRoomCode copies the active room code, or the last created one, to
// the clipboard.
func (c *Controller) CopyRoomCode() error {
	return c.do(func() error {
		code := c.createdRoom
		if c.session.Phase == PhaseInRoom {
			code = c.session.Room
		}
		if code == "" {
			return NewError("copy room code", ErrNoRoomCode)
		}
		if c.clipboard == nil {
			return NewError("copy room code", errors.New("no clipboard available"))
		}
		if err := c.clipboard.Copy(code); err != nil {
			c.notifyLocked(KindError, fmt.Sprintf("Copy failed: %v", err))
			return NewError("copy room code", err)
		}
		c.notifyLocked(KindInfo, msgCodeCopied)
		return nil
	})
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Session:     c.session,
		Messages:    c.chat.Messages(),
		CreatedRoom: c.createdRoom,
		PendingRoom: c.pendingRoom,
		Connection:  transport.StateIdle,
	}
	if c.lastFailure != nil {
		f := *c.lastFailure
		v.LastFailure = &f
	}
	if c.conn != nil {
		v.Connection = c.conn.State()
	}
	if c.session.Phase == PhaseInRoom {
		v.Members, _ = c.presence.Members(c.session.Room)
		v.MemberCount = c.presence.CurrentCount(c.session.Room, c.memberHint)
	}
	return v
}

// HandleFrame decodes one server frame and applies it. A frame that does
// not decode leaves the state untouched and is reported as a
// *protocol.DecodeError.
func (c *Controller) HandleFrame(frame []byte) error {
	return c.do(func() error {
		return c.handleFrameLocked(frame)
	})
}

func (c *Controller) handleFrameLocked(frame []byte) error {
	in, err := protocol.Decode(frame)
	if err != nil {
		var decErr *protocol.DecodeError
		if errors.As(err, &decErr) {
			c.logger.Warn().Err(err).Str("frame", decErr.Frame).Msg("discarding frame")
		}
		return err
	}

	var surfaced string
	switch in.Type {
	case protocol.TypeRoomCreated:
		surfaced = c.onRoomCreatedLocked(in)
	case protocol.TypeJoined:
		surfaced = c.onJoinedLocked(in)
	case protocol.TypeChat:
		c.onChatLocked(in)
	case protocol.TypeGetUsers:
		c.presence.Replace(in.Users)
	}

	if in.Message != "" && in.Message != surfaced {
		c.notifyLocked(KindInfo, in.Message)
	}
	return nil
}

func (c *Controller) onRoomCreatedLocked(in *protocol.Inbound) string {
	if c.session.Phase != PhaseAwaitingRoomCreated {
		c.logger.Debug().Stringer("phase", c.session.Phase).Msg("ignoring unsolicited roomCreated")
		return ""
	}
	c.session.Phase = PhasePreSession

	if !in.Success {
		c.lastFailure = &ProtocolFailure{Op: "create room", Message: msgCreateFailed, Reason: in.Message}
		c.notifyLocked(KindError, msgCreateFailed)
		return msgCreateFailed
	}

	code := in.RoomID
	if code == "" {
		code = c.candidate
	}
	if code != c.candidate {
		c.logger.Info().Str("candidate", c.candidate).Str("room", code).Msg("server assigned a different room code")
	}
	c.createdRoom = code
	c.candidate = ""
	return ""
}

func (c *Controller) onJoinedLocked(in *protocol.Inbound) string {
	if c.session.Phase != PhaseAwaitingJoinResult {
		c.logger.Debug().Stringer("phase", c.session.Phase).Msg("ignoring unsolicited joined")
		return ""
	}

	if !in.Success {
		msg := in.Message
		if msg == "" {
			msg = msgJoinFailed
		}
		c.session.Phase = PhasePreSession
		c.pendingRoom, c.pendingName = "", ""
		c.presence.Reset("")
		c.lastFailure = &ProtocolFailure{Op: "join room", Message: msg}
		c.notifyLocked(KindError, msg)
		return msg
	}

	room := in.RoomID
	if room == "" {
		room = c.pendingRoom
	}
	name := in.Name
	if name == "" {
		name = c.pendingName
	}

	c.session = Session{DisplayName: name, Room: room, Phase: PhaseInRoom}
	c.pendingRoom, c.pendingName = "", ""
	c.chat.Reset(room)
	if c.presence.Room() != room {
		c.presence.Reset(room)
	}
	if members, ok := in.Data[room]; ok {
		c.presence.ReplaceRoom(room, members)
		c.memberHint = len(members)
	} else {
		c.memberHint = 1
	}

	c.logger.Info().Str("room", room).Str("name", name).Msg("joined room")
	return ""
}

func (c *Controller) onChatLocked(in *protocol.Inbound) {
	if c.session.Phase != PhaseInRoom {
		c.logger.Debug().Stringer("phase", c.session.Phase).Msg("dropping chat outside a room")
		return
	}
	c.chat.Append(roomstate.ChatMessage{
		Sender: in.Sender,
		Text:   in.Text,
		Mine:   in.Sender == c.session.DisplayName,
	})
}

func (c *Controller) checkIdleLocked(op string) error {
	switch {
	case c.session.Phase.Pending():
		return WrapError(op, ErrRequestPending, c.session.Phase.String())
	case c.session.Phase != PhasePreSession:
		return WrapError(op, ErrInvalidPhase, c.session.Phase.String())
	}
	return nil
}

// sendLocked encodes msg and hands it to the connection, notifying the
// user when the connection cannot take it.
func (c *Controller) sendLocked(msg protocol.Outbound) error {
	if c.conn == nil {
		c.notifyLocked(KindError, msgSocketNotOpen)
		return ErrNotAttached
	}
	if c.conn.State() != transport.StateOpen {
		c.notifyLocked(KindError, msgSocketNotOpen)
		return transport.ErrNotOpen
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := c.conn.Send(frame); err != nil {
		if errors.Is(err, transport.ErrNotOpen) {
			c.notifyLocked(KindError, msgSocketNotOpen)
		} else {
			c.notifyLocked(KindError, fmt.Sprintf("Send failed: %v", err))
		}
		return err
	}
	return nil
}

func (c *Controller) resetLocked() {
	name := c.session.DisplayName
	c.session = Session{DisplayName: name, Phase: PhasePreSession}
	c.chat.Reset("")
	c.presence.Reset("")
	c.memberHint = 0
	c.candidate = ""
	c.createdRoom = ""
	c.pendingRoom, c.pendingName = "", ""
	c.lastFailure = nil
}

func (c *Controller) notifyLocked(kind Kind, message string) {
	c.notes = append(c.notes, notification{kind: kind, message: message})
}

// do runs fn under the lock, then delivers the notifications fn queued
// and signals the change, both outside the lock.
func (c *Controller) do(fn func() error) error {
	c.mu.Lock()
	err := fn()
	notes := c.notes
	c.notes = nil
	c.mu.Unlock()

	for _, n := range notes {
		if c.notifier == nil {
			c.logger.Debug().Stringer("kind", n.kind).Str("message", n.message).Msg("notification dropped")
			continue
		}
		c.notifier.Notify(n.kind, n.message)
	}

	select {
	case c.updates <- struct{}{}:
	default:
	}
	return err
}

// binding is the listener of one attached connection.
type binding struct {
	c    *Controller
	conn Conn
}

func (b *binding) current() bool {
	return b.c.conn == b.conn
}

func (b *binding) OnOpen() {
	b.c.do(func() error {
		if b.current() {
			b.c.logger.Info().Msg("connection open")
		}
		return nil
	})
}

func (b *binding) OnMessage(frame []byte) {
	b.c.do(func() error {
		if !b.current() {
			return nil
		}
		return b.c.handleFrameLocked(frame)
	})
}

func (b *binding) OnError(err error) {
	b.c.do(func() error {
		if !b.current() {
			return nil
		}
		b.c.logger.Warn().Err(err).Msg("transport error")
		b.c.notifyLocked(KindError, fmt.Sprintf("WebSocket error: %v", err))
		return nil
	})
}

func (b *binding) OnClose() {
	b.c.do(func() error {
		if !b.current() {
			return nil
		}
		b.c.resetLocked()
		b.c.notifyLocked(KindError, msgConnectionClosed)
		return nil
	})
}
