package session

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/BioHazard786/roomtalk/internal/protocol"
	"github.com/BioHazard786/roomtalk/internal/roomstate"
	"github.com/BioHazard786/roomtalk/internal/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	state   transport.State
	frames  [][]byte
	sendErr error
}

func newOpenConn() *fakeConn {
	return &fakeConn{state: transport.StateOpen}
}

func (f *fakeConn) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != transport.StateOpen {
		return transport.ErrNotOpen
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) State() transport.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeConn) setState(s transport.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *fakeConn) sent(t *testing.T) []protocol.Outbound {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Outbound, 0, len(f.frames))
	for _, frame := range f.frames {
		msg, err := protocol.DecodeOutbound(frame)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

type noteRecorder struct {
	mu    sync.Mutex
	notes []notification
}

func (r *noteRecorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	r.notes = append(r.notes, notification{kind: kind, message: message})
	r.mu.Unlock()
}

func (r *noteRecorder) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.notes...)
}

func (r *noteRecorder) reset() {
	r.mu.Lock()
	r.notes = nil
	r.mu.Unlock()
}

type fakeClipboard struct {
	copied []string
	err    error
}

func (f *fakeClipboard) Copy(text string) error {
	if f.err != nil {
		return f.err
	}
	f.copied = append(f.copied, text)
	return nil
}

type harness struct {
	ctrl  *Controller
	conn  *fakeConn
	notes *noteRecorder
	clip  *fakeClipboard
	l     transport.Listener
}

func newHarness() *harness {
	logger := zerolog.Nop()
	h := &harness{conn: newOpenConn(), notes: &noteRecorder{}, clip: &fakeClipboard{}}
	h.ctrl = NewController(Config{Notifier: h.notes, Clipboard: h.clip, Logger: &logger})
	h.l = h.ctrl.Attach(h.conn)
	return h
}

func frame(t *testing.T, in protocol.Inbound) []byte {
	t.Helper()
	data, err := protocol.EncodeInbound(in)
	require.NoError(t, err)
	return data
}

func (h *harness) deliver(t *testing.T, in protocol.Inbound) {
	t.Helper()
	require.NoError(t, h.ctrl.HandleFrame(frame(t, in)))
}

func (h *harness) joinAs(t *testing.T, room, name string, members ...string) {
	t.Helper()
	require.NoError(t, h.ctrl.RequestJoin(room, name))
	h.deliver(t, protocol.Inbound{
		Type:    protocol.TypeJoined,
		Success: true,
		RoomID:  room,
		Name:    name,
		Data:    protocol.Presence{room: members},
	})
}

func TestJoinSuccess(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"))
	assert.Equal(t, PhaseAwaitingJoinResult, h.ctrl.Snapshot().Session.Phase)
	assert.Equal(t, []protocol.Outbound{protocol.NewJoin("room42", "Ann")}, h.conn.sent(t))

	err := h.ctrl.HandleFrame([]byte(`{"type":"joined","success":true,"roomId":"room42","name":"Ann","data":{"room42":["Ann"]},"message":"joined!"}`))
	require.NoError(t, err)

	v := h.ctrl.Snapshot()
	assert.Equal(t, Session{DisplayName: "Ann", Room: "room42", Phase: PhaseInRoom}, v.Session)
	assert.Empty(t, v.Messages)
	assert.Equal(t, 1, v.MemberCount)
	assert.Equal(t, []string{"Ann"}, v.Members)
	assert.Equal(t, []notification{{kind: KindInfo, message: "joined!"}}, h.notes.all())
}

func TestJoinPrefersServerIdentity(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestJoin("ROOM42", "ann"))
	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: true, RoomID: "room42", Name: "ann#2"})

	v := h.ctrl.Snapshot()
	assert.Equal(t, "room42", v.Session.Room)
	assert.Equal(t, "ann#2", v.Session.DisplayName)
	assert.Equal(t, 1, v.MemberCount, "no snapshot for the room yet, the local user is the hint")
}

func TestJoinFallsBackToRequestedValues(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestJoin("room9", "Ann"))
	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: true})

	v := h.ctrl.Snapshot()
	assert.Equal(t, "room9", v.Session.Room)
	assert.Equal(t, "Ann", v.Session.DisplayName)
}

func TestJoinFailure(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestJoin("nope", "Ann"))
	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: false, Message: "Room not found"})

	v := h.ctrl.Snapshot()
	assert.Equal(t, PhasePreSession, v.Session.Phase)
	assert.Empty(t, v.Session.Room)
	require.NotNil(t, v.LastFailure)
	assert.Equal(t, "Room not found", v.LastFailure.Message)
	assert.Equal(t, []notification{{kind: KindError, message: "Room not found"}}, h.notes.all())

	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"), "the user can retry after a failure")
}

func TestJoinFailureWithoutMessage(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestJoin("nope", "Ann"))
	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: false})

	assert.Equal(t, []notification{{kind: KindError, message: msgJoinFailed}}, h.notes.all())
}

func TestInboundChatAppendsInOrder(t *testing.T) {
	h := newHarness()
	h.joinAs(t, "room42", "Ann", "Ann", "Bob")

	h.deliver(t, protocol.Inbound{Type: protocol.TypeChat, Sender: "Bob", Text: "hi"})
	assert.Equal(t, []roomstate.ChatMessage{{Sender: "Bob", Text: "hi", Mine: false}}, h.ctrl.Snapshot().Messages)

	h.deliver(t, protocol.Inbound{Type: protocol.TypeChat, Sender: "Ann", Text: "hey Bob"})
	h.deliver(t, protocol.Inbound{Type: protocol.TypeChat, Sender: "Bob", Text: "how are you"})

	assert.Equal(t, []roomstate.ChatMessage{
		{Sender: "Bob", Text: "hi"},
		{Sender: "Ann", Text: "hey Bob", Mine: true},
		{Sender: "Bob", Text: "how are you"},
	}, h.ctrl.Snapshot().Messages)
}

func TestChatOutsideRoomIsDropped(t *testing.T) {
	h := newHarness()

	h.deliver(t, protocol.Inbound{Type: protocol.TypeChat, Sender: "Bob", Text: "early"})
	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"))
	h.deliver(t, protocol.Inbound{Type: protocol.TypeChat, Sender: "Bob", Text: "racing"})

	assert.Empty(t, h.ctrl.Snapshot().Messages)
}

func TestCreateRoomDoesNotEnterRoom(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestCreateRoom())
	assert.Equal(t, PhaseAwaitingRoomCreated, h.ctrl.Snapshot().Session.Phase)

	sent := h.conn.sent(t)
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.TypeSave, sent[0].Type)
	save := sent[0].Payload.(protocol.SavePayload)
	assert.True(t, strings.HasPrefix(save.RoomID, DefaultRoomPrefix))

	h.deliver(t, protocol.Inbound{Type: protocol.TypeRoomCreated, Success: true, RoomID: "room42"})

	v := h.ctrl.Snapshot()
	assert.Equal(t, PhasePreSession, v.Session.Phase)
	assert.Equal(t, "room42", v.CreatedRoom, "the server's code wins over the candidate")
	assert.Empty(t, v.Session.Room)
	assert.Zero(t, v.MemberCount)
}

func TestCreateRoomFallsBackToCandidate(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ctrl.RequestCreateRoom())
	candidate := h.conn.sent(t)[0].Payload.(protocol.SavePayload).RoomID

	h.deliver(t, protocol.Inbound{Type: protocol.TypeRoomCreated, Success: true})

	assert.Equal(t, candidate, h.ctrl.Snapshot().CreatedRoom)
}

func TestCreateRoomFailure(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestCreateRoom())
	h.deliver(t, protocol.Inbound{Type: protocol.TypeRoomCreated, Success: false, Message: "room exists"})

	v := h.ctrl.Snapshot()
	assert.Equal(t, PhasePreSession, v.Session.Phase)
	assert.Empty(t, v.CreatedRoom)
	require.NotNil(t, v.LastFailure)
	assert.Equal(t, "create room: server refused: Room creation failed: room exists", v.LastFailure.Error())
	assert.Equal(t, []notification{
		{kind: KindError, message: msgCreateFailed},
		{kind: KindInfo, message: "room exists"},
	}, h.notes.all())
}

func TestOneRequestInFlight(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"))
	assert.ErrorIs(t, h.ctrl.RequestCreateRoom(), ErrRequestPending)
	assert.ErrorIs(t, h.ctrl.RequestJoin("room7", "Ann"), ErrRequestPending)
	assert.Len(t, h.conn.sent(t), 1)

	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: true, RoomID: "room42", Name: "Ann"})
	assert.ErrorIs(t, h.ctrl.RequestCreateRoom(), ErrInvalidPhase)
	assert.ErrorIs(t, h.ctrl.RequestJoin("room7", "Ann"), ErrInvalidPhase)
}

func TestUnsolicitedRepliesAreIgnored(t *testing.T) {
	h := newHarness()

	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: true, RoomID: "room42", Name: "Ann", Message: "joined!"})
	h.deliver(t, protocol.Inbound{Type: protocol.TypeRoomCreated, Success: true, RoomID: "room43"})

	v := h.ctrl.Snapshot()
	assert.Equal(t, PhasePreSession, v.Session.Phase)
	assert.Empty(t, v.CreatedRoom)
	assert.Equal(t, []notification{{kind: KindInfo, message: "joined!"}}, h.notes.all())
}

func TestSendChatSendsWithoutAppending(t *testing.T) {
	h := newHarness()
	h.joinAs(t, "room42", "Ann", "Ann")

	require.NoError(t, h.ctrl.SendChat("hello"))

	sent := h.conn.sent(t)
	assert.Equal(t, protocol.NewChat("hello", "Ann"), sent[len(sent)-1])
	assert.Empty(t, h.ctrl.Snapshot().Messages)
}

func TestSendChatRequiresRoom(t *testing.T) {
	h := newHarness()

	err := h.ctrl.SendChat("hello")
	assert.ErrorIs(t, err, ErrInvalidPhase)
	assert.Empty(t, h.conn.sent(t))
}

func TestSendChatWhenConnectionNotOpen(t *testing.T) {
	h := newHarness()
	h.joinAs(t, "room42", "Ann", "Ann")
	before := len(h.conn.sent(t))
	h.notes.reset()
	h.conn.setState(transport.StateErrored)

	err := h.ctrl.SendChat("hello")

	assert.ErrorIs(t, err, transport.ErrNotOpen)
	assert.Len(t, h.conn.sent(t), before)
	assert.Equal(t, []notification{{kind: KindError, message: msgSocketNotOpen}}, h.notes.all())
	assert.Equal(t, PhaseInRoom, h.ctrl.Snapshot().Session.Phase)
}

func TestSendFailureSurfaces(t *testing.T) {
	h := newHarness()
	h.conn.sendErr = transport.ErrSendQueueFull

	err := h.ctrl.RequestCreateRoom()

	assert.ErrorIs(t, err, transport.ErrSendQueueFull)
	assert.Equal(t, PhasePreSession, h.ctrl.Snapshot().Session.Phase)
	notes := h.notes.all()
	require.Len(t, notes, 1)
	assert.Equal(t, KindError, notes[0].kind)
}

func TestRequestWithoutConnection(t *testing.T) {
	ctrl := NewController(Config{})

	assert.ErrorIs(t, ctrl.RequestCreateRoom(), ErrNotAttached)
	assert.Equal(t, transport.StateIdle, ctrl.Snapshot().Connection)
}

func TestMalformedFrameLeavesStateUnchanged(t *testing.T) {
	h := newHarness()
	h.joinAs(t, "room42", "Ann", "Ann", "Bob")
	h.deliver(t, protocol.Inbound{Type: protocol.TypeChat, Sender: "Bob", Text: "hi"})
	before := h.ctrl.Snapshot()

	for _, bad := range []string{`not json`, `{"type":"typing"}`, `{}`, ``} {
		err := h.ctrl.HandleFrame([]byte(bad))

		var decErr *protocol.DecodeError
		assert.True(t, errors.As(err, &decErr), "frame %q", bad)
	}

	h.l.OnMessage([]byte(`{{{`))

	assert.Equal(t, before, h.ctrl.Snapshot())
}

func TestGetUsersAcceptedInAnyPhase(t *testing.T) {
	h := newHarness()

	h.deliver(t, protocol.Inbound{Type: protocol.TypeGetUsers, Users: protocol.Presence{"room42": {"Bob"}}, Message: "Bob joined"})
	assert.Equal(t, []notification{{kind: KindInfo, message: "Bob joined"}}, h.notes.all())

	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"))
	h.deliver(t, protocol.Inbound{Type: protocol.TypeGetUsers, Users: protocol.Presence{"room42": {"Bob", "Ann"}}})
	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: true, RoomID: "room42", Name: "Ann", Data: protocol.Presence{"room42": {"Bob", "Ann"}}})
	assert.Equal(t, 2, h.ctrl.Snapshot().MemberCount)

	h.deliver(t, protocol.Inbound{Type: protocol.TypeGetUsers, Users: protocol.Presence{"room42": {"Bob", "Ann", "Cid"}, "room7": {"Dee"}}})
	v := h.ctrl.Snapshot()
	assert.Equal(t, 3, v.MemberCount)
	assert.Equal(t, []string{"Bob", "Ann", "Cid"}, v.Members)

	h.deliver(t, protocol.Inbound{Type: protocol.TypeGetUsers, Users: protocol.Presence{"room7": {"Dee"}}})
	assert.Equal(t, 2, h.ctrl.Snapshot().MemberCount, "no entry for the room falls back to the join hint")
}

func TestPresenceBeforeJoinReplySurvives(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"))
	h.deliver(t, protocol.Inbound{Type: protocol.TypeGetUsers, Users: protocol.Presence{"room42": {"Ann", "Bob"}}})
	h.deliver(t, protocol.Inbound{Type: protocol.TypeJoined, Success: true, RoomID: "room42", Name: "Ann"})

	v := h.ctrl.Snapshot()
	assert.Equal(t, PhaseInRoom, v.Session.Phase)
	assert.Equal(t, []string{"Ann", "Bob"}, v.Members)
	assert.Equal(t, 2, v.MemberCount)
}

func TestSwitchingRoomsResetsState(t *testing.T) {
	h := newHarness()
	h.joinAs(t, "room42", "Ann", "Ann", "Bob", "Cid")
	h.deliver(t, protocol.Inbound{Type: protocol.TypeChat, Sender: "Bob", Text: "hi"})

	h.ctrl.Leave()
	v := h.ctrl.Snapshot()
	assert.Equal(t, PhasePreSession, v.Session.Phase)
	assert.Empty(t, v.Messages)

	h.joinAs(t, "room7", "Ann", "Ann")
	v = h.ctrl.Snapshot()
	assert.Equal(t, "room7", v.Session.Room)
	assert.Empty(t, v.Messages)
	assert.Equal(t, 1, v.MemberCount)
}

func TestCloseResetsSession(t *testing.T) {
	h := newHarness()
	h.joinAs(t, "room42", "Ann", "Ann")
	h.notes.reset()

	h.l.OnClose()

	v := h.ctrl.Snapshot()
	assert.Equal(t, PhasePreSession, v.Session.Phase)
	assert.Empty(t, v.Session.Room)
	assert.Equal(t, []notification{{kind: KindError, message: msgConnectionClosed}}, h.notes.all())
}

func TestTransportErrorNotifies(t *testing.T) {
	h := newHarness()

	h.l.OnError(&transport.Error{Op: "read", Err: errors.New("connection reset")})

	notes := h.notes.all()
	require.Len(t, notes, 1)
	assert.Equal(t, KindError, notes[0].kind)
	assert.Contains(t, notes[0].message, "connection reset")
}

func TestStaleConnectionEventsAreIgnored(t *testing.T) {
	h := newHarness()
	old := h.l
	h.joinAs(t, "room42", "Ann", "Ann")

	next := newOpenConn()
	h.ctrl.Attach(next)
	h.notes.reset()

	old.OnMessage(frame(t, protocol.Inbound{Type: protocol.TypeGetUsers, Users: protocol.Presence{}, Message: "stale"}))
	old.OnError(errors.New("stale"))
	old.OnClose()

	assert.Empty(t, h.notes.all())
	assert.Equal(t, PhasePreSession, h.ctrl.Snapshot().Session.Phase)

	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"))
	assert.Len(t, next.sent(t), 1)
}

func TestCopyRoomCode(t *testing.T) {
	h := newHarness()

	assert.ErrorIs(t, h.ctrl.CopyRoomCode(), ErrNoRoomCode)

	require.NoError(t, h.ctrl.RequestCreateRoom())
	h.deliver(t, protocol.Inbound{Type: protocol.TypeRoomCreated, Success: true, RoomID: "room42"})
	require.NoError(t, h.ctrl.CopyRoomCode())

	h.joinAs(t, "room13", "Ann", "Ann")
	require.NoError(t, h.ctrl.CopyRoomCode())

	assert.Equal(t, []string{"room42", "room13"}, h.clip.copied)
	assert.Contains(t, h.notes.all(), notification{kind: KindInfo, message: msgCodeCopied})
}

func TestCopyRoomCodeFailure(t *testing.T) {
	h := newHarness()
	h.clip.err = errors.New("no terminal")
	h.joinAs(t, "room42", "Ann", "Ann")
	h.notes.reset()

	err := h.ctrl.CopyRoomCode()

	assert.Error(t, err)
	notes := h.notes.all()
	require.Len(t, notes, 1)
	assert.Equal(t, KindError, notes[0].kind)
}

func TestUpdatesSignal(t *testing.T) {
	h := newHarness()
	<-h.ctrl.Updates()

	require.NoError(t, h.ctrl.RequestJoin("room42", "Ann"))

	select {
	case <-h.ctrl.Updates():
	default:
		t.Fatal("expected an update signal")
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "in-room", PhaseInRoom.String())
	assert.True(t, PhaseAwaitingJoinResult.Pending())
	assert.False(t, PhaseInRoom.Pending())
}
