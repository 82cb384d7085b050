package session

import (
	"github.com/BioHazard786/roomtalk/internal/roomstate"
	"github.com/BioHazard786/roomtalk/internal/transport"
)

// Phase is the state of the room session machine.
type Phase int

const (
	PhasePreSession Phase = iota
	PhaseAwaitingRoomCreated
	PhaseAwaitingJoinResult
	PhaseInRoom
)

func (p Phase) String() string {
	switch p {
	case PhasePreSession:
		return "pre-session"
	case PhaseAwaitingRoomCreated:
		return "awaiting-room-created"
	case PhaseAwaitingJoinResult:
		return "awaiting-join-result"
	case PhaseInRoom:
		return "in-room"
	default:
		return "unknown"
	}
}

// Pending reports whether a create or join request is in flight.
func (p Phase) Pending() bool {
	return p == PhaseAwaitingRoomCreated || p == PhaseAwaitingJoinResult
}

// Session is the local user's participation state.
type Session struct {
	DisplayName string
	Room        string
	Phase       Phase
}

// View is an immutable snapshot of everything the UI renders.
type View struct {
	Session     Session
	Messages    []roomstate.ChatMessage
	Members     []string
	MemberCount int

	// CreatedRoom is the last room code the server confirmed for a
	// create request on this connection.
	CreatedRoom string

	// PendingRoom is the room a join request is waiting on.
	PendingRoom string

	LastFailure *ProtocolFailure
	Connection  transport.State
}
