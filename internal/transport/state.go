package transport

// State is the lifecycle state of a Client's connection.
type State int32

const (
	// StateIdle means Connect has not been called yet.
	StateIdle State = iota

	// StateConnecting means the websocket handshake is in progress.
	StateConnecting

	// StateOpen means frames can be sent.
	StateOpen

	// StateClosed means the connection was closed normally.
	StateClosed

	// StateErrored means the dial failed or the connection broke.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Listener receives the events of one connection. The Client calls it
// from a single goroutine, so calls never overlap and arrive in the
// order the transport delivered them.
type Listener interface {
	OnOpen()
	OnMessage(frame []byte)
	OnError(err error)
	OnClose()
}
