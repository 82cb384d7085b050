package protocol

// Outbound is the envelope for every client to server frame.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Outbound message types.
const (
	TypeSave = "save"
	TypeJoin = "join"
	TypeChat = "chat"
)

// Inbound message types. Inbound chat shares the "chat" discriminator.
const (
	TypeRoomCreated = "roomCreated"
	TypeJoined      = "joined"
	TypeGetUsers    = "getusers"
)

// SavePayload asks the server to create a room.
type SavePayload struct {
	RoomID string `json:"roomId"`
}

// JoinPayload asks the server to seat sender in a room.
type JoinPayload struct {
	RoomID string `json:"roomId"`
	Sender string `json:"sender"`
}

// ChatPayload carries one chat line for the sender's current room.
type ChatPayload struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// Presence maps a room ID to the ordered display names of its members.
type Presence map[string][]string

// Clone returns a deep copy so callers can keep a snapshot without
// sharing slices with the decoder.
func (p Presence) Clone() Presence {
	if p == nil {
		return nil
	}
	out := make(Presence, len(p))
	for room, members := range p {
		out[room] = append([]string(nil), members...)
	}
	return out
}

// Inbound is a decoded server to client frame. Only the fields defined
// for Type are meaningful.
type Inbound struct {
	Type    string
	Success bool
	Message string

	// roomCreated, joined
	RoomID string

	// joined
	Name string
	Data Presence

	// chat
	Sender string
	Text   string

	// getusers
	Users Presence
}

// NewSave builds a room creation request for a candidate room ID.
func NewSave(roomID string) Outbound {
	return Outbound{Type: TypeSave, Payload: SavePayload{RoomID: roomID}}
}

// NewJoin builds a join request.
func NewJoin(roomID, sender string) Outbound {
	return Outbound{Type: TypeJoin, Payload: JoinPayload{RoomID: roomID, Sender: sender}}
}

// NewChat builds a chat request.
func NewChat(message, sender string) Outbound {
	return Outbound{Type: TypeChat, Payload: ChatPayload{Message: message, Sender: sender}}
}
