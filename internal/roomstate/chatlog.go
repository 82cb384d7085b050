// Package roomstate holds the per-room data the session controller keeps:
// the chat history and the last presence snapshot.
package roomstate

// ChatMessage is one line of chat as seen by the local user. Mine is
// derived at receipt time and never transmitted.
type ChatMessage struct {
	Sender string
	Text   string
	Mine   bool
}

// ChatLog is an append-only, ordered record of the messages of one room.
type ChatLog struct {
	room     string
	messages []ChatMessage
}

// NewChatLog returns an empty log not scoped to any room.
func NewChatLog() *ChatLog {
	return &ChatLog{}
}

// Room returns the room the log currently belongs to.
func (l *ChatLog) Room() string {
	return l.room
}

// Reset empties the log and scopes it to room.
func (l *ChatLog) Reset(room string) {
	l.room = room
	l.messages = nil
}

// Append adds msg after every message already recorded.
func (l *ChatLog) Append(msg ChatMessage) {
	l.messages = append(l.messages, msg)
}

// Clear drops all messages but keeps the room scope.
func (l *ChatLog) Clear() {
	l.messages = nil
}

// Len returns the number of recorded messages.
func (l *ChatLog) Len() int {
	return len(l.messages)
}

// Messages returns a copy of the messages in receipt order.
func (l *ChatLog) Messages() []ChatMessage {
	out := make([]ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}
