package roomstate

import "github.com/BioHazard786/roomtalk/internal/protocol"

// PresenceTracker keeps the last presence snapshot received from the
// server. Snapshots replace each other; nothing is merged.
type PresenceTracker struct {
	room     string
	snapshot protocol.Presence
}

// NewPresenceTracker returns a tracker with no snapshot.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{}
}

// Room returns the room the tracker is scoped to.
func (p *PresenceTracker) Room() string {
	return p.room
}

// Reset drops the snapshot and scopes the tracker to room.
func (p *PresenceTracker) Reset(room string) {
	p.room = room
	p.snapshot = nil
}

// Replace installs snapshot wholesale.
func (p *PresenceTracker) Replace(snapshot protocol.Presence) {
	p.snapshot = snapshot.Clone()
}

// ReplaceRoom replaces the member list of a single room.
func (p *PresenceTracker) ReplaceRoom(room string, members []string) {
	if p.snapshot == nil {
		p.snapshot = protocol.Presence{}
	}
	p.snapshot[room] = append([]string(nil), members...)
}

// Clear drops the snapshot but keeps the room scope.
func (p *PresenceTracker) Clear() {
	p.snapshot = nil
}

// Members returns a copy of the members of room and whether the snapshot
// has an entry for it.
func (p *PresenceTracker) Members(room string) ([]string, bool) {
	members, ok := p.snapshot[room]
	if !ok {
		return nil, false
	}
	return append([]string(nil), members...), true
}

// CurrentCount returns the member count of room, or hint when no snapshot
// covers it yet.
func (p *PresenceTracker) CurrentCount(room string, hint int) int {
	members, ok := p.snapshot[room]
	if !ok {
		return hint
	}
	return len(members)
}
