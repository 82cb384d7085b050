// Package relaytest runs an in-memory chat relay that speaks the room
// protocol, for tests of the transport, the session controller and the
// commands.
package relaytest

import (
	"fmt"
	"slices"

	"github.com/BioHazard786/roomtalk/internal/protocol"
	"github.com/rs/zerolog"
)

// Room is a chat room and the clients seated in it, in join order.
type Room struct {
	ID      string
	members []*client
}

func (r *Room) names() []string {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.name)
	}
	return names
}

func (r *Room) remove(c *client) {
	r.members = slices.DeleteFunc(r.members, func(m *client) bool { return m == c })
}

type frame struct {
	from *client
	data []byte
}

// hub owns every room and client. All state is touched only by run.
type hub struct {
	rooms map[string]*Room

	register   chan *client
	unregister chan *client
	inbound    chan frame
	inspect    chan func()
	done       chan struct{}

	logger zerolog.Logger
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *client),
		unregister: make(chan *client),
		inbound:    make(chan frame),
		inspect:    make(chan func()),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *hub) run() {
	clients := make(map[*client]struct{})
	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
			h.logger.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("client registered")

		case c := <-h.unregister:
			if _, ok := clients[c]; !ok {
				continue
			}
			delete(clients, c)
			h.leaveRoom(c)
			close(c.send)
			h.logger.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("client unregistered")

		case f := <-h.inbound:
			h.handle(f.from, f.data)

		case fn := <-h.inspect:
			fn()

		case <-h.done:
			for c := range clients {
				c.conn.Close()
			}
			return
		}
	}
}

func (h *hub) handle(c *client, data []byte) {
	msg, err := protocol.DecodeOutbound(data)
	if err != nil {
		h.logger.Warn().Err(err).Msg("dropping client frame")
		return
	}

	switch p := msg.Payload.(type) {
	case protocol.SavePayload:
		h.save(c, p)
	case protocol.JoinPayload:
		h.join(c, p)
	case protocol.ChatPayload:
		h.chat(c, p)
	}
}

func (h *hub) save(c *client, p protocol.SavePayload) {
	if _, ok := h.rooms[p.RoomID]; ok || p.RoomID == "" {
		c.push(protocol.Inbound{Type: protocol.TypeRoomCreated, Success: false, Message: "Room already exists"})
		return
	}
	h.rooms[p.RoomID] = &Room{ID: p.RoomID}
	h.logger.Info().Str("room", p.RoomID).Msg("room created")
	c.push(protocol.Inbound{Type: protocol.TypeRoomCreated, Success: true, RoomID: p.RoomID})
}

func (h *hub) join(c *client, p protocol.JoinPayload) {
	room, ok := h.rooms[p.RoomID]
	if !ok {
		c.push(protocol.Inbound{Type: protocol.TypeJoined, Success: false, Message: "Room not found"})
		return
	}
	if slices.Contains(room.names(), p.Sender) {
		c.push(protocol.Inbound{Type: protocol.TypeJoined, Success: false, Message: "Name already taken"})
		return
	}

	h.leaveRoom(c)
	c.room, c.name = room, p.Sender
	room.members = append(room.members, c)

	c.push(protocol.Inbound{
		Type:    protocol.TypeJoined,
		Success: true,
		RoomID:  room.ID,
		Name:    p.Sender,
		Data:    protocol.Presence{room.ID: room.names()},
	})
	h.broadcastPresence(room, fmt.Sprintf("%s joined the room", p.Sender))
}

func (h *hub) chat(c *client, p protocol.ChatPayload) {
	if c.room == nil {
		h.logger.Debug().Msg("chat from a client outside any room")
		return
	}
	h.broadcast(c.room, protocol.Inbound{Type: protocol.TypeChat, Sender: c.name, Text: p.Message})
}

func (h *hub) leaveRoom(c *client) {
	room := c.room
	if room == nil {
		return
	}
	room.remove(c)
	c.room = nil
	h.broadcastPresence(room, fmt.Sprintf("%s left the room", c.name))
}

func (h *hub) broadcastPresence(room *Room, message string) {
	h.broadcast(room, protocol.Inbound{
		Type:    protocol.TypeGetUsers,
		Users:   protocol.Presence{room.ID: room.names()},
		Message: message,
	})
}

func (h *hub) broadcast(room *Room, in protocol.Inbound) {
	for _, m := range room.members {
		m.push(in)
	}
}
