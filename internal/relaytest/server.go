package relaytest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is a running relay on a loopback httptest server.
type Server struct {
	hub  *hub
	http *httptest.Server
	once sync.Once
}

// NewServer starts a relay. Close it when done.
func NewServer() *Server {
	return NewServerWithLogger(zerolog.Nop())
}

// NewServerWithLogger starts a relay that logs to logger.
func NewServerWithLogger(logger zerolog.Logger) *Server {
	h := newHub(logger.With().Str("component", "relay").Logger())
	go h.run()

	s := &Server{hub: h}
	s.http = httptest.NewServer(http.HandlerFunc(s.serveWs))
	return s
}

// URL is the websocket endpoint of the relay.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

// Close drops every connection and stops the relay.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.hub.done)
		s.http.Close()
	})
}

// CreateRoom creates an empty room as if a client had sent save.
func (s *Server) CreateRoom(id string) {
	s.do(func() {
		if _, ok := s.hub.rooms[id]; !ok {
			s.hub.rooms[id] = &Room{ID: id}
		}
	})
}

// Members returns the names seated in room, and whether the room exists.
func (s *Server) Members(room string) ([]string, bool) {
	var names []string
	var ok bool
	s.do(func() {
		var r *Room
		if r, ok = s.hub.rooms[room]; ok {
			names = r.names()
		}
	})
	return names, ok
}

// SendRaw delivers data verbatim to every member of room.
func (s *Server) SendRaw(room string, data []byte) {
	s.do(func() {
		if r, ok := s.hub.rooms[room]; ok {
			for _, m := range r.members {
				m.pushRaw(data)
			}
		}
	})
}

func (s *Server) do(fn func()) {
	finished := make(chan struct{})
	select {
	case s.hub.inspect <- func() { fn(); close(finished) }:
		<-finished
	case <-s.hub.done:
	}
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	c := &client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
