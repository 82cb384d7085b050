package relaytest

import (
	"time"

	"github.com/BioHazard786/roomtalk/internal/protocol"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// client is one websocket connection seen from the relay.
type client struct {
	hub  *hub
	conn *websocket.Conn

	// send is closed by the hub on unregister.
	send chan []byte

	room *Room
	name string
}

// push queues a server frame, dropping it when the client is not keeping up.
func (c *client) push(in protocol.Inbound) {
	data, err := protocol.EncodeInbound(in)
	if err != nil {
		c.hub.logger.Error().Err(err).Msg("encode server frame")
		return
	}
	c.pushRaw(data)
}

func (c *client) pushRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn().Str("name", c.name).Msg("send buffer full, dropping frame")
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("read")
			}
			return
		}
		select {
		case c.hub.inbound <- frame{from: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
