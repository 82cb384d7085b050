package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BioHazard786/roomtalk/internal/dns"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 64 * 1024
	defaultQueueSize = 64
	defaultDialWait  = 10 * time.Second
)

// Config configures a Client.
type Config struct {
	URL         string
	DialTimeout time.Duration
	QueueSize   int

	// Resolver, when set, resolves the server host before dialing.
	Resolver *dns.Resolver
	Logger   *zerolog.Logger
}

// Client owns one websocket connection to the chat server. It is single
// use: after Close, dial a new Client.
type Client struct {
	cfg    Config
	id     string
	logger zerolog.Logger

	state    atomic.Int32
	started  atomic.Bool
	closing  atomic.Bool
	listener Listener

	mu       sync.Mutex
	conn     *websocket.Conn
	outgoing chan []byte
	done     chan struct{}

	releaseOnce   sync.Once
	closeConnOnce sync.Once
}

// NewClient creates a client for cfg.URL. Nothing is dialed until Connect.
func NewClient(cfg Config) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialWait
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	id := uuid.NewString()
	return &Client{
		cfg:      cfg,
		id:       id,
		logger:   base.With().Str("component", "transport").Str("conn", id).Logger(),
		outgoing: make(chan []byte, cfg.QueueSize),
		done:     make(chan struct{}),
	}
}

// ID identifies the connection in logs.
func (c *Client) ID() string {
	return c.id
}

// State reports the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.logger.Debug().Stringer("from", old).Stringer("to", s).Msg("connection state changed")
	}
}

// Connect dials the server and starts delivering events to l, which stays
// the only listener for the client's lifetime.
func (c *Client) Connect(ctx context.Context, l Listener) error {
	if l == nil {
		return fmt.Errorf("connect: nil listener")
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}
	c.listener = l

	u, err := url.Parse(c.cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		c.setState(StateErrored)
		if err == nil {
			err = fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
		}
		return &Error{Op: "parse url", Err: err}
	}

	c.setState(StateConnecting)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.DialTimeout,
	}
	if c.cfg.Resolver != nil {
		dialer.NetDialContext = c.cfg.Resolver.DialContext
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		c.setState(StateErrored)
		return &Error{Op: "dial", Err: err}
	}

	c.mu.Lock()
	if c.closing.Load() {
		c.mu.Unlock()
		conn.Close()
		c.setState(StateClosed)
		return ErrNotOpen
	}
	c.conn = conn
	c.mu.Unlock()

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.setState(StateOpen)
	c.logger.Info().Str("url", u.Redacted()).Msg("connected")

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump is the single dispatcher of listener events.
func (c *Client) readPump() {
	defer func() {
		c.release(false)
		if c.State() != StateErrored {
			c.setState(StateClosed)
		}
		c.listener.OnClose()
	}()

	c.listener.OnOpen()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		typ, frame, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setState(StateErrored)
				c.logger.Warn().Err(err).Msg("read failed")
				c.listener.OnError(&Error{Op: "read", Err: err})
			}
			return
		}
		if typ != websocket.TextMessage {
			c.logger.Debug().Int("type", typ).Msg("ignoring non-text frame")
			continue
		}
		c.listener.OnMessage(frame)
	}
}

// writePump is the only writer of data and ping frames.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn().Err(err).Msg("write failed")
				c.closeConn()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn().Err(err).Msg("ping failed")
				c.closeConn()
				return
			}

		case <-c.done:
			return
		}
	}
}

// Send queues frame for the write pump without blocking. It fails with
// ErrNotOpen unless the connection is open.
func (c *Client) Send(frame []byte) error {
	if c.State() != StateOpen {
		return ErrNotOpen
	}
	select {
	case <-c.done:
		return ErrNotOpen
	default:
	}

	select {
	case c.outgoing <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close sends a normal close frame and closes the socket. It is safe to
// call more than once and from any goroutine.
func (c *Client) Close() {
	c.closing.Store(true)
	c.release(true)
}

func (c *Client) release(sendClose bool) {
	c.releaseOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		close(c.done)
		if c.conn == nil {
			c.setState(StateClosed)
			return
		}
		if sendClose {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug().Err(err).Msg("close frame not sent")
			}
		}
		c.closeConn()
		c.logger.Info().Msg("connection closed")
	})
}

func (c *Client) closeConn() {
	c.closeConnOnce.Do(func() {
		c.conn.Close()
	})
}
