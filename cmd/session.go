package cmd

import (
	"context"
	"sync"

	"github.com/BioHazard786/roomtalk/internal/config"
	"github.com/BioHazard786/roomtalk/internal/dns"
	"github.com/BioHazard786/roomtalk/internal/session"
	"github.com/BioHazard786/roomtalk/internal/transport"
	"github.com/rs/zerolog/log"
)

// ChatContext owns the controller and the connection it is attached to.
type ChatContext struct {
	Config     *config.Config
	Controller *session.Controller

	resolver *dns.Resolver

	mu   sync.Mutex
	conn *transport.Client
}

// NewChatContext builds a controller and dials the server for it.
func NewChatContext(ctx context.Context, cfg *config.Config, notifier session.Notifier, clip session.Clipboard) (*ChatContext, error) {
	c := &ChatContext{
		Config: cfg,
		Controller: session.NewController(session.Config{
			Notifier:  notifier,
			Clipboard: clip,
			Codes:     session.NewCodeGenerator(cfg.RoomPrefix, cfg.RoomSuffixMax),
		}),
		resolver: dns.NewResolver(),
	}
	if err := c.Reconnect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Reconnect dials a fresh connection, attaches the controller to it and
// closes the previous one. The session starts over in pre-session.
func (c *ChatContext) Reconnect(ctx context.Context) error {
	client := transport.NewClient(transport.Config{
		URL:         c.Config.WebSocketURL,
		DialTimeout: c.Config.DialTimeout,
		Resolver:    c.resolver,
	})

	listener := c.Controller.Attach(client)

	c.mu.Lock()
	old := c.conn
	c.conn = client
	c.mu.Unlock()

	if old != nil {
		log.Debug().Str("conn", old.ID()).Msg("replacing connection")
		old.Close()
	}

	if err := client.Connect(ctx, listener); err != nil {
		return session.NewError("connect to server", err)
	}
	return nil
}

// Close closes the current connection.
func (c *ChatContext) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, session.NewError("load config", err)
	}
	return cfg, nil
}
