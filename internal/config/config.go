package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default configuration values (production)
const (
	DefaultDomain        = "roomtalk.qzz.io"
	DefaultRoomPrefix    = "room"
	DefaultRoomSuffixMax = 100
	DefaultDialTimeout   = 10 * time.Second
	DefaultReplyTimeout  = 15 * time.Second
)

// Config holds application configuration
type Config struct {
	// Domain is the chat server domain
	Domain string

	// WebSocketURL is the endpoint dialed; built from Domain unless set
	WebSocketURL string

	// Room codes are RoomPrefix followed by a number below RoomSuffixMax
	RoomPrefix    string
	RoomSuffixMax int

	DialTimeout  time.Duration
	ReplyTimeout time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain       string
	WebSocketURL string
}

type environment struct {
	Domain        string        `env:"ROOMTALK_DOMAIN"`
	WebSocketURL  string        `env:"ROOMTALK_WS_URL"`
	RoomPrefix    string        `env:"ROOMTALK_ROOM_PREFIX"     envDefault:"room"`
	RoomSuffixMax int           `env:"ROOMTALK_ROOM_SUFFIX_MAX" envDefault:"100"`
	DialTimeout   time.Duration `env:"ROOMTALK_DIAL_TIMEOUT"    envDefault:"10s"`
	ReplyTimeout  time.Duration `env:"ROOMTALK_REPLY_TIMEOUT"   envDefault:"15s"`
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	var e environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	domain := firstNonEmpty(opts.Domain, e.Domain, DefaultDomain)

	// An explicit URL wins; a domain given on the command line beats a
	// URL from the environment.
	wsURL := opts.WebSocketURL
	if wsURL == "" && opts.Domain == "" {
		wsURL = e.WebSocketURL
	}
	if wsURL == "" {
		wsURL = fmt.Sprintf("wss://%s/ws", domain)
	}

	if e.RoomSuffixMax <= 0 {
		return nil, fmt.Errorf("ROOMTALK_ROOM_SUFFIX_MAX must be positive, got %d", e.RoomSuffixMax)
	}
	if e.DialTimeout <= 0 || e.ReplyTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}

	return &Config{
		Domain:        domain,
		WebSocketURL:  wsURL,
		RoomPrefix:    firstNonEmpty(e.RoomPrefix, DefaultRoomPrefix),
		RoomSuffixMax: e.RoomSuffixMax,
		DialTimeout:   e.DialTimeout,
		ReplyTimeout:  e.ReplyTimeout,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
