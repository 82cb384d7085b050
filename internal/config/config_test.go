package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, "wss://"+DefaultDomain+"/ws", cfg.WebSocketURL)
	assert.Equal(t, DefaultRoomPrefix, cfg.RoomPrefix)
	assert.Equal(t, DefaultRoomSuffixMax, cfg.RoomSuffixMax)
	assert.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
	assert.Equal(t, DefaultReplyTimeout, cfg.ReplyTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ROOMTALK_DOMAIN", "chat.example.com")
	t.Setenv("ROOMTALK_ROOM_PREFIX", "lobby-")
	t.Setenv("ROOMTALK_ROOM_SUFFIX_MAX", "1000")
	t.Setenv("ROOMTALK_DIAL_TIMEOUT", "3s")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "wss://chat.example.com/ws", cfg.WebSocketURL)
	assert.Equal(t, "lobby-", cfg.RoomPrefix)
	assert.Equal(t, 1000, cfg.RoomSuffixMax)
	assert.Equal(t, 3*time.Second, cfg.DialTimeout)
}

func TestLoadURLFromEnv(t *testing.T) {
	t.Setenv("ROOMTALK_WS_URL", "ws://localhost:8080")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080", cfg.WebSocketURL)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ROOMTALK_DOMAIN", "env.example.com")
	t.Setenv("ROOMTALK_WS_URL", "ws://env.example.com/socket")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "flag.example.com", cfg.Domain)
	assert.Equal(t, "wss://flag.example.com/ws", cfg.WebSocketURL)

	cfg, err = Load(Options{WebSocketURL: "ws://127.0.0.1:9000/ws"})
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9000/ws", cfg.WebSocketURL)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("ROOMTALK_ROOM_SUFFIX_MAX", "lots")

	_, err := Load(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadRejectsNonPositiveSuffix(t *testing.T) {
	t.Setenv("ROOMTALK_ROOM_SUFFIX_MAX", "0")

	_, err := Load(Options{})
	assert.Error(t, err)
}
