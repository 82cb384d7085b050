package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the global logger. LOG_LEVEL picks the level (production
// only shows errors by default) and LOG_FILE, when set, sends output to a
// file so the chat screen keeps the terminal. The returned func closes
// that file.
func Init() func() {
	return setup(os.Stderr)
}

func setup(stderr io.Writer) func() {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))

	var out io.Writer = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}
	closer := func() {}

	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(stderr, "warning: cannot open LOG_FILE, logging to stderr: %v\n", err)
		} else {
			out = f
			closer = func() { f.Close() }
		}
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return closer
}

// ParseLevel maps the LOG_LEVEL values to a zerolog level.
func ParseLevel(s string) zerolog.Level {
	switch s {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	}
	if lvl, err := zerolog.ParseLevel(s); err == nil && s != "" {
		return lvl
	}
	return zerolog.ErrorLevel
}
