// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "quantina-relay").
		Logger()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithMessage returns a logger carrying the sender/receiver pair of the
// message being processed.
func WithMessage(senderID, receiverID string) zerolog.Logger {
	return log.With().
		Str("senderId", senderID).
		Str("receiverId", receiverID).
		Logger()
}

// WithStep returns a logger for one pipeline step of a message.
func WithStep(senderID, receiverID, step string) zerolog.Logger {
	return log.With().
		Str("senderId", senderID).
		Str("receiverId", receiverID).
		Str("step", step).
		Logger()
}

// WithConnection returns a logger carrying a live-connection identity.
func WithConnection(userID, connID string) zerolog.Logger {
	return log.With().
		Str("userId", userID).
		Str("connId", connID).
		Logger()
}
