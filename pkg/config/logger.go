package config

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the application logger. Development gets a console
// writer, everything else structured JSON on stderr.
func NewLogger(cfg *Config) zerolog.Logger {
	if cfg.Env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
