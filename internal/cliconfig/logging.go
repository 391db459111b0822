package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the package logger.
func Logger() zerolog.Logger {
	return logger
}

// ConfigureLevel applies the configured log level to the package logger.
func ConfigureLevel(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	logger = logger.Level(lvl)
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	return zerolog.ParseLevel(level)
}
