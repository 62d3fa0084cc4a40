// Package logging sets up the toolkit's zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const timeFormat = "15:04:05"

// New returns a console logger writing to w. Debug messages are shown only
// when verbose is set.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
	}).Level(level).With().Timestamp().Logger()
}

// NewCLI returns the default CLI logger on stderr, leaving stdout for
// command output
func NewCLI(verbose bool) zerolog.Logger {
	return New(os.Stderr, verbose)
}
