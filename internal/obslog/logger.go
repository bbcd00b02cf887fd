// Package obslog wires up Stack Sage's structured logging on zerolog.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger. verbose selects debug level (matching
// the VERBOSE env option); otherwise info level. pretty selects a
// human-readable console writer for local development instead of the
// default JSON-to-stdout.
func New(verbose, pretty bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
