// Package logging builds the zerolog logger shared by the CLI and the
// pipeline.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// ParseLevel maps a level name onto a zerolog level. An empty name is the
// default level.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New returns a human readable logger writing to out (stderr when nil).
// debug forces the debug level regardless of level.
func New(out io.Writer, level string, debug bool) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := ParseLevel(level)
	if debug {
		lvl, err = zerolog.DebugLevel, nil
	}
	w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !isTerminal(out)}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
