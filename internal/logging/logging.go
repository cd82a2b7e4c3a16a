// Package logging owns the process-wide zerolog logger. Init configures it once;
// components derive child loggers tagged with their name through For.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	mu   sync.RWMutex
	root = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// ParseLevel maps a textual level (case-insensitive) to a zerolog level.
// Unknown values fall back to info; "off" disables logging.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "fatal", "critical":
		return zerolog.FatalLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Init installs the root logger. Only the first call has an effect, so repeated
// acquisition never stacks writers. It reports whether this call did the setup.
func Init(level, format string, w io.Writer) bool {
	did := false
	once.Do(func() {
		did = true
		if w == nil {
			w = os.Stderr
		}
		if strings.EqualFold(format, "console") {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}
		l := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
		mu.Lock()
		root = l
		mu.Unlock()
	})
	return did
}

// Root returns the process logger.
func Root() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// For returns a child logger tagged with component=name.
func For(name string) zerolog.Logger {
	l := Root()
	return l.With().Str("component", name).Logger()
}
