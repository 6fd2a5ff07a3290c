// Package logging holds the process-wide zerolog logger. By default nothing
// is logged; the desktop app and the CLI install a real logger at startup.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// loggerPtr stores the active logger. Accessed atomically so that SetLogger
// can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	loggerPtr.Store(&nop)
}

// SetLogger replaces the process-wide logger. Pass nil to silence logging.
func SetLogger(l *zerolog.Logger) {
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	loggerPtr.Store(l)
}

// L returns the current process-wide logger.
func L() *zerolog.Logger {
	return loggerPtr.Load()
}

// For returns the current logger tagged with a component name.
func For(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

// Options selects the level and encoding of a new logger.
type Options struct {
	Level  string // trace, debug, info, warn, error; empty means info
	Format string // "json" or "console"; empty means console
}

// New builds a logger writing to w.
func New(opts Options, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("logging: level %q: %w", opts.Level, err)
		}
		level = l
	}

	var out io.Writer
	switch strings.ToLower(opts.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("logging: unknown format %q", opts.Format)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
