// Package log provides centralized logging for the entire application.
//
// It is a thin facade over zerolog: packages call log.Info().Str(...).Msg(...)
// without holding a logger instance, and main decides once at startup where
// output goes and in which format.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls global logger behaviour.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error. Default info.
	Level string
	// Format is "console" or "json". Default json.
	Format string
	// Output receives log lines. Default os.Stderr.
	Output io.Writer
}

var (
	mu     sync.RWMutex
	logger = newLogger(Config{})
)

func newLogger(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Init reconfigures the global logger. Safe to call more than once; the last
// call wins.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(cfg)
}

// SetFileOutput switches logging to append to the named file, keeping the
// current level. Used when the TUI owns the terminal.
func SetFileOutput(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Output(f)
	return nil
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &logger
}

// Trace starts a trace-level event.
func Trace() *zerolog.Event { return current().Trace() }

// Debug starts a debug-level event.
func Debug() *zerolog.Event { return current().Debug() }

// Info starts an info-level event.
func Info() *zerolog.Event { return current().Info() }

// Warn starts a warn-level event.
func Warn() *zerolog.Event { return current().Warn() }

// Error starts an error-level event.
func Error() *zerolog.Event { return current().Error() }

// With returns a child logger tagged with a component name, for packages
// that emit many related events.
func With(component string) zerolog.Logger {
	return current().With().Str("component", component).Logger()
}
