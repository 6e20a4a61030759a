// Package logger provides process-wide structured logging for medlens.
// Info, warnings and errors are always written; debug messages describing
// each pipeline stage appear when verbose mode is enabled via --verbose or
// a "debug" log level.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Pretty selects human-readable console output instead of JSON lines.
	Pretty bool
}

var (
	mu      sync.RWMutex
	verbose bool
	pretty  = true
	level   = zerolog.InfoLevel
	output  io.Writer = os.Stderr
	zl      = build()
)

// build creates the zerolog logger from current settings (caller must hold lock).
func build() zerolog.Logger {
	w := output
	if pretty {
		w = zerolog.ConsoleWriter{Out: output, NoColor: true, TimeFormat: time.RFC3339}
	}

	lvl := level
	if verbose {
		lvl = zerolog.DebugLevel
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Configure applies level and format settings.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level = parseLevel(cfg.Level)
	pretty = cfg.Pretty
	zl = build()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	zl = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	zl = build()
}

// Get returns the current zerolog logger for structured fields.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zl
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	l := Get()
	l.Debug().Msgf(format, args...)
}

// Section logs a debug marker for the start of a pipeline stage.
func Section(name string) {
	l := Get()
	l.Debug().Str("section", name).Msg("=== " + name + " ===")
}

// Info logs an informational message.
func Info(format string, args ...any) {
	l := Get()
	l.Info().Msgf(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	l := Get()
	l.Warn().Msgf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	l := Get()
	l.Error().Msgf(format, args...)
}
