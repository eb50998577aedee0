// Package logging holds the process-wide slog logger. Code logs through
// For(component) at the call site so that a logger installed after config
// loading is picked up everywhere.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Options is the `log:` block of the config file.
type Options struct {
	Level string `koanf:"level"` // debug|info|warn|error
	JSON  bool   `koanf:"json"`
}

func (o Options) level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(o.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var current atomic.Pointer[slog.Logger]

func init() { current.Store(New(os.Stderr, Options{})) }

// New builds a text or JSON logger writing to w.
func New(w io.Writer, o Options) *slog.Logger {
	ho := &slog.HandlerOptions{Level: o.level()}
	if o.JSON {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

// Configure installs a stderr logger built from o.
func Configure(o Options) { Use(New(os.Stderr, o)) }

// Use installs l as the process logger.
func Use(l *slog.Logger) { current.Store(l) }

func L() *slog.Logger { return current.Load() }

// For tags records with the emitting component, e.g. For("opstore").
func For(component string) *slog.Logger {
	return L().With("component", component)
}

// FromEnv reads LONGRUN_LOG_LEVEL and LONGRUN_LOG_JSON. Unparsable
// booleans count as false.
func FromEnv() Options {
	o := Options{Level: os.Getenv("LONGRUN_LOG_LEVEL")}
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("LONGRUN_LOG_JSON"))); err == nil {
		o.JSON = b
	}
	return o
}
