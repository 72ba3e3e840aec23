// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Common structured field names.
const (
	FieldComponent = "component"
	FieldBudgetID  = "budget_id"
	FieldCategory  = "category"
	FieldError     = "error"
	FieldFile      = "file"
	FieldDuration  = "duration_ms"
)

// Component names.
const (
	ComponentBudget = "budget"
	ComponentEngine = "engine"
	ComponentDaemon = "daemon"
	ComponentImport = "import"
	ComponentAMQP   = "amqp"
	ComponentHTTP   = "http"
)

// Config selects the level, format and destination of log output.
type Config struct {
	Level  slog.Level
	JSON   bool
	Output io.Writer
}

// New builds a logger from cfg. A nil Output writes to stderr so command
// output on stdout stays clean.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// Setup builds a logger and installs it as the slog default.
func Setup(cfg Config) *slog.Logger {
	l := New(cfg)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
