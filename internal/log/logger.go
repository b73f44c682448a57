// Package log is a thin layer over log/slog that tags every record with the
// component that wrote it.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger bound to one component.
type Logger struct {
	*slog.Logger
	handler   slog.Handler
	component string
}

// Config selects the handler and level. A nil Handler means text on
// stdout at Level.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp}
}

func New(cfg Config) *Logger {
	h := cfg.Handler
	if h == nil {
		h = textHandler(os.Stdout, cfg.Level)
	}
	component := cfg.Component
	if component == "" {
		component = ComponentApp
	}
	return bind(h, component)
}

// NewText is New with a stdout text handler.
func NewText(level slog.Level, component string) *Logger {
	return New(Config{Level: level, Component: component})
}

func textHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

func bind(h slog.Handler, component string) *Logger {
	return &Logger{
		Logger:    slog.New(h).With(FieldComponent, component),
		handler:   h,
		component: component,
	}
}

// With adds attributes while keeping the component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), handler: l.handler, component: l.component}
}

// WithComponent rebinds the underlying handler to another component.
// Attributes added with With stay behind.
func (l *Logger) WithComponent(component string) *Logger {
	h := l.handler
	if h == nil {
		h = l.Logger.Handler()
	}
	return bind(h, component)
}

func (l *Logger) Component() string { return l.component }

// SetDefault routes the slog package functions through logger.
func SetDefault(logger *Logger) { slog.SetDefault(logger.Logger) }

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean
// info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if level.UnmarshalText([]byte(strings.TrimSpace(s))) != nil {
		return slog.LevelInfo
	}
	return level
}
