package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const (
	LevelDebug string = "DEBUG"
	LevelInfo  string = "INFO"
	LevelWarn  string = "WARN"
	LevelError string = "ERROR"
)

var levels = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, err error, args ...any)
	// With returns a logger that adds args to every record, e.g. "component", "dispatch".
	With(args ...any) Logger
}

type logger struct {
	slog *slog.Logger
}

// InitLogger writes JSON records to stdout.
func InitLogger(serviceName, logLevel string) Logger {
	return New(os.Stdout, serviceName, logLevel)
}

// New builds a JSON logger writing to w. Unknown levels fall back to DEBUG.
func New(w io.Writer, serviceName, logLevel string) Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	level, ok := levels[logLevel]
	if !ok {
		level = slog.LevelDebug
	}

	handler := &contextHandler{
		handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceAttr,
		}),
	}

	return &logger{
		slog: slog.New(handler).With(
			slog.String("service", serviceName),
			slog.String("hostname", hostname),
		),
	}
}

// replaceAttr renames msg to message and prints the time as RFC3339.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.MessageKey:
		a.Key = "message"
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			return slog.String("timestamp", t.Format(time.RFC3339))
		}
	}
	return a
}

// contextHandler copies wrap.LogCtx fields from ctx onto each record.
type contextHandler struct {
	handler slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.handler.Enabled(ctx, lvl)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	c := wrap.FromContext(ctx)
	for _, attr := range [...]struct{ key, value string }{
		{"action", c.Action},
		{"user_id", c.UserID},
		{"request_id", c.RequestID},
		{"ride_id", c.RideID},
	} {
		if attr.value != "" {
			r.AddAttrs(slog.String(attr.key, attr.value))
		}
	}
	return h.handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}

func (l *logger) Debug(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

func (l *logger) Info(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

func (l *logger) Warn(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

// Error logs err as an "error" group holding its message and the type of the
// innermost error in the chain.
func (l *logger) Error(ctx context.Context, msg string, err error, args ...any) {
	attrs := append([]any{errorAttr(err)}, args...)
	l.slog.ErrorContext(ctx, msg, attrs...)
}

func (l *logger) With(args ...any) Logger {
	return &logger{slog: l.slog.With(args...)}
}

func errorAttr(err error) slog.Attr {
	if err == nil {
		return slog.Group("error", slog.String("msg", "<nil>"))
	}
	root := err
	for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
		root = next
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("type", fmt.Sprintf("%T", root)),
	)
}

// ValidateLogLevel reports whether lvl is one of DEBUG, INFO, WARN, ERROR.
func ValidateLogLevel(lvl string) bool {
	_, ok := levels[lvl]
	return ok
}
