// Package xlog is the accumulation engine's structured logger. It is a thin
// in-tree wrapper over log/slog, in the same spirit as the teacher
// repository's own in-tree "log" package: callers reach for
// xlog.Info(msg, "key", value, ...) instead of configuring a logging
// framework directly.
package xlog

import (
	"context"
	"log/slog"
	"os"
)

var root = slog.New(slog.NewTextHandler(os.Stderr, nil))

// SetRoot replaces the process-wide root logger, e.g. to switch to JSON
// output or raise the level.
func SetRoot(l *slog.Logger) { root = l }

// Logger is a scoped logger carrying a fixed set of key/value pairs that it
// attaches to every log line.
type Logger struct {
	inner *slog.Logger
}

// New returns a Logger with kv baked into every subsequent call.
func New(kv ...any) *Logger {
	return &Logger{inner: root.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

// Package-level helpers mirror the teacher's top-level log.Info/.../log.Error
// convenience functions, logging against the current root logger.
func Debug(msg string, kv ...any) { root.Debug(msg, kv...) }
func Info(msg string, kv ...any)  { root.Info(msg, kv...) }
func Warn(msg string, kv ...any)  { root.Warn(msg, kv...) }
func Error(msg string, kv ...any) { root.Error(msg, kv...) }

// InfoCtx exists for call sites that carry a context deadline
// worth attaching to the record (slog.Handler implementations may use it for
// cancellation-aware sinks); the engine itself has no suspension points
// (spec.md §5) so these are rarely needed but kept for parity with slog.
func InfoCtx(ctx context.Context, msg string, kv ...any) { root.InfoContext(ctx, msg, kv...) }
