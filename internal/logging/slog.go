package logging

import (
	"context"
	"io"
	"log/slog"
)

// textLogger renders key–value lines for a terminal through slog. Secret
// attributes are masked, including those bound with With.
type textLogger struct {
	l *slog.Logger
}

func newTextLogger(w io.Writer, level slog.Level) *textLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if isSecret(a.Key) {
				return slog.String(a.Key, redacted)
			}
			return a
		},
	})
	return &textLogger{l: slog.New(h)}
}

func (t *textLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	t.l.Log(ctx, level, msg, args...)
}

func (t *textLogger) Debug(ctx context.Context, msg string, args ...any) {
	t.log(ctx, slog.LevelDebug, msg, args)
}

func (t *textLogger) Info(ctx context.Context, msg string, args ...any) {
	t.log(ctx, slog.LevelInfo, msg, args)
}

func (t *textLogger) Warn(ctx context.Context, msg string, args ...any) {
	t.log(ctx, slog.LevelWarn, msg, args)
}

func (t *textLogger) Error(ctx context.Context, msg string, args ...any) {
	t.log(ctx, slog.LevelError, msg, args)
}

func (t *textLogger) With(args ...any) Logger {
	return &textLogger{l: t.l.With(args...)}
}
