package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects console and file output.
type Options struct {
	Level      slog.Level
	Console    io.Writer // Colorized output; nil disables it
	File       string    // Rotated JSON log file; empty disables it
	MaxSizeMB  int       // Rotate after this many megabytes. Default 50
	MaxBackups int       // Rotated files to keep. Default 3
	MaxAgeDays int       // Days to keep rotated files. Default 28
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// New builds a logger from opts. The returned closer flushes and closes the
// log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	handlerOpts := slog.HandlerOptions{Level: opts.Level}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if opts.Console != nil {
		handlers = append(handlers, NewPrettyHandler(opts.Console, PrettyHandlerOptions{SlogOpts: handlerOpts}))
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotator, &handlerOpts))
		closer = rotator
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(os.Stderr, &handlerOpts)), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	}
	return slog.New(fanout(handlers)), closer, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
