// Package logging wires the top-level structured-logging pipeline used by
// the demo command: a console sink plus an optional Seq sink, fanned out
// through multiHandler. Region and registry components never call into
// this package directly — they accept an injected logr.Logger at
// construction (internal/walobs supplies the default), per the "no
// implicit global" design rule.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// Config controls where logs go. SeqEndpoint is optional; leaving it
// empty, or the Seq server being unreachable, degrades to console-only
// rather than failing startup.
type Config struct {
	SeqEndpoint   string
	SeqBatchSize  int
	SeqFlushEvery time.Duration
	Level         slog.Level
}

// DefaultConfig returns the values this pipeline has always started
// from, now expressed as overridable defaults rather than literals
// buried in Setup itself.
func DefaultConfig() Config {
	return Config{
		SeqEndpoint:   "http://localhost:5341",
		SeqBatchSize:  1,
		SeqFlushEvery: 500 * time.Millisecond,
		Level:         slog.LevelDebug,
	}
}

// multiHandler forwards log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Setup builds a logger from cfg and returns a cleanup function that must
// be called before process exit to flush the Seq sink, if any.
func Setup(cfg Config) (*slog.Logger, func()) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: true,
	})

	if cfg.SeqEndpoint == "" {
		return slog.New(consoleHandler), func() {}
	}

	_, seqHandler := slogseq.NewLogger(
		cfg.SeqEndpoint,
		slogseq.WithBatchSize(cfg.SeqBatchSize),
		slogseq.WithFlushInterval(cfg.SeqFlushEvery),
		slogseq.WithHandlerOptions(&slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: true,
		}),
	)

	if seqHandler == nil {
		return slog.New(consoleHandler), func() {}
	}

	multi := &multiHandler{handlers: []slog.Handler{consoleHandler, seqHandler}}
	logger := slog.New(multi)
	return logger, func() { seqHandler.Close() }
}

// SetupLogger is the zero-configuration entry point for callers that
// don't need to override anything.
func SetupLogger() (*slog.Logger, func()) {
	return Setup(DefaultConfig())
}
