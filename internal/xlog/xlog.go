// Package xlog builds the linker's host logger: a fanned-out slog.Logger
// combining a colored stderr handler with a Batcher that records
// WARN/ERROR records so they can be replayed as a summary at the end of
// the resolve phase (spec.md §4.3, §7).
package xlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
)

// Batcher is an slog.Handler that only records WARN and ERROR records,
// keeping them in insertion order for later replay. It never writes
// anywhere itself; New fans it out alongside a normal text handler.
type Batcher struct {
	mu      sync.Mutex
	records []string
}

// NewBatcher creates an empty Batcher.
func NewBatcher() *Batcher {
	return &Batcher{}
}

func (b *Batcher) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (b *Batcher) Handle(_ context.Context, r slog.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, r.Message)
	return nil
}

func (b *Batcher) WithAttrs(_ []slog.Attr) slog.Handler { return b }
func (b *Batcher) WithGroup(_ string) slog.Handler       { return b }

// Drain returns and clears the recorded messages.
func (b *Batcher) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.records
	b.records = nil
	return out
}

type colorHandler struct {
	next  slog.Handler
	fatal *color.Color
	warn  *color.Color
}

func newColorHandler(w io.Writer, level slog.Level) *colorHandler {
	return &colorHandler{
		next:  slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
		fatal: color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow),
	}
}

func (h *colorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	switch {
	case r.Level >= slog.LevelError:
		r.Message = h.fatal.Sprint(r.Message)
	case r.Level >= slog.LevelWarn:
		r.Message = h.warn.Sprint(r.Message)
	}
	return h.next.Handle(ctx, r)
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{next: h.next.WithAttrs(attrs), fatal: h.fatal, warn: h.warn}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return &colorHandler{next: h.next.WithGroup(name), fatal: h.fatal, warn: h.warn}
}

// New builds the linker's logger and the batcher that accumulates its
// WARN/ERROR records. w is typically os.Stderr.
func New(w io.Writer, verbose bool) (*slog.Logger, *Batcher) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	batcher := NewBatcher()
	handler := slogmulti.Fanout(
		newColorHandler(w, level),
		batcher,
	)
	return slog.New(handler), batcher
}

// ReplaySummary logs every message the batcher recorded as a single,
// headline-prefixed summary block, the way spec.md §7 asks recoverable
// diagnostics to be batched at the end of the resolve phase.
func ReplaySummary(log *slog.Logger, heading string, b *Batcher) {
	msgs := b.Drain()
	if len(msgs) == 0 {
		return
	}
	log.Warn(heading)
	for _, m := range msgs {
		log.Warn(fmt.Sprintf("\t%s", m))
	}
}
