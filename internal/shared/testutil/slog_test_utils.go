package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log line with its attributes flattened.
// Attributes bound through Logger.With are included; grouped keys are
// joined with a dot.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// logSink is shared by a handler and every handler derived from it, so
// component loggers built with With write to the same buffer.
type logSink struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures records from a logger under test.
type BufferedSlogHandler struct {
	sink   *logSink
	t      testing.TB
	attrs  []slog.Attr
	prefix string
}

// NewTestLogger returns a logger that records every level, and the
// handler to inspect afterwards. Records are echoed to the test log.
func NewTestLogger(t testing.TB) (*slog.Logger, *BufferedSlogHandler) {
	h := &BufferedSlogHandler{sink: &logSink{}, t: t}
	return slog.New(h), h
}

func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})

	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.sink.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// ContainsMessage reports whether any record's message contains message.
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	return len(h.matching(func(r LogRecord) bool { return strings.Contains(r.Message, message) })) > 0
}

// Count returns how many records were captured.
func (h *BufferedSlogHandler) Count() int {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return len(h.sink.records)
}

func (h *BufferedSlogHandler) matching(keep func(LogRecord) bool) []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	var out []LogRecord
	for _, r := range h.sink.records {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// AssertLogContains fails t unless a record at level contains message.
func AssertLogContains(t testing.TB, handler *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()
	if len(handler.matching(func(r LogRecord) bool {
		return r.Level == level && strings.Contains(r.Message, message)
	})) > 0 {
		return
	}
	t.Errorf("no %s log containing %q", level, message)
	for _, r := range handler.matching(nil) {
		t.Logf("  [%s] %s", r.Level, r.Message)
	}
}

// AssertLogAttr fails t unless some record carries key with exactly
// value. Integer attributes compare as int64.
func AssertLogAttr(t testing.TB, handler *BufferedSlogHandler, key string, value any) {
	t.Helper()
	if len(handler.matching(func(r LogRecord) bool {
		v, ok := r.Attrs[key]
		return ok && v == value
	})) > 0 {
		return
	}
	t.Errorf("no log with %s=%v", key, value)
	for _, r := range handler.matching(nil) {
		t.Logf("  %s: %v", r.Message, r.Attrs)
	}
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[prefix+a.Key] = a.Value.Any()
}
