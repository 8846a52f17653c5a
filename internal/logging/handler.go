package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	jobIDKey       = "jobID"
	jobCompleteKey = "jobComplete"
	jobFailedKey   = "jobFailed"
)

// brokerHandler writes records through the wrapped handler and publishes them to a LogBroker.
type brokerHandler struct {
	next   slog.Handler
	broker *LogBroker
	attrs  []slog.Attr
	groups []string
}

func newBrokerHandler(next slog.Handler, broker *LogBroker) *brokerHandler {
	return &brokerHandler{next: next, broker: broker}
}

func (h *brokerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *brokerHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.broker != nil {
		h.broker.Publish(h.entryFromRecord(record))
	}
	return h.next.Handle(ctx, record)
}

func (h *brokerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefixed := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	prefixed = append(prefixed, h.attrs...)
	for _, a := range attrs {
		prefixed = append(prefixed, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &brokerHandler{
		next:   h.next.WithAttrs(attrs),
		broker: h.broker,
		attrs:  prefixed,
		groups: h.groups,
	}
}

func (h *brokerHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string{}, h.groups...), name)
	return &brokerHandler{
		next:   h.next.WithGroup(name),
		broker: h.broker,
		attrs:  h.attrs,
		groups: groups,
	}
}

func (h *brokerHandler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

func (h *brokerHandler) entryFromRecord(record slog.Record) LogEntry {
	entry := LogEntry{
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
	}

	apply := func(key string, value slog.Value) {
		value = value.Resolve()
		switch key {
		case jobIDKey:
			entry.JobID = value.String()
			return
		case jobCompleteKey:
			entry.IsJobComplete = value.Kind() == slog.KindBool && value.Bool()
			return
		case jobFailedKey:
			entry.IsJobFailed = value.Kind() == slog.KindBool && value.Bool()
			return
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]any)
		}
		if err, ok := value.Any().(error); ok {
			entry.Fields[key] = err.Error()
			return
		}
		entry.Fields[key] = value.Any()
	}

	for _, a := range h.attrs {
		apply(a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		apply(h.qualify(a.Key), a.Value)
		return true
	})
	return entry
}
