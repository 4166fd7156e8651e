package canbus

import (
	"context"
	"log/slog"
	"testing"
)

type recordSink struct {
	records []slog.Record
}

func (s *recordSink) Enabled(context.Context, slog.Level) bool { return true }
func (s *recordSink) Handle(_ context.Context, r slog.Record) error {
	// Deep copy; slog reuses the record during processing.
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool { attrs = append(attrs, a); return true })
	nr := slog.Record{Time: r.Time, Level: r.Level, PC: r.PC, Message: r.Message}
	for _, a := range attrs {
		nr.AddAttrs(a)
	}
	s.records = append(s.records, nr)
	return nil
}
func (s *recordSink) WithAttrs(attrs []slog.Attr) slog.Handler { return s }
func (s *recordSink) WithGroup(name string) slog.Handler       { return s }

func countSlogMsg(records []slog.Record, level slog.Level, msg string) int {
	n := 0
	for _, r := range records {
		if r.Level == level && r.Message == msg {
			n++
		}
	}
	return n
}

func TestLoggedBusWriteAndReadLogging(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()

	sink := &recordSink{}
	logger := slog.New(sink)

	sender := NewLoggedBus(lb.Open(), logger, slog.LevelInfo, LogWrite)
	receiver := NewLoggedBus(lb.Open(), logger, slog.LevelInfo, LogRead)
	defer sender.Close()
	defer receiver.Close()

	frame := MustFrame(0x18FF0001, []byte{2, 0, 0, 0, 42})
	if err := sender.Send(frame); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := receiver.Receive(); err != nil {
		t.Fatalf("receive: %v", err)
	}

	if countSlogMsg(sink.records, slog.LevelInfo, "canbus send") != 1 {
		t.Fatalf("expected exactly one write log entry")
	}
	if countSlogMsg(sink.records, slog.LevelInfo, "canbus receive") != 1 {
		t.Fatalf("expected exactly one read log entry")
	}
}

func TestLoggedBusNoneSuppresses(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()

	sink := &recordSink{}
	logger := slog.New(sink)

	sender := NewLoggedBus(lb.Open(), logger, slog.LevelInfo, LogNone)
	_ = lb.Open() // peer so Send succeeds

	if err := sender.Send(MustFrame(0x100, []byte{1})); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no log entries, got %d", len(sink.records))
	}
}

func TestLoggedBusFilter(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()

	sink := &recordSink{}
	logger := slog.New(sink)

	sender := NewLoggedBusWithFilter(lb.Open(), logger, slog.LevelDebug, LogWrite, ByID(0x200))
	_ = lb.Open()

	if err := sender.Send(MustFrame(0x100, []byte{1})); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := sender.Send(MustFrame(0x200, []byte{2})); err != nil {
		t.Fatalf("send: %v", err)
	}

	if countSlogMsg(sink.records, slog.LevelDebug, "canbus send") != 1 {
		t.Fatalf("filter should log exactly the matching frame, got %d entries", len(sink.records))
	}
}

func TestLoggedBusErrorLogging(t *testing.T) {
	lb := NewLoopbackBus()
	rx := lb.Open()
	_ = rx.Close() // force errors on the wrapped endpoint

	sink := &recordSink{}
	logger := slog.New(sink)
	wrapped := NewLoggedBus(rx, logger, slog.LevelInfo, LogAll)

	if _, err := wrapped.Receive(); err == nil {
		t.Fatalf("expected receive error")
	}
	if err := wrapped.Send(MustFrame(0x1, nil)); err == nil {
		t.Fatalf("expected send error")
	}

	if countSlogMsg(sink.records, slog.LevelError, "canbus receive error") != 1 {
		t.Fatalf("expected receive error log entry")
	}
	if countSlogMsg(sink.records, slog.LevelError, "canbus send error") != 1 {
		t.Fatalf("expected send error log entry")
	}
}
