package audit

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Multi fans an event out to several logs. Every log is tried; errors are joined.
type Multi []Log

// Emit writes e to every log
func (m Multi) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, l := range m {
		if err := l.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes audit events to a zap logger
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a zap backed audit log
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Emit logs the encoded event at info level
func (s *LogSink) Emit(_ context.Context, e Event) error {
	rec, err := Encode(e)
	if err != nil {
		return err
	}
	s.logger.Info(string(e.Kind),
		zap.String("id", rec.ID),
		zap.Time("timestamp", rec.Timestamp),
		zap.ByteString("detail", rec.Detail))
	return nil
}

// Recorder keeps events in memory. It backs tests and in-process observers.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e
func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of recorded events in order
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

var (
	_ Log = Multi(nil)
	_ Log = (*LogSink)(nil)
	_ Log = (*Recorder)(nil)
)
