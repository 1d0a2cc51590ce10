// Package sessionlog delivers session logs to persistence and CRM sinks.
package sessionlog

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// Sink receives one session-log write. Writes for the same session carry
// the full transcript so far, so sinks upsert by SessionID.
type Sink interface {
	Write(ctx context.Context, log model.SessionLog) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, log model.SessionLog) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, log model.SessionLog) error {
	return f(ctx, log)
}

// Nop discards every log.
var Nop Sink = SinkFunc(func(context.Context, model.SessionLog) error { return nil })

// Named pairs a sink with the name used in logs and errors.
type Named struct {
	Name string
	Sink Sink
}

// MultiSink writes to every sink concurrently. A failing sink never stops
// the others; their errors are joined.
type MultiSink struct {
	sinks []Named
}

// NewMultiSink builds a fan-out over sinks, skipping nil entries.
func NewMultiSink(sinks ...Named) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s.Sink != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of configured sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

// Names returns the configured sink names in order.
func (m *MultiSink) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}

// Write implements Sink.
func (m *MultiSink) Write(ctx context.Context, log model.SessionLog) error {
	errs := make([]error, len(m.sinks))
	var wg sync.WaitGroup
	for i, s := range m.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Sink.Write(ctx, log); err != nil {
				errs[i] = eris.Wrapf(err, "sessionlog: %s", s.Name)
				return
			}
			zap.L().Debug("sessionlog: written",
				zap.String("sink", s.Name),
				zap.String("session_id", log.SessionID),
				zap.Int("messages", len(log.Transcript)),
			)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
