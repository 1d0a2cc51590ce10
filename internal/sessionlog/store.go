package sessionlog

import (
	"context"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// SessionSaver is the part of store.Store the store sink needs.
type SessionSaver interface {
	SaveSession(ctx context.Context, log model.SessionLog) error
}

// StoreSink persists session logs to the local database.
type StoreSink struct {
	saver SessionSaver
}

// NewStoreSink creates a sink over s.
func NewStoreSink(s SessionSaver) *StoreSink {
	return &StoreSink{saver: s}
}

// Write implements Sink.
func (s *StoreSink) Write(ctx context.Context, log model.SessionLog) error {
	return s.saver.SaveSession(ctx, log)
}
