package audit

import (
	"context"
	"log/slog"
)

// Sink receives journal events drained from the outbox.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the publisher outbox into a sink, typically Kafka. Publish
// failures are logged and skipped; the journal row already holds the event.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.Error("publish journal event",
					"event_type", event.Type,
					"request_id", event.RequestID,
					"error", err,
				)
			}
		}
	}
}
