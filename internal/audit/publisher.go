package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultOutboxSize = 256

// Publisher records journal events. The durable store write is synchronous
// and fail-closed; streaming to Kafka happens asynchronously via the outbox.
type Publisher struct {
	store  Store
	outbox chan Event
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithOutboxSize overrides the outbox channel capacity.
func WithOutboxSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.outbox = make(chan Event, n)
		}
	}
}

func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		outbox: make(chan Event, defaultOutboxSize),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outbox exposes the stream side for a Worker to drain.
func (p *Publisher) Outbox() <-chan Event {
	return p.outbox
}

// Emit persists the event and enqueues it for streaming. Persistence failure
// is returned to the caller; a full outbox only drops the stream copy.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now().UTC()
	}

	if err := p.store.Append(ctx, event); err != nil {
		return fmt.Errorf("persist journal event: %w", err)
	}

	select {
	case p.outbox <- event:
	default:
		p.logger.Warn("audit outbox full, dropping stream copy",
			"event_type", event.Type,
			"request_id", event.RequestID,
		)
	}
	return nil
}
