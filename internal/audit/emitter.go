package audit

import (
	"context"
	"log/slog"

	"landregistry/pkg/requestcontext"
)

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByParcel(ctx context.Context, parcelID string) ([]Event, error)
}

// Publisher ships audit events to an external sink (Kafka in production).
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Emitter fans audit events out to the store and, when configured, a
// publisher. Audit is operational visibility here, not a compliance ledger:
// emission failures are logged and never fail the triggering operation.
type Emitter struct {
	logger    *slog.Logger
	store     Store
	publisher Publisher
}

// NewEmitter builds an emitter. Store and publisher may each be nil; the
// emitter stays safe to call either way so service tests need no audit wiring.
func NewEmitter(logger *slog.Logger, store Store, publisher Publisher) *Emitter {
	return &Emitter{logger: logger, store: store, publisher: publisher}
}

// Emit records an event, stamping the request time and correlation id from
// context when the caller left them empty.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if e.store != nil {
		if err := e.store.Append(ctx, event); err != nil {
			e.log(ctx, "audit store append failed", event, err)
		}
	}
	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.log(ctx, "audit publish failed", event, err)
		}
	}
}

func (e *Emitter) log(ctx context.Context, msg string, event Event, err error) {
	if e.logger == nil {
		return
	}
	e.logger.ErrorContext(ctx, msg,
		"action", string(event.Action),
		"parcel_id", event.ParcelID,
		"error", err,
	)
}
