package simpleingest

import (
	"context"
	"fmt"
	"log/slog"
)

// Dispatcher selects the most specific registered handler for a storage
// event and invokes it. Handler failures are logged with full event context
// and returned to the caller; whether to retry or drop the message belongs
// to the message-delivery layer.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	sink     EventSink
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithEventSink sets the sink notified of dispatch outcomes.
func WithEventSink(sink EventSink) DispatcherOption {
	return func(d *Dispatcher) {
		if sink != nil {
			d.sink = sink
		}
	}
}

// NewDispatcher creates a Dispatcher over a populated registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
		sink:     NewNoopEventSink(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes one event to its handler. An event with no matching
// handler and no configured default is recorded and dropped without error.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *StorageEvent, raw map[string]any) error {
	h := d.registry.Resolve(evt.EventName)
	if h == nil {
		h = d.registry.Default()
	}
	if h == nil {
		d.logger.Warn("no handler for storage event",
			"event_name", evt.EventName,
			"bucket", evt.BucketName,
			"object_key", evt.ObjectKey)
		d.sink.EventUnhandled(ctx, evt)
		return nil
	}

	d.logger.Debug("dispatching storage event",
		"event_name", evt.EventName,
		"bucket", evt.BucketName,
		"object_key", evt.ObjectKey)

	if err := h(ctx, evt, raw); err != nil {
		d.logger.Error("storage event handler failed",
			"event_name", evt.EventName,
			"bucket", evt.BucketName,
			"object_key", evt.ObjectKey,
			"error_type", fmt.Sprintf("%T", err),
			"error", err)
		d.sink.HandlerFailed(ctx, evt, err)
		return &DispatchError{
			EventName: evt.EventName,
			Bucket:    evt.BucketName,
			ObjectKey: evt.ObjectKey,
			Err:       err,
		}
	}

	d.logger.Info("storage event handled",
		"event_name", evt.EventName,
		"bucket", evt.BucketName,
		"object_key", evt.ObjectKey)
	d.sink.EventHandled(ctx, evt)
	return nil
}
