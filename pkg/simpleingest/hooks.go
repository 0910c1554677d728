package simpleingest

import (
	"context"
	"sync/atomic"
)

// EventSink receives dispatch outcomes. Implementations must be safe for
// concurrent use; the dispatcher calls them inline on the message path, so
// they should not block.
type EventSink interface {
	// EventHandled is called after a handler completes successfully.
	EventHandled(ctx context.Context, evt *StorageEvent)

	// EventUnhandled is called when no handler (and no default) matched.
	EventUnhandled(ctx context.Context, evt *StorageEvent)

	// HandlerFailed is called when a handler returns an error, before the
	// error propagates to the message-delivery layer.
	HandlerFailed(ctx context.Context, evt *StorageEvent, err error)
}

// NoopEventSink is a no-operation implementation of EventSink.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink.
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) EventHandled(ctx context.Context, evt *StorageEvent)             {}
func (n *NoopEventSink) EventUnhandled(ctx context.Context, evt *StorageEvent)           {}
func (n *NoopEventSink) HandlerFailed(ctx context.Context, evt *StorageEvent, err error) {}

// CountingEventSink tracks dispatch outcomes with atomic counters. Useful
// for exposing pipeline throughput on an ops endpoint.
type CountingEventSink struct {
	handled   atomic.Int64
	unhandled atomic.Int64
	failed    atomic.Int64
}

// NewCountingEventSink creates a new counting event sink.
func NewCountingEventSink() *CountingEventSink {
	return &CountingEventSink{}
}

func (c *CountingEventSink) EventHandled(ctx context.Context, evt *StorageEvent) {
	c.handled.Add(1)
}

func (c *CountingEventSink) EventUnhandled(ctx context.Context, evt *StorageEvent) {
	c.unhandled.Add(1)
}

func (c *CountingEventSink) HandlerFailed(ctx context.Context, evt *StorageEvent, err error) {
	c.failed.Add(1)
}

// SinkCounts is a point-in-time snapshot of dispatch outcome counters.
type SinkCounts struct {
	Handled   int64 `json:"handled"`
	Unhandled int64 `json:"unhandled"`
	Failed    int64 `json:"failed"`
}

// Counts returns a snapshot of the counters.
func (c *CountingEventSink) Counts() SinkCounts {
	return SinkCounts{
		Handled:   c.handled.Load(),
		Unhandled: c.unhandled.Load(),
		Failed:    c.failed.Load(),
	}
}
