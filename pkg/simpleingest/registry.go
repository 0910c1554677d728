package simpleingest

import (
	"context"
	"log/slog"
	"path"
	"strings"
)

// Handler processes one storage event. Handlers receive the canonical event
// and the raw payload, since some handlers need fields the canonical form
// omits. A returned error propagates to the message-delivery layer.
type Handler func(ctx context.Context, evt *StorageEvent, raw map[string]any) error

// globChars are the metacharacters that make a registration string a
// pattern entry instead of an exact entry. A string containing any of them
// is always classified as a pattern, even if it is also a literal event
// name; classification determines precedence.
const globChars = "*?[]"

type patternEntry struct {
	pattern string
	handler Handler
}

// Registry maps event names and glob patterns to handlers. It is built once
// at startup by explicit Register calls and must not be mutated afterwards;
// Resolve is then safe under concurrent use without locking.
//
// Patterns are kept as an ordered list: the first registered pattern that
// matches wins, so ordering is load-bearing.
type Registry struct {
	exact          map[string]Handler
	patterns       []patternEntry
	defaultHandler Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{exact: make(map[string]Handler)}
}

// Register associates a handler with one or more event names or glob
// patterns. Exact entries always win over pattern entries for the same name,
// regardless of registration order.
func (r *Registry) Register(h Handler, namesOrPatterns ...string) error {
	if h == nil {
		return ErrNilHandler
	}
	if len(namesOrPatterns) == 0 {
		return ErrNoNames
	}
	for _, name := range namesOrPatterns {
		if strings.ContainsAny(name, globChars) {
			if _, err := path.Match(name, ""); err != nil {
				return &PatternError{Pattern: name, Err: err}
			}
			r.patterns = append(r.patterns, patternEntry{pattern: name, handler: h})
		} else {
			r.exact[name] = h
		}
	}
	return nil
}

// SetDefault sets the fallback handler applied by the Dispatcher when
// Resolve yields nothing. Resolve itself never consults it.
func (r *Registry) SetDefault(h Handler) {
	r.defaultHandler = h
}

// Default returns the configured fallback handler, or nil.
func (r *Registry) Default() Handler {
	return r.defaultHandler
}

// Resolve returns the most specific handler for an event name:
// the exact entry if present, otherwise the first pattern entry whose glob
// matches in registration order, otherwise nil.
func (r *Registry) Resolve(eventName string) Handler {
	if eventName == "" {
		return nil
	}
	if h, ok := r.exact[eventName]; ok {
		return h
	}
	for _, entry := range r.patterns {
		if ok, err := path.Match(entry.pattern, eventName); err == nil && ok {
			return entry.handler
		}
	}
	return nil
}

// GenerateStubs registers a no-op logging handler, as an exact entry, for
// every known event name that has neither an exact entry nor a covering
// pattern. It never overrides existing registrations, so running it more
// than once changes nothing.
func (r *Registry) GenerateStubs(logger *slog.Logger, level slog.Level) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, name := range AllEventNames() {
		if _, ok := r.exact[name]; ok {
			continue
		}
		if r.Resolve(name) != nil {
			continue
		}
		name := name
		r.exact[name] = func(ctx context.Context, evt *StorageEvent, raw map[string]any) error {
			logger.Log(ctx, level, "stub handler",
				"event_name", name,
				"object_key", evt.ObjectKey,
				"bucket", evt.BucketName)
			return nil
		}
	}
}
