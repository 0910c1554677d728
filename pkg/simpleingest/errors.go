package simpleingest

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNilHandler indicates a nil handler was passed to a registration call
	ErrNilHandler = errors.New("nil handler")

	// ErrNoNames indicates a registration call carried no names or patterns
	ErrNoNames = errors.New("no event names or patterns")

	// ErrNilLedgerClient indicates a workflow was constructed without a ledger client
	ErrNilLedgerClient = errors.New("ledger client is required")
)

// DispatchError wraps a handler failure with the event context the
// message-delivery layer needs to decide between retry and dead-letter.
type DispatchError struct {
	EventName string
	Bucket    string
	ObjectKey string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("handler for event %s failed (bucket=%s, key=%s): %v", e.EventName, e.Bucket, e.ObjectKey, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// PatternError reports a malformed glob pattern at registration time.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid event pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
