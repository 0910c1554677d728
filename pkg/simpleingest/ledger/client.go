// Package ledger defines the client contract for the remote document ledger
// service: lookup a document by its internal filename, create a document
// record, and append a version record. The server side is an external
// collaborator; this package only owns the calling conventions (per-call
// deadlines, attached metadata, wire timestamps) and a gRPC implementation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LookupStatus is the outcome of a GetDocument call.
type LookupStatus string

// Lookup status constants (typed).
const (
	LookupStatusFound    LookupStatus = "FOUND"
	LookupStatusNotFound LookupStatus = "NOT_FOUND"
	LookupStatusFailed   LookupStatus = "FAILED"
)

// WriteStatus is the outcome of a create call.
type WriteStatus string

// Write status constants (typed).
const (
	WriteStatusCreated       WriteStatus = "CREATED"
	WriteStatusAlreadyExists WriteStatus = "ALREADY_EXISTS"
	WriteStatusFailed        WriteStatus = "FAILED"
)

// ErrInvalidRequest indicates a request was rejected before any wire
// activity, e.g. a missing required field.
var ErrInvalidRequest = errors.New("invalid ledger request")

// TransportError wraps a failure of the call itself (deadline exceeded,
// unreachable endpoint) as opposed to a server-reported FAILED status.
// Callers must treat it as "uncertain", never as "confirmed absent".
type TransportError struct {
	Method string
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ledger call %s to %s failed: %v", e.Method, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GetDocumentRequest looks up a document by its internal filename, the
// system-assigned stable key.
type GetDocumentRequest struct {
	InternalFilename string
}

// Validate checks required fields.
func (r GetDocumentRequest) Validate() error {
	if r.InternalFilename == "" {
		return fmt.Errorf("%w: internal_filename is required", ErrInvalidRequest)
	}
	return nil
}

// GetDocumentResponse reports whether a document exists and, when found,
// its identifier. Message is diagnostic only.
type GetDocumentResponse struct {
	Status     LookupStatus `json:"status"`
	DocumentID string       `json:"document_id,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// CreateDocumentRequest creates (or idempotently upserts) a document record.
// CreatedAt defaults to the call time when zero.
type CreateDocumentRequest struct {
	InternalFilename string
	MIME             string
	StorageBucket    string
	StorageObjectKey string
	CreatedBy        string // opaque creator identity
	CreatedAt        time.Time
}

// Validate checks required fields.
func (r CreateDocumentRequest) Validate() error {
	switch {
	case r.InternalFilename == "":
		return fmt.Errorf("%w: internal_filename is required", ErrInvalidRequest)
	case r.MIME == "":
		return fmt.Errorf("%w: mime is required", ErrInvalidRequest)
	case r.StorageBucket == "":
		return fmt.Errorf("%w: storage_bucket is required", ErrInvalidRequest)
	case r.StorageObjectKey == "":
		return fmt.Errorf("%w: storage_object_key is required", ErrInvalidRequest)
	case r.CreatedBy == "":
		return fmt.Errorf("%w: created_by is required", ErrInvalidRequest)
	}
	return nil
}

// CreateDocumentResponse carries the server's create outcome. A status of
// ALREADY_EXISTS still returns the existing document's identifier.
type CreateDocumentResponse struct {
	Status     WriteStatus `json:"status"`
	DocumentID string      `json:"document_id,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// CreateDocumentVersionRequest appends a version record to an existing
// document. StorageVersionID may be empty when the bucket is unversioned.
// CreatedAt defaults to the call time when zero.
type CreateDocumentVersionRequest struct {
	DocumentID       string
	VersionNumber    int32
	StorageVersionID string
	CreatedBy        string
	CreatedAt        time.Time
}

// Validate checks required fields.
func (r CreateDocumentVersionRequest) Validate() error {
	switch {
	case r.DocumentID == "":
		return fmt.Errorf("%w: document_id is required", ErrInvalidRequest)
	case r.VersionNumber < 1:
		return fmt.Errorf("%w: version_number must be >= 1", ErrInvalidRequest)
	case r.CreatedBy == "":
		return fmt.Errorf("%w: created_by is required", ErrInvalidRequest)
	}
	return nil
}

// CreateDocumentVersionResponse carries the server's version-create outcome.
type CreateDocumentVersionResponse struct {
	Status    WriteStatus `json:"status"`
	VersionID string      `json:"version_id,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// CallOptions holds per-call overrides applied on top of client defaults.
type CallOptions struct {
	Timeout  time.Duration
	Metadata map[string]string
}

// CallOption overrides one per-call setting.
type CallOption func(*CallOptions)

// WithTimeout overrides the client's default deadline for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *CallOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithMetadata attaches extra metadata entries to one call. Entries here
// take precedence over the client's default metadata for the same key.
func WithMetadata(md map[string]string) CallOption {
	return func(o *CallOptions) {
		if o.Metadata == nil {
			o.Metadata = make(map[string]string, len(md))
		}
		for k, v := range md {
			o.Metadata[k] = v
		}
	}
}

// Client is the ledger service contract consumed by the ingest workflow.
// Implementations must be safe for concurrent calls.
type Client interface {
	GetDocument(ctx context.Context, req GetDocumentRequest, opts ...CallOption) (*GetDocumentResponse, error)
	CreateDocument(ctx context.Context, req CreateDocumentRequest, opts ...CallOption) (*CreateDocumentResponse, error)
	CreateDocumentVersion(ctx context.Context, req CreateDocumentVersionRequest, opts ...CallOption) (*CreateDocumentVersionResponse, error)
}
