package simpleingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/tendant/simple-ingest/pkg/simpleingest/ledger"
	"github.com/tendant/simple-ingest/pkg/simpleingest/objectkey"
)

// Defaults used when a created-object event lacks the corresponding field.
const (
	DefaultDocumentBucket = "documents"
	DefaultDocumentMIME   = "application/octet-stream"
	DefaultInternalName   = "unnamed"
)

// DefaultVersionNumber is written on every version record. Computing the
// next number per document is left to the ledger service; until it does,
// re-uploads of the same file all land as version 1.
const DefaultVersionNumber = 1

// DocumentWorkflow handles created-object events by driving a two-step,
// idempotent creation sequence against the ledger: look the document up by
// derived filename, create it only when absent (a server ALREADY_EXISTS is
// treated as success, covering concurrent first deliveries), then always
// append one version record.
//
// Expected failures are terminal for the message: they are logged and the
// handler returns nil so the consumer acknowledges rather than redelivers.
// An uncertain lookup (FAILED status or transport error) stops the workflow
// before any write that could duplicate state. A failure after the document
// is created but before its version is recorded leaves a document with no
// versions; that inconsistency is logged, not rolled back.
type DocumentWorkflow struct {
	ledger        ledger.Client
	logger        *slog.Logger
	bucket        string
	versionNumber int32
}

// WorkflowOption configures a DocumentWorkflow.
type WorkflowOption func(*DocumentWorkflow)

// WithWorkflowLogger sets the workflow's logger.
func WithWorkflowLogger(logger *slog.Logger) WorkflowOption {
	return func(w *DocumentWorkflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithVersionNumber overrides the version number written on every version
// record (default 1; see DefaultVersionNumber).
func WithVersionNumber(n int32) WorkflowOption {
	return func(w *DocumentWorkflow) {
		if n >= 1 {
			w.versionNumber = n
		}
	}
}

// WithFallbackBucket sets the bucket recorded when the event omits one.
func WithFallbackBucket(name string) WorkflowOption {
	return func(w *DocumentWorkflow) {
		if name != "" {
			w.bucket = name
		}
	}
}

// NewDocumentWorkflow creates the created-object workflow over a ledger
// client.
func NewDocumentWorkflow(client ledger.Client, opts ...WorkflowOption) (*DocumentWorkflow, error) {
	if client == nil {
		return nil, ErrNilLedgerClient
	}
	w := &DocumentWorkflow{
		ledger:        client,
		logger:        slog.Default(),
		bucket:        DefaultDocumentBucket,
		versionNumber: DefaultVersionNumber,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// HandleObjectCreated is the Handler registered for s3:ObjectCreated:Put.
func (w *DocumentWorkflow) HandleObjectCreated(ctx context.Context, evt *StorageEvent, raw map[string]any) error {
	if evt.ObjectKey == "" {
		w.logger.Error("object key missing on created-object event, dropping message",
			"event_name", evt.EventName,
			"bucket", evt.BucketName)
		return nil
	}

	// The key shape is <company-id>/<user-id>/<filename...>, produced by
	// objectkey.GenerateSecureKey; the second segment is the creator.
	createdBy, ok := objectkey.OwnerFromKey(evt.ObjectKey)
	if !ok {
		w.logger.Error("object key has no owner segment, dropping message",
			"event_name", evt.EventName,
			"object_key", evt.ObjectKey)
		return nil
	}

	internalFilename := evt.FileName
	if internalFilename == "" {
		internalFilename = DefaultInternalName
	}

	var eventTime time.Time
	if evt.EventTimeUTC != nil {
		eventTime = *evt.EventTimeUTC
	}

	w.logger.Info("checking if document exists", "internal_filename", internalFilename)

	getResp, err := w.ledger.GetDocument(ctx, ledger.GetDocumentRequest{
		InternalFilename: internalFilename,
	})
	if err != nil {
		// Covers transport errors too: existence is uncertain, so no
		// create may be attempted.
		w.logger.Error("document lookup failed",
			"internal_filename", internalFilename,
			"error", err)
		return nil
	}

	var documentID string
	switch getResp.Status {
	case ledger.LookupStatusFound:
		w.logger.Info("document found, creating new version",
			"document_id", getResp.DocumentID)
		documentID = getResp.DocumentID

	case ledger.LookupStatusNotFound:
		w.logger.Info("document not found, creating new document",
			"internal_filename", internalFilename)

		mimeType := evt.MIMEType
		if mimeType == "" {
			mimeType = DefaultDocumentMIME
		}
		bucket := evt.BucketName
		if bucket == "" {
			bucket = w.bucket
		}

		createResp, err := w.ledger.CreateDocument(ctx, ledger.CreateDocumentRequest{
			InternalFilename: internalFilename,
			MIME:             mimeType,
			StorageBucket:    bucket,
			StorageObjectKey: evt.ObjectKey,
			CreatedBy:        createdBy,
			CreatedAt:        eventTime,
		})
		if err != nil {
			w.logger.Error("document creation failed",
				"internal_filename", internalFilename,
				"error", err)
			return nil
		}
		w.logger.Info("document creation response",
			"status", createResp.Status,
			"document_id", createResp.DocumentID,
			"message", createResp.Message)

		if createResp.Status != ledger.WriteStatusCreated && createResp.Status != ledger.WriteStatusAlreadyExists {
			w.logger.Error("failed to create document", "message", createResp.Message)
			return nil
		}
		documentID = createResp.DocumentID

	default:
		w.logger.Error("failed to check document existence",
			"status", getResp.Status,
			"message", getResp.Message)
		return nil
	}

	versionResp, err := w.ledger.CreateDocumentVersion(ctx, ledger.CreateDocumentVersionRequest{
		DocumentID:       documentID,
		VersionNumber:    w.versionNumber,
		StorageVersionID: evt.VersionID, // empty when the source omitted it
		CreatedBy:        createdBy,
		CreatedAt:        eventTime,
	})
	if err != nil {
		w.logger.Error("document version creation failed",
			"document_id", documentID,
			"error", err)
		return nil
	}

	if versionResp.Status != ledger.WriteStatusCreated {
		w.logger.Error("failed to create document version",
			"document_id", documentID,
			"status", versionResp.Status,
			"message", versionResp.Message)
		return nil
	}

	w.logger.Info("document version created",
		"document_id", documentID,
		"version_id", versionResp.VersionID,
		"version_number", w.versionNumber,
		"created_by", createdBy)
	return nil
}
