package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
)

// DefaultTimeout bounds each RPC unless overridden per call.
const DefaultTimeout = 3 * time.Second

const (
	codecName = "json"

	methodGetDocument           = "/ledger.v1.DocumentLedger/GetDocument"
	methodCreateDocument        = "/ledger.v1.DocumentLedger/CreateDocument"
	methodCreateDocumentVersion = "/ledger.v1.DocumentLedger/CreateDocumentVersion"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries plain structs over gRPC unary calls. The ledger service
// registers the same codec, so no generated message types are involved.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

// GrpcConfig configures a GrpcClient.
type GrpcConfig struct {
	// Target is the host:port of the ledger gRPC server.
	Target string

	// Timeout is the default per-RPC deadline (DefaultTimeout when zero).
	Timeout time.Duration

	// Metadata is attached to every RPC (e.g. an authorization bearer
	// credential). Per-call metadata takes precedence on key conflicts.
	Metadata map[string]string

	// TLSRootCert is a path to a PEM root certificate. When empty the
	// channel is insecure.
	TLSRootCert string
}

// GrpcClient is a thin Client implementation over a single long-lived gRPC
// channel. The channel multiplexes concurrent calls, so one client may be
// shared across message-processing goroutines.
type GrpcClient struct {
	conn     *grpc.ClientConn
	target   string
	timeout  time.Duration
	metadata metadata.MD
}

var _ Client = (*GrpcClient)(nil)

// NewGrpcClient opens a channel to the ledger service.
func NewGrpcClient(cfg GrpcConfig) (*GrpcClient, error) {
	if cfg.Target == "" {
		return nil, errors.New("ledger: target is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	creds := insecure.NewCredentials()
	if cfg.TLSRootCert != "" {
		tlsCreds, err := credentials.NewClientTLSFromFile(cfg.TLSRootCert, "")
		if err != nil {
			return nil, fmt.Errorf("ledger: load TLS root cert: %w", err)
		}
		creds = tlsCreds
	}

	conn, err := grpc.NewClient(cfg.Target,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", cfg.Target, err)
	}

	return &GrpcClient{
		conn:     conn,
		target:   cfg.Target,
		timeout:  timeout,
		metadata: metadata.New(cfg.Metadata),
	}, nil
}

// Close tears down the underlying channel.
func (c *GrpcClient) Close() error {
	return c.conn.Close()
}

// Wire shapes for requests carrying timestamps; responses unmarshal directly
// into the exported response structs.

type getDocumentIn struct {
	InternalFilename string `json:"internal_filename"`
}

type createDocumentIn struct {
	InternalFilename string    `json:"internal_filename"`
	MIME             string    `json:"mime"`
	StorageBucket    string    `json:"storage_bucket"`
	StorageObjectKey string    `json:"storage_object_key"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        Timestamp `json:"created_at"`
}

type createDocumentVersionIn struct {
	DocumentID       string    `json:"document_id"`
	VersionNumber    int32     `json:"version_number"`
	StorageVersionID string    `json:"storage_version_id"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        Timestamp `json:"created_at"`
}

// GetDocument looks up a document by internal filename.
func (c *GrpcClient) GetDocument(ctx context.Context, req GetDocumentRequest, opts ...CallOption) (*GetDocumentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	in := getDocumentIn{InternalFilename: req.InternalFilename}
	var out GetDocumentResponse
	if err := c.invoke(ctx, methodGetDocument, &in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDocument creates a document record.
func (c *GrpcClient) CreateDocument(ctx context.Context, req CreateDocumentRequest, opts ...CallOption) (*CreateDocumentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	in := createDocumentIn{
		InternalFilename: req.InternalFilename,
		MIME:             req.MIME,
		StorageBucket:    req.StorageBucket,
		StorageObjectKey: req.StorageObjectKey,
		CreatedBy:        req.CreatedBy,
		CreatedAt:        NewTimestamp(createdAt),
	}
	var out CreateDocumentResponse
	if err := c.invoke(ctx, methodCreateDocument, &in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDocumentVersion appends a version record to an existing document.
func (c *GrpcClient) CreateDocumentVersion(ctx context.Context, req CreateDocumentVersionRequest, opts ...CallOption) (*CreateDocumentVersionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	in := createDocumentVersionIn{
		DocumentID:       req.DocumentID,
		VersionNumber:    req.VersionNumber,
		StorageVersionID: req.StorageVersionID,
		CreatedBy:        req.CreatedBy,
		CreatedAt:        NewTimestamp(createdAt),
	}
	var out CreateDocumentVersionResponse
	if err := c.invoke(ctx, methodCreateDocumentVersion, &in, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GrpcClient) invoke(ctx context.Context, method string, in, out interface{}, opts []CallOption) error {
	co := CallOptions{Timeout: c.timeout}
	for _, opt := range opts {
		opt(&co)
	}

	ctx, cancel := context.WithTimeout(ctx, co.Timeout)
	defer cancel()
	ctx = metadata.NewOutgoingContext(ctx, mergeMetadata(c.metadata, co.Metadata))

	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return &TransportError{Method: method, Target: c.target, Err: err}
	}
	return nil
}

// mergeMetadata overlays call-specific entries on the client defaults;
// call-specific keys win.
func mergeMetadata(defaults metadata.MD, extra map[string]string) metadata.MD {
	md := defaults.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	for k, v := range extra {
		md.Set(k, v)
	}
	return md
}
