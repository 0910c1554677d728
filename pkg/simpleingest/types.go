package simpleingest

import "time"

// Well-known storage event names used for handler registration.
const (
	EventObjectCreatedPut  = "s3:ObjectCreated:Put"
	EventObjectCreatedPost = "s3:ObjectCreated:Post"
	EventObjectCreatedCopy = "s3:ObjectCreated:Copy"
	EventObjectRemoved     = "s3:ObjectRemoved:Delete"
)

// Event name groups as emitted by MinIO bucket notifications.
var (
	ObjectCreatedEvents = []string{
		"s3:ObjectCreated:CompleteMultipartUpload",
		"s3:ObjectCreated:Copy",
		"s3:ObjectCreated:DeleteTagging",
		"s3:ObjectCreated:Post",
		"s3:ObjectCreated:Put",
		"s3:ObjectCreated:PutLegalHold",
		"s3:ObjectCreated:PutRetention",
		"s3:ObjectCreated:PutTagging",
	}

	ObjectAccessedEvents = []string{
		"s3:ObjectAccessed:Head",
		"s3:ObjectAccessed:Get",
		"s3:ObjectAccessed:GetRetention",
		"s3:ObjectAccessed:GetLegalHold",
	}

	ObjectRemovedEvents = []string{
		"s3:ObjectRemoved:Delete",
		"s3:ObjectRemoved:DeleteMarkerCreated",
	}

	ReplicationEvents = []string{
		"s3:Replication:OperationCompletedReplication",
		"s3:Replication:OperationFailedReplication",
		"s3:Replication:OperationMissedThreshold",
		"s3:Replication:OperationNotTracked",
		"s3:Replication:OperationReplicatedAfterThreshold",
	}

	LifecycleEvents = []string{
		"s3:ObjectTransition:Failed",
		"s3:ObjectTransition:Complete",
		"s3:ObjectRestore:Post",
		"s3:ObjectRestore:Completed",
	}

	ScannerEvents = []string{
		"s3:Scanner:ManyVersions",
		"s3:Scanner:BigPrefix",
	}
)

// AllEventNames returns the full catalogue of known storage event names.
// Stub generation uses this list to guarantee every known event has an
// observable handler.
func AllEventNames() []string {
	names := make([]string, 0,
		len(ObjectCreatedEvents)+len(ObjectAccessedEvents)+len(ObjectRemovedEvents)+
			len(ReplicationEvents)+len(LifecycleEvents)+len(ScannerEvents))
	names = append(names, ObjectCreatedEvents...)
	names = append(names, ObjectAccessedEvents...)
	names = append(names, ObjectRemovedEvents...)
	names = append(names, ReplicationEvents...)
	names = append(names, LifecycleEvents...)
	names = append(names, ScannerEvents...)
	return names
}

// StorageEvent is the normalized representation of one MinIO/S3 object
// notification. Every field is optional: anything the source payload did not
// carry is left at its zero value. Pointer fields distinguish "absent" from a
// meaningful zero.
//
// ObjectKey is always the URL-decoded key; ObjectKeyRaw keeps the wire form
// verbatim for systems that need it. FileName and FilePath partition
// ObjectKey at its last path separator.
type StorageEvent struct {
	// Top-level event info
	EventName    string
	Key          string // top-level "Key" field (may duplicate the object key)
	EventVersion string
	EventSource  string
	AWSRegion    string
	EventTime    string     // raw timestamp string as received
	EventTimeUTC *time.Time // parsed instant, UTC; nil when unparseable

	// Schema/config
	SchemaVersion   string
	ConfigurationID string

	// Identity
	UserPrincipalID    string // uploader's identity
	RequestPrincipalID string // principal from the request parameters

	// Request/source
	SourceIP   string
	SourceHost string
	SourcePort string
	UserAgent  string

	// Response metadata
	AmzID2         string
	RequestID      string
	DeploymentID   string
	OriginEndpoint string

	// Bucket
	BucketName    string
	BucketARN     string
	BucketOwnerID string

	// Object
	ObjectKey          string // decoded, human-readable path
	ObjectKeyRaw       string // raw from the event
	ObjectSize         *int64
	ETag               string
	ContentType        string // declared content type, verbatim
	MIMEType           string // effective type; see ParseEvent
	Sequencer          string
	VersionID          string // storage version id; empty when versioning is off
	IsDeleteMarker     *bool
	StorageClass       string
	ChecksumAlgorithms []string

	// User metadata; keys are lower-cased on ingestion
	UserMetadata map[string]string

	// Convenience fields derived from ObjectKey
	FileName string
	FilePath string
}
