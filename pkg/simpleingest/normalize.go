package simpleingest

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// ParseEvent converts a raw MinIO/S3 notification payload into a
// StorageEvent. It never fails: any field that cannot be extracted or parsed
// is left at its zero value.
//
// Both the AWS-style envelope ({"Records": [rec, ...]}, first record used)
// and a flattened top-level map are accepted; when Records is missing or
// empty the whole payload is treated as the record.
func ParseEvent(raw map[string]any) *StorageEvent {
	rec := raw
	if records, ok := raw["Records"].([]any); ok && len(records) > 0 {
		if first, ok := records[0].(map[string]any); ok {
			rec = first
		}
	}

	requestParams := getMap(rec, "requestParameters")
	source := getMap(rec, "source")
	response := getMap(rec, "responseElements")
	s3 := getMap(rec, "s3")
	bucket := getMap(s3, "bucket")
	object := getMap(s3, "object")

	evt := &StorageEvent{
		EventName:    firstNonEmpty(getString(rec, "eventName"), getString(raw, "EventName")),
		Key:          getString(raw, "Key"),
		EventVersion: firstNonEmpty(getString(rec, "eventVersion"), getString(raw, "EventVersion")),
		EventSource:  firstNonEmpty(getString(rec, "eventSource"), getString(raw, "EventSource")),
		AWSRegion:    firstNonEmpty(getString(rec, "awsRegion"), getString(requestParams, "region"), getString(raw, "Region")),
		EventTime:    firstNonEmpty(getString(rec, "eventTime"), getString(raw, "EventTime")),

		SchemaVersion:   getString(s3, "s3SchemaVersion"),
		ConfigurationID: getString(s3, "configurationId"),

		UserPrincipalID:    getString(getMap(rec, "userIdentity"), "principalId"),
		RequestPrincipalID: getString(requestParams, "principalId"),
		SourceIP:           getString(requestParams, "sourceIPAddress"),
		SourceHost:         getString(source, "host"),
		SourcePort:         getString(source, "port"),
		UserAgent:          getString(source, "userAgent"),

		AmzID2:         getString(response, "x-amz-id-2"),
		RequestID:      getString(response, "x-amz-request-id"),
		DeploymentID:   getString(response, "x-minio-deployment-id"),
		OriginEndpoint: getString(response, "x-minio-origin-endpoint"),

		BucketName:    firstNonEmpty(getString(bucket, "name"), getString(raw, "Bucket")),
		BucketARN:     firstNonEmpty(getString(bucket, "arn"), getString(raw, "BucketArn")),
		BucketOwnerID: getString(getMap(bucket, "ownerIdentity"), "principalId"),

		ObjectSize:         getInt64(object, "size", raw, "Size"),
		ETag:               firstNonEmpty(getString(object, "eTag"), getString(raw, "ETag")),
		ContentType:        firstNonEmpty(getString(object, "contentType"), getString(raw, "ContentType")),
		Sequencer:          getString(object, "sequencer"),
		VersionID:          firstNonEmpty(getString(object, "versionId"), getString(raw, "VersionId")),
		IsDeleteMarker:     getBool(object, "isDeleteMarker"),
		StorageClass:       getString(object, "storageClass"),
		ChecksumAlgorithms: checksumList(object["checksumAlgorithm"]),
	}

	evt.EventTimeUTC = parseEventTime(evt.EventTime)

	evt.ObjectKeyRaw = firstNonEmpty(getString(object, "key"), evt.Key)
	evt.ObjectKey = decodeKey(evt.ObjectKeyRaw)
	if evt.ObjectKey != "" {
		evt.FileName = path.Base(evt.ObjectKey)
		evt.FilePath = path.Dir(evt.ObjectKey)
	}

	evt.UserMetadata = lowercaseKeys(firstMap(getMap(object, "userMetadata"), getMap(raw, "UserMetadata")))
	evt.MIMEType = effectiveMIME(evt.ContentType, evt.FileName)

	return evt
}

// effectiveMIME picks the usable MIME type for an object: the declared
// content type unless it is the generic binary/octet-stream placeholder,
// else a guess from the file extension, else empty.
func effectiveMIME(contentType, fileName string) string {
	if contentType != "" && !strings.EqualFold(contentType, "binary/octet-stream") {
		return contentType
	}
	if fileName == "" {
		return ""
	}
	guessed := mime.TypeByExtension(path.Ext(fileName))
	if guessed == "" {
		return "application/octet-stream"
	}
	// TypeByExtension may append parameters (e.g. "; charset=utf-8");
	// only the bare type is wanted here.
	if i := strings.Index(guessed, ";"); i >= 0 {
		guessed = strings.TrimSpace(guessed[:i])
	}
	return guessed
}

// decodeKey URL-decodes an object key, falling back to the raw form when the
// encoding is invalid.
func decodeKey(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// parseEventTime parses an ISO-8601 timestamp. A trailing "Z" is rewritten
// to "+00:00" before parsing; the result is normalized to UTC. Returns nil
// when parsing fails.
func parseEventTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// checksumList normalizes the checksumAlgorithm field: a single string
// becomes a one-element list, a list passes through, anything else is absent.
func checksumList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}

func lowercaseKeys(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[strings.ToLower(k)] = s
		} else {
			out[strings.ToLower(k)] = fmt.Sprint(v)
		}
	}
	return out
}

func getMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func getBool(m map[string]any, key string) *bool {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(bool); ok {
		return &v
	}
	return nil
}

// getInt64 reads a numeric field from the record, falling back to the
// top-level payload. JSON numbers arrive as float64; string forms are
// tolerated the way the upstream emits them.
func getInt64(m map[string]any, key string, fallback map[string]any, fallbackKey string) *int64 {
	if v := toInt64(valueOf(m, key)); v != nil {
		return v
	}
	return toInt64(valueOf(fallback, fallbackKey))
}

func valueOf(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func toInt64(v any) *int64 {
	switch val := v.(type) {
	case float64:
		i := int64(val)
		return &i
	case int:
		i := int64(val)
		return &i
	case int64:
		return &val
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return &i
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstMap(maps ...map[string]any) map[string]any {
	for _, m := range maps {
		if len(m) > 0 {
			return m
		}
	}
	return nil
}
