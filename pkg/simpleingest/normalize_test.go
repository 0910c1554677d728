package simpleingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minioPutNotification = `{
  "EventName": "s3:ObjectCreated:Put",
  "Key": "documents/acme/user123/report.pdf",
  "Records": [
    {
      "eventVersion": "2.0",
      "eventSource": "minio:s3",
      "awsRegion": "",
      "eventTime": "2025-03-14T09:26:53.589Z",
      "eventName": "s3:ObjectCreated:Put",
      "userIdentity": {"principalId": "minioadmin"},
      "requestParameters": {
        "principalId": "minioadmin",
        "region": "",
        "sourceIPAddress": "172.18.0.5"
      },
      "responseElements": {
        "x-amz-id-2": "dd9025bab4ad464b049177c95eb6ebf374d3b3fd1af9251148b658df7ac2e3e8",
        "x-amz-request-id": "17ABCDEF12345678",
        "x-minio-deployment-id": "9cbe8f39-9e21-4e51-a1b2-abcdefabcdef",
        "x-minio-origin-endpoint": "http://minio:9000"
      },
      "s3": {
        "s3SchemaVersion": "1.0",
        "configurationId": "Config",
        "bucket": {
          "name": "documents",
          "ownerIdentity": {"principalId": "minioadmin"},
          "arn": "arn:aws:s3:::documents"
        },
        "object": {
          "key": "acme%2Fuser123%2Freport.pdf",
          "size": 52417,
          "eTag": "d41d8cd98f00b204e9800998ecf8427e",
          "contentType": "application/pdf",
          "userMetadata": {"X-Amz-Meta-Origin": "upload-ui"},
          "sequencer": "17ABCDEF1234",
          "versionId": "v1-abc"
        }
      },
      "source": {
        "host": "172.18.0.5",
        "port": "",
        "userAgent": "MinIO (linux; amd64) minio-go/v7.0.66"
      }
    }
  ]
}`

func mustDecode(t *testing.T, payload string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return raw
}

func TestParseEvent_MinioNotification(t *testing.T) {
	evt := ParseEvent(mustDecode(t, minioPutNotification))

	assert.Equal(t, "s3:ObjectCreated:Put", evt.EventName)
	assert.Equal(t, "2.0", evt.EventVersion)
	assert.Equal(t, "minio:s3", evt.EventSource)
	assert.Equal(t, "documents/acme/user123/report.pdf", evt.Key)

	assert.Equal(t, "1.0", evt.SchemaVersion)
	assert.Equal(t, "Config", evt.ConfigurationID)
	assert.Equal(t, "minioadmin", evt.UserPrincipalID)
	assert.Equal(t, "minioadmin", evt.RequestPrincipalID)
	assert.Equal(t, "172.18.0.5", evt.SourceIP)
	assert.Equal(t, "172.18.0.5", evt.SourceHost)
	assert.Equal(t, "MinIO (linux; amd64) minio-go/v7.0.66", evt.UserAgent)

	assert.Equal(t, "17ABCDEF12345678", evt.RequestID)
	assert.Equal(t, "http://minio:9000", evt.OriginEndpoint)

	assert.Equal(t, "documents", evt.BucketName)
	assert.Equal(t, "arn:aws:s3:::documents", evt.BucketARN)
	assert.Equal(t, "minioadmin", evt.BucketOwnerID)

	// Keys arrive URL-encoded; the decoded form drives filename derivation.
	assert.Equal(t, "acme%2Fuser123%2Freport.pdf", evt.ObjectKeyRaw)
	assert.Equal(t, "acme/user123/report.pdf", evt.ObjectKey)
	assert.Equal(t, "report.pdf", evt.FileName)
	assert.Equal(t, "acme/user123", evt.FilePath)

	require.NotNil(t, evt.ObjectSize)
	assert.Equal(t, int64(52417), *evt.ObjectSize)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", evt.ETag)
	assert.Equal(t, "application/pdf", evt.ContentType)
	assert.Equal(t, "application/pdf", evt.MIMEType)
	assert.Equal(t, "v1-abc", evt.VersionID)

	assert.Equal(t, map[string]string{"x-amz-meta-origin": "upload-ui"}, evt.UserMetadata)

	require.NotNil(t, evt.EventTimeUTC)
	want := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)
	assert.Equal(t, want, *evt.EventTimeUTC)
	assert.Equal(t, time.UTC, evt.EventTimeUTC.Location())
}

func TestParseEvent_FlattenedPayload(t *testing.T) {
	// No Records envelope: the whole payload is the record.
	raw := mustDecode(t, `{
	  "eventName": "s3:ObjectRemoved:Delete",
	  "eventTime": "2025-03-14T10:00:00Z",
	  "s3": {
	    "bucket": {"name": "documents"},
	    "object": {"key": "acme/user9/old.txt", "size": 12}
	  }
	}`)

	evt := ParseEvent(raw)
	assert.Equal(t, "s3:ObjectRemoved:Delete", evt.EventName)
	assert.Equal(t, "documents", evt.BucketName)
	assert.Equal(t, "acme/user9/old.txt", evt.ObjectKey)
	require.NotNil(t, evt.ObjectSize)
	assert.Equal(t, int64(12), *evt.ObjectSize)
	require.NotNil(t, evt.EventTimeUTC)
}

func TestParseEvent_TopLevelFallbacks(t *testing.T) {
	raw := map[string]any{
		"EventName": "s3:ObjectCreated:Copy",
		"Bucket":    "archive",
		"Key":       "acme/user1/copy.bin",
		"Size":      float64(99),
		"ETag":      "abc",
		"VersionId": "v9",
	}

	evt := ParseEvent(raw)
	assert.Equal(t, "s3:ObjectCreated:Copy", evt.EventName)
	assert.Equal(t, "archive", evt.BucketName)
	assert.Equal(t, "acme/user1/copy.bin", evt.ObjectKey)
	require.NotNil(t, evt.ObjectSize)
	assert.Equal(t, int64(99), *evt.ObjectSize)
	assert.Equal(t, "abc", evt.ETag)
	assert.Equal(t, "v9", evt.VersionID)
}

func TestParseEvent_EmptyPayload(t *testing.T) {
	evt := ParseEvent(map[string]any{})
	assert.Empty(t, evt.EventName)
	assert.Empty(t, evt.ObjectKey)
	assert.Empty(t, evt.FileName)
	assert.Nil(t, evt.ObjectSize)
	assert.Nil(t, evt.EventTimeUTC)
}

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "acme/user1/a.txt", "acme/user1/a.txt"},
		{"encoded separators", "acme%2Fuser1%2Fa.txt", "acme/user1/a.txt"},
		{"encoded space", "acme/user1/my%20file.txt", "acme/user1/my file.txt"},
		{"invalid escape falls back to raw", "acme/user1/bad%zzname", "acme/user1/bad%zzname"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeKey(tt.in))
		})
	}
}

func TestEffectiveMIME(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		fileName    string
		want        string
	}{
		{"declared type wins", "text/plain", "report.pdf", "text/plain"},
		{"generic placeholder guessed from extension", "binary/octet-stream", "report.pdf", "application/pdf"},
		{"placeholder match is case-insensitive", "Binary/Octet-Stream", "report.pdf", "application/pdf"},
		{"unknown extension stays generic", "binary/octet-stream", "data.qqq", "application/octet-stream"},
		{"no declared type guesses from extension", "", "photo.png", "image/png"},
		{"nothing to go on", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, effectiveMIME(tt.contentType, tt.fileName))
		})
	}
}

func TestEffectiveMIME_StripsParameters(t *testing.T) {
	// mime.TypeByExtension returns "text/plain; charset=utf-8" for .txt;
	// only the bare type should survive.
	got := effectiveMIME("binary/octet-stream", "notes.txt")
	assert.Equal(t, "text/plain", got)
}

func TestParseEventTime(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  *time.Time
		isNil bool
	}{
		{
			name: "zulu suffix",
			in:   "2025-03-14T09:26:53Z",
			want: timePtr(time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)),
		},
		{
			name: "explicit offset normalized to UTC",
			in:   "2025-03-14T11:26:53+02:00",
			want: timePtr(time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)),
		},
		{
			name: "fractional seconds",
			in:   "2025-03-14T09:26:53.123456789Z",
			want: timePtr(time.Date(2025, 3, 14, 9, 26, 53, 123456789, time.UTC)),
		},
		{name: "garbage", in: "not-a-time", isNil: true},
		{name: "empty", in: "", isNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseEventTime(tt.in)
			if tt.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseEvent_UnparseableTimeKeepsRawString(t *testing.T) {
	raw := map[string]any{
		"eventName": "s3:ObjectCreated:Put",
		"eventTime": "14/03/2025 09:26",
	}
	evt := ParseEvent(raw)
	assert.Equal(t, "14/03/2025 09:26", evt.EventTime)
	assert.Nil(t, evt.EventTimeUTC)
}

func TestChecksumList(t *testing.T) {
	assert.Equal(t, []string{"CRC32"}, checksumList("CRC32"))
	assert.Equal(t, []string{"CRC32", "SHA256"}, checksumList([]any{"CRC32", "SHA256"}))
	assert.Nil(t, checksumList(nil))
	assert.Nil(t, checksumList(42))
}

func TestLowercaseKeys(t *testing.T) {
	got := lowercaseKeys(map[string]any{
		"X-Amz-Meta-Origin": "ui",
		"Count":             float64(3),
	})
	assert.Equal(t, map[string]string{
		"x-amz-meta-origin": "ui",
		"count":             "3",
	}, got)
	assert.Nil(t, lowercaseKeys(nil))
}

func timePtr(t time.Time) *time.Time { return &t }
