// Package objectkey generates the structured object keys used for document
// uploads and extracts ownership information back out of them.
package objectkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSecureKey builds the object key for an uploaded document:
//
//	<company-id>/<user-id>/<yyyymmdd-hhmm>-<unix>_<random>.<ext>
//
// The second path segment carries the uploader identity; the ingest
// workflow extracts it with OwnerFromKey, so the shape must not change
// without migrating every consumer of these keys.
func GenerateSecureKey(companyID, userID, extension string) string {
	now := time.Now().UTC()
	stamp := fmt.Sprintf("%s-%d", now.Format("20060102-1504"), now.Unix())
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s/%s/%s_%s.%s", companyID, userID, stamp, random, sanitizeExtension(extension))
}

// OwnerFromKey returns the creator identity encoded in a key's second path
// segment, and whether the key actually carried one.
func OwnerFromKey(key string) (string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// sanitizeExtension lower-cases an extension and strips anything that is
// not a letter or digit. An empty result falls back to "bin".
func sanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	var b strings.Builder
	b.Grow(len(ext))
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "bin"
	}
	return b.String()
}
