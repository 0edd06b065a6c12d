// Package checksum hashes page content for change detection and HTTP caching.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong entity tag for data built from the first 128 bits
// of its digest.
func ETag(data []byte) string {
	return `"` + Sum(data)[:32] + `"`
}

// Matches reports whether an If-None-Match header value covers etag.
// The header may list several tags, use "*", or carry weak W/ tags, which
// compare equal to their strong form for GET and HEAD.
func Matches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for tag := range strings.SplitSeq(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(tag), "W/") == want {
			return true
		}
	}
	return false
}
