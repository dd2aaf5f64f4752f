package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key prefixes. Every key lives under exactly one of these.
const (
	PrefixUploads   = "uploads/"
	PrefixProcessed = "processed/"
	PrefixModels    = "models/"
)

var allowedPrefixes = []string{PrefixUploads, PrefixProcessed, PrefixModels}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// NewKey builds a storage key under the given prefix:
// "<prefix><YYYYMMDD_HHMMSS>_<uuid8>_<sanitized filename>". The
// timestamp keeps listings sortable, the random component avoids
// collisions between same-named uploads.
func NewKey(prefix, filename string, now time.Time) string {
	return fmt.Sprintf("%s%s_%s_%s",
		prefix,
		now.UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
		SanitizeFilename(filename))
}

// SanitizeFilename strips path separators and non-portable characters
// from an uploaded filename. An empty or fully unsafe name becomes
// "file".
func SanitizeFilename(name string) string {
	// Drop any client-supplied directory part.
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// ValidateKey rejects keys that escape the storage namespace: path
// traversal, absolute paths, or a prefix outside the allowed set.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: absolute path %q", ErrInvalidKey, key)
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("%w: path traversal in %q", ErrInvalidKey, key)
	}
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is outside the allowed prefixes", ErrInvalidKey, key)
}
