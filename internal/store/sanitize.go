package store

import (
	"path"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFileName converts an arbitrary display name into a safe
// object name: path components are stripped, anything outside
// [a-zA-Z0-9._-] collapses to a single underscore, and the extension
// is preserved. The result is never empty.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
