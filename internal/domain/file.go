package domain

import (
	"strings"
	"time"
)

// UserFile describes one stored object. Path is the storage key with the
// sanitized name; Name keeps the original for display. Identity is the
// path, ownership is the path prefix.
type UserFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	URL       string    `json:"url,omitempty"`
}

// OwnedBy reports whether the file path belongs to the given user.
// Every storage mutation must check this before touching the object.
func OwnedBy(path, userID string) bool {
	return strings.HasPrefix(path, userID+"/")
}
