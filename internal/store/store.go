package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned when the object at the given path is absent.
var ErrNotExist = errors.New("object does not exist")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store is a flat object store keyed by slash-separated paths. Writes
// to an existing path overwrite it.
type Store interface {
	Put(ctx context.Context, path string, r io.Reader) (int64, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (ObjectInfo, error)
}
