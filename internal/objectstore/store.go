package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotExist = errors.New("objectstore: object does not exist")

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Name        string
	ContentType string
	Size        int64
	Updated     time.Time
}

// Store is the bucket surface the service depends on. Names are
// bucket-relative keys; "/" is the only folder delimiter.
type Store interface {
	// Upload writes r to name and returns the object's gs:// URI.
	Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	// Prefixes returns the first-level folder prefixes, each ending in "/".
	Prefixes(ctx context.Context) ([]string, error)
	// List returns every object whose name starts with prefix, in name order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Stat returns ErrNotExist when name is absent.
	Stat(ctx context.Context, name string) (ObjectInfo, error)
	// Read loads the whole object into memory.
	Read(ctx context.Context, name string) ([]byte, ObjectInfo, error)
}

// URI formats the gs:// address the worker uses to fetch an object.
func URI(bucket, name string) string {
	return "gs://" + bucket + "/" + name
}
